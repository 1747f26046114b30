package markets

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopify"
)

// Fetcher lists the markets configured in the shop.
type Fetcher interface {
	FetchMarkets(ctx context.Context) ([]shopify.Market, error)
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Sync mirrors every remote market into the local table.
func (s *Service) Sync(ctx context.Context, shop string, fetcher Fetcher) ([]models.Market, error) {
	remote, err := fetcher.FetchMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}

	out := make([]models.Market, 0, len(remote))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepositories(tx).Market
		for _, m := range remote {
			row := &models.Market{Shop: shop, ShopifyID: m.ID, Name: m.Name, Enabled: m.Enabled}
			if err := repo.Upsert(row); err != nil {
				return err
			}
			out = append(out, *row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Markets] Synced %d markets for %s", len(out), shop)
	return out, nil
}

// List returns the enabled markets ordered by name.
func (s *Service) List(ctx context.Context, shop string) ([]models.Market, error) {
	return repository.NewRepositories(s.db.WithContext(ctx)).Market.ListEnabled(shop)
}
