package repository

import (
	"github.com/ManuelReschke/LingoFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type marketRepository struct {
	db *gorm.DB
}

func NewMarketRepository(db *gorm.DB) MarketRepository {
	return &marketRepository{db: db}
}

func (r *marketRepository) Upsert(market *models.Market) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "shop"},
			{Name: "shopify_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"enabled",
			"updated_at",
		}),
	}).Create(market).Error; err != nil {
		return err
	}
	stored, err := r.GetByShopifyID(market.Shop, market.ShopifyID)
	if err != nil {
		return err
	}
	*market = *stored
	return nil
}

func (r *marketRepository) GetByShopifyID(shop, shopifyID string) (*models.Market, error) {
	var m models.Market
	if err := r.db.Where("shop = ? AND shopify_id = ?", shop, shopifyID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *marketRepository) ListEnabled(shop string) ([]models.Market, error) {
	var markets []models.Market
	err := r.db.Where("shop = ? AND enabled = ?", shop, true).Order("name ASC").Find(&markets).Error
	return markets, err
}
