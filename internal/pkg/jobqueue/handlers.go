package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/internal/pkg/contentsync"
	"github.com/ManuelReschke/LingoFox/internal/pkg/markets"
	"github.com/ManuelReschke/LingoFox/internal/pkg/s3backup"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopify"
)

// ShopAPI is the Admin API surface the sync jobs need.
type ShopAPI interface {
	contentsync.ContentUpdater
	markets.Fetcher
}

// ClientSource returns the Admin API client of an installed shop.
type ClientSource func(ctx context.Context, shop string) (ShopAPI, error)

// ResolverSource adapts a shopify.Resolver.
func ResolverSource(r *shopify.Resolver) ClientSource {
	return func(ctx context.Context, shop string) (ShopAPI, error) {
		c, err := r.ClientFor(ctx, shop)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Handlers runs the LingoFox job types.
type Handlers struct {
	DB        *gorm.DB
	Clients   ClientSource
	Snapshots *s3backup.Snapshotter
}

// Register installs every handler on q. Backups are only registered when
// snapshots are enabled, so enqueueing one otherwise fails with ErrUnknownJobType.
func (h *Handlers) Register(q *Queue) {
	q.Register(JobTypeSyncTranslation, h.syncTranslation)
	q.Register(JobTypeSyncMarkets, h.syncMarkets)
	if h.Snapshots.Enabled() {
		q.Register(JobTypeBackupTranslations, h.backupTranslations)
	}
}

func (h *Handlers) client(ctx context.Context, shop string) (ShopAPI, error) {
	if h.Clients == nil {
		return nil, Permanent(shopify.ErrNotConfigured)
	}
	c, err := h.Clients(ctx, shop)
	if errors.Is(err, shopify.ErrShopNotInstalled) {
		return nil, Permanent(err)
	}
	return c, err
}

func (h *Handlers) syncTranslation(ctx context.Context, job *Job) error {
	p, err := SyncTranslationJobPayloadFromMap(job.Payload)
	if err != nil {
		return Permanent(fmt.Errorf("%w: %v", ErrInvalidJobInput, err))
	}
	c, err := h.client(ctx, job.Shop)
	if err != nil {
		return err
	}
	res, err := contentsync.NewSyncer(h.DB).SyncTranslation(ctx, c, job.Shop, p.ResourceType, p.ResourceID, p.LanguageCode, p.MarketID)
	if err != nil {
		return err
	}
	job.Result = res.Message
	if !res.Success {
		return Permanent(errors.New(res.Message))
	}
	return nil
}

func (h *Handlers) syncMarkets(ctx context.Context, job *Job) error {
	c, err := h.client(ctx, job.Shop)
	if err != nil {
		return err
	}
	synced, err := markets.NewService(h.DB).Sync(ctx, job.Shop, c)
	if err != nil {
		return err
	}
	job.Result = fmt.Sprintf("%d markets synced", len(synced))
	return nil
}

func (h *Handlers) backupTranslations(ctx context.Context, job *Job) error {
	res, err := h.Snapshots.BackupAt(ctx, job.Shop, job.CreatedAt)
	if errors.Is(err, s3backup.ErrDisabled) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Backup of %s stored at %s", job.Shop, res.ObjectKey)
	job.Result = res.ObjectKey
	return nil
}
