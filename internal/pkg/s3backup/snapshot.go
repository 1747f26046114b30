package s3backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
)

// Uploader is the storage side of a snapshot. *Client implements it.
type Uploader interface {
	Upload(ctx context.Context, objectKey string, body []byte, contentType string) (*UploadResult, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// Snapshot is the JSON document written for one shop.
type Snapshot struct {
	Shop         string               `json:"shop"`
	CreatedAt    time.Time            `json:"created_at"`
	Count        int                  `json:"count"`
	Languages    []models.Language    `json:"languages"`
	Translations []models.Translation `json:"translations"`
}

type Snapshotter struct {
	db       *gorm.DB
	uploader Uploader
	config   *Config
	now      func() time.Time
}

func NewSnapshotter(db *gorm.DB, uploader Uploader, cfg *Config) *Snapshotter {
	return &Snapshotter{db: db, uploader: uploader, config: cfg, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *Snapshotter) WithClock(now func() time.Time) *Snapshotter {
	s.now = now
	return s
}

// Enabled reports whether snapshots can be taken.
func (s *Snapshotter) Enabled() bool {
	return s != nil && s.uploader != nil && s.config.IsEnabled()
}

// Backup serialises every language and translation of the shop and uploads it.
func (s *Snapshotter) Backup(ctx context.Context, shop string) (*UploadResult, error) {
	return s.BackupAt(ctx, shop, s.now())
}

// BackupAt stores the snapshot under the key of at. A key that already exists
// is left untouched, so a retried backup job does not write a second copy.
func (s *Snapshotter) BackupAt(ctx context.Context, shop string, at time.Time) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	at = at.UTC()
	key := s.config.GetObjectKey(shop, at)
	exists, err := s.uploader.ObjectExists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Infof("[S3Backup] Snapshot %s already stored, skipping upload", key)
		return &UploadResult{BucketName: s.config.GetBucketName(), ObjectKey: key, ContentType: "application/json"}, nil
	}

	repos := repository.NewRepositories(s.db.WithContext(ctx))
	langs, err := repos.Language.ListByShop(shop)
	if err != nil {
		return nil, err
	}
	rows, err := repos.Translation.ListByShop(shop)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(Snapshot{
		Shop:         shop,
		CreatedAt:    at,
		Count:        len(rows),
		Languages:    langs,
		Translations: rows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	res, err := s.uploader.Upload(ctx, key, body, "application/json")
	if err != nil {
		return nil, err
	}
	log.Infof("[S3Backup] Stored %d translations of %s in %s", len(rows), shop, res.ObjectKey)
	return res, nil
}
