package contentsync

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
)

const (
	MsgNoPublished     = "No published translations found"
	MsgUnsupportedType = "Unsupported resource type"
	MsgNoFields        = "No translatable fields found"
)

// ContentUpdater writes translated fields back to the store. The returned
// strings are user errors reported by the remote API.
type ContentUpdater interface {
	UpdateProduct(ctx context.Context, id string, fields map[string]string) ([]string, error)
	UpdateCollection(ctx context.Context, id string, fields map[string]string) ([]string, error)
	UpdatePage(ctx context.Context, id string, fields map[string]string) ([]string, error)
}

// Result is the outcome reported to the merchant. Sync failures are values.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// fieldMaps maps local translation fields to the remote input fields.
var fieldMaps = map[string]map[string]string{
	models.ResourceTypeProduct:    {"title": "title", "description": "descriptionHtml"},
	models.ResourceTypeCollection: {"title": "title", "description": "descriptionHtml"},
	models.ResourceTypePage:       {"title": "title", "body": "body"},
}

var successMessages = map[string]string{
	models.ResourceTypeProduct:    "Product translation synced",
	models.ResourceTypeCollection: "Collection translation synced",
	models.ResourceTypePage:       "Page translation synced",
}

// MapFields picks the published translations that have a remote counterpart.
func MapFields(resourceType string, translations []models.Translation) map[string]string {
	mapping, ok := fieldMaps[resourceType]
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for _, t := range translations {
		if target, ok := mapping[t.Field]; ok {
			if _, seen := out[target]; !seen {
				out[target] = t.TranslatedValue
			}
		}
	}
	return out
}

type Syncer struct {
	db *gorm.DB
}

func NewSyncer(db *gorm.DB) *Syncer {
	return &Syncer{db: db}
}

// SyncTranslation pushes the published translations of one resource and
// language to Shopify. A non-empty marketID limits the source rows to that
// market. Nothing is retried.
func (s *Syncer) SyncTranslation(ctx context.Context, updater ContentUpdater, shop, resourceType, resourceID, languageCode, marketID string) (Result, error) {
	repo := repository.NewRepositories(s.db.WithContext(ctx)).Translation
	published, err := repo.ListPublished(shop, resourceType, resourceID, languageCode, marketID)
	if err != nil {
		return Result{}, err
	}
	if len(published) == 0 {
		return Result{Success: false, Message: MsgNoPublished}, nil
	}
	if !models.IsSupportedResourceType(resourceType) {
		return Result{Success: false, Message: MsgUnsupportedType}, nil
	}

	fields := MapFields(resourceType, published)
	if len(fields) == 0 {
		return Result{Success: false, Message: MsgNoFields}, nil
	}

	var userErrors []string
	switch resourceType {
	case models.ResourceTypeProduct:
		userErrors, err = updater.UpdateProduct(ctx, resourceID, fields)
	case models.ResourceTypeCollection:
		userErrors, err = updater.UpdateCollection(ctx, resourceID, fields)
	case models.ResourceTypePage:
		userErrors, err = updater.UpdatePage(ctx, resourceID, fields)
	}
	if err != nil {
		log.Warnf("[ContentSync] %s %s (%s) for %s failed: %v", resourceType, resourceID, languageCode, shop, err)
		return Result{Success: false, Message: err.Error()}, nil
	}
	if len(userErrors) > 0 {
		return Result{Success: false, Message: strings.Join(userErrors, ", ")}, nil
	}

	log.Infof("[ContentSync] Synced %s %s (%s) for %s", resourceType, resourceID, languageCode, shop)
	return Result{Success: true, Message: successMessages[resourceType]}, nil
}
