package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	ResourceTypeProduct    = "product"
	ResourceTypeCollection = "collection"
	ResourceTypePage       = "page"
)

const (
	TranslationStatusDraft     = "draft"
	TranslationStatusReview    = "review"
	TranslationStatusPublished = "published"
)

// Translation is one translated field of a Shopify resource. MarketID is empty
// for translations that apply to every market, which keeps the composite
// unique index effective for them too.
type Translation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Shop            string    `gorm:"type:varchar(191);not null;index:ux_translations_key,unique,priority:1;index:idx_translations_shop_language,priority:1" json:"shop" validate:"required"`
	ResourceType    string    `gorm:"type:varchar(20);not null;index:ux_translations_key,unique,priority:2" json:"resource_type" validate:"required,oneof=product collection page"`
	ResourceID      string    `gorm:"type:varchar(191);not null;index:ux_translations_key,unique,priority:3" json:"resource_id" validate:"required"`
	Field           string    `gorm:"type:varchar(191);not null;index:ux_translations_key,unique,priority:4" json:"field" validate:"required,max=191"`
	LanguageCode    string    `gorm:"type:varchar(16);not null;index:ux_translations_key,unique,priority:5;index:idx_translations_shop_language,priority:2" json:"language_code" validate:"required,min=2,max=16"`
	MarketID        string    `gorm:"type:varchar(191);not null;default:'';index:ux_translations_key,unique,priority:6" json:"market_id"`
	TranslatedValue string    `gorm:"type:text;not null" json:"translated_value"`
	Status          string    `gorm:"type:varchar(20);not null;default:'draft';index" json:"status" validate:"oneof=draft review published"`
	AutoTranslated  bool      `gorm:"default:false" json:"auto_translated"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (t *Translation) Validate() error {
	v := validator.New()
	return v.Struct(t)
}

// IsSupportedResourceType reports whether translations can be stored and
// synced for the given resource type.
func IsSupportedResourceType(resourceType string) bool {
	switch resourceType {
	case ResourceTypeProduct, ResourceTypeCollection, ResourceTypePage:
		return true
	default:
		return false
	}
}
