package repository

import (
	"github.com/ManuelReschke/LingoFox/app/models"
	"gorm.io/gorm"
)

// LanguageRepository defines the interface for language-related database operations
type LanguageRepository interface {
	Create(language *models.Language) error
	GetByCode(shop, code string) (*models.Language, error)
	GetDefault(shop string) (*models.Language, error)
	ListByShop(shop string) ([]models.Language, error)
	CountByShop(shop string) (int64, error)
	Update(language *models.Language) error
	UnsetDefaults(shop string) error
	Delete(shop, code string) error
}

// TranslationKey identifies one translation row. An empty MarketID addresses
// the market-independent translation.
type TranslationKey struct {
	Shop         string
	ResourceType string
	ResourceID   string
	Field        string
	LanguageCode string
	MarketID     string
}

// TranslationFilter narrows translation listings. Empty fields and "all" do not filter.
type TranslationFilter struct {
	ResourceType string
	LanguageCode string
	Status       string
	Limit        int
}

// TranslationRepository defines the interface for translation-related database operations
type TranslationRepository interface {
	Upsert(translation *models.Translation) error
	Get(key TranslationKey) (*models.Translation, error)
	ListByResource(shop, resourceType, resourceID, marketID string) ([]models.Translation, error)
	ListPublished(shop, resourceType, resourceID, languageCode, marketID string) ([]models.Translation, error)
	ListByShop(shop string) ([]models.Translation, error)
	Search(shop string, filter TranslationFilter) ([]models.Translation, error)
	Update(key TranslationKey, translatedValue, status string) (*models.Translation, error)
	Delete(key TranslationKey) error
	DeleteByLanguage(shop, languageCode string) (int64, error)
	CountByShop(shop string) (int64, error)
	CountGroupedBy(shop, column string) (map[string]int64, error)
}

// MarketRepository defines the interface for market-related database operations
type MarketRepository interface {
	Upsert(market *models.Market) error
	GetByShopifyID(shop, shopifyID string) (*models.Market, error)
	ListEnabled(shop string) ([]models.Market, error)
}

// ShopSessionRepository defines the interface for offline shop session storage
type ShopSessionRepository interface {
	Upsert(session *models.ShopSession) error
	GetByShop(shop string) (*models.ShopSession, error)
	MarkUninstalled(shop string) error
}

// Repositories holds all repository instances
type Repositories struct {
	Language    LanguageRepository
	Translation TranslationRepository
	Market      MarketRepository
	ShopSession ShopSessionRepository
}

// NewRepositories creates all repository instances bound to db. Passing a
// transaction handle scopes every repository to that transaction.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Language:    NewLanguageRepository(db),
		Translation: NewTranslationRepository(db),
		Market:      NewMarketRepository(db),
		ShopSession: NewShopSessionRepository(db),
	}
}
