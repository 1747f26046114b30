package repository

import (
	"fmt"

	"github.com/ManuelReschke/LingoFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultTranslationSearchLimit = 50

// translationRepository implements the TranslationRepository interface
type translationRepository struct {
	db *gorm.DB
}

// NewTranslationRepository creates a new translation repository instance
func NewTranslationRepository(db *gorm.DB) TranslationRepository {
	return &translationRepository{db: db}
}

func (r *translationRepository) whereKey(key TranslationKey) *gorm.DB {
	return r.db.Where(
		"shop = ? AND resource_type = ? AND resource_id = ? AND field = ? AND language_code = ? AND market_id = ?",
		key.Shop, key.ResourceType, key.ResourceID, key.Field, key.LanguageCode, key.MarketID,
	)
}

// Upsert inserts the translation or overwrites value, status and the
// auto-translated flag of the row with the same key.
func (r *translationRepository) Upsert(translation *models.Translation) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "shop"},
			{Name: "resource_type"},
			{Name: "resource_id"},
			{Name: "field"},
			{Name: "language_code"},
			{Name: "market_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"translated_value",
			"status",
			"auto_translated",
			"updated_at",
		}),
	}).Create(translation).Error; err != nil {
		return err
	}

	// Re-read so ID and timestamps reflect the stored row on every dialect.
	stored, err := r.Get(TranslationKey{
		Shop:         translation.Shop,
		ResourceType: translation.ResourceType,
		ResourceID:   translation.ResourceID,
		Field:        translation.Field,
		LanguageCode: translation.LanguageCode,
		MarketID:     translation.MarketID,
	})
	if err != nil {
		return err
	}
	*translation = *stored
	return nil
}

func (r *translationRepository) Get(key TranslationKey) (*models.Translation, error) {
	var t models.Translation
	if err := r.whereKey(key).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByResource lists all translations of a resource. A non-empty marketID
// restricts the result to that market.
func (r *translationRepository) ListByResource(shop, resourceType, resourceID, marketID string) ([]models.Translation, error) {
	var out []models.Translation
	q := r.db.Where("shop = ? AND resource_type = ? AND resource_id = ?", shop, resourceType, resourceID)
	if marketID != "" {
		q = q.Where("market_id = ?", marketID)
	}
	err := q.Order("language_code ASC").Order("field ASC").Find(&out).Error
	return out, err
}

func (r *translationRepository) ListPublished(shop, resourceType, resourceID, languageCode, marketID string) ([]models.Translation, error) {
	var out []models.Translation
	q := r.db.Where("shop = ? AND resource_type = ? AND resource_id = ? AND language_code = ? AND status = ?",
		shop, resourceType, resourceID, languageCode, models.TranslationStatusPublished)
	if marketID != "" {
		q = q.Where("market_id = ?", marketID)
	}
	err := q.Order("field ASC").Find(&out).Error
	return out, err
}

func (r *translationRepository) ListByShop(shop string) ([]models.Translation, error) {
	var out []models.Translation
	err := r.db.Where("shop = ?", shop).Order("id ASC").Find(&out).Error
	return out, err
}

// Search returns the most recently updated translations matching filter.
func (r *translationRepository) Search(shop string, filter TranslationFilter) ([]models.Translation, error) {
	q := r.db.Where("shop = ?", shop)
	if isFilterValue(filter.ResourceType) {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if isFilterValue(filter.LanguageCode) {
		q = q.Where("language_code = ?", filter.LanguageCode)
	}
	if isFilterValue(filter.Status) {
		q = q.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTranslationSearchLimit
	}

	var out []models.Translation
	err := q.Order("updated_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *translationRepository) Update(key TranslationKey, translatedValue, status string) (*models.Translation, error) {
	t, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	t.TranslatedValue = translatedValue
	t.Status = status
	if err := r.db.Save(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *translationRepository) Delete(key TranslationKey) error {
	tx := r.whereKey(key).Delete(&models.Translation{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *translationRepository) DeleteByLanguage(shop, languageCode string) (int64, error) {
	tx := r.db.Where("shop = ? AND language_code = ?", shop, languageCode).Delete(&models.Translation{})
	return tx.RowsAffected, tx.Error
}

func (r *translationRepository) CountByShop(shop string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Translation{}).Where("shop = ?", shop).Count(&count).Error
	return count, err
}

// CountGroupedBy counts translations of a shop grouped by status or language_code.
func (r *translationRepository) CountGroupedBy(shop, column string) (map[string]int64, error) {
	switch column {
	case "status", "language_code":
	default:
		return nil, fmt.Errorf("unsupported group column: %s", column)
	}

	type row struct {
		GroupKey string
		Total    int64
	}
	var rows []row
	err := r.db.Model(&models.Translation{}).
		Select(column + " AS group_key, COUNT(*) AS total").
		Where("shop = ?", shop).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, rw := range rows {
		out[rw.GroupKey] = rw.Total
	}
	return out, nil
}

func isFilterValue(v string) bool {
	return v != "" && v != "all"
}
