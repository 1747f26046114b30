package repository

import (
	"github.com/ManuelReschke/LingoFox/app/models"
	"gorm.io/gorm"
)

// languageRepository implements the LanguageRepository interface
type languageRepository struct {
	db *gorm.DB
}

// NewLanguageRepository creates a new language repository instance
func NewLanguageRepository(db *gorm.DB) LanguageRepository {
	return &languageRepository{db: db}
}

func (r *languageRepository) Create(language *models.Language) error {
	return r.db.Create(language).Error
}

func (r *languageRepository) GetByCode(shop, code string) (*models.Language, error) {
	var language models.Language
	err := r.db.Where("shop = ? AND code = ?", shop, code).First(&language).Error
	if err != nil {
		return nil, err
	}
	return &language, nil
}

func (r *languageRepository) GetDefault(shop string) (*models.Language, error) {
	var language models.Language
	err := r.db.Where("shop = ? AND is_default = ?", shop, true).First(&language).Error
	if err != nil {
		return nil, err
	}
	return &language, nil
}

// ListByShop returns the default language first, the rest by name.
func (r *languageRepository) ListByShop(shop string) ([]models.Language, error) {
	var languages []models.Language
	err := r.db.Where("shop = ?", shop).Order("is_default DESC").Order("name ASC").Find(&languages).Error
	return languages, err
}

func (r *languageRepository) CountByShop(shop string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Language{}).Where("shop = ?", shop).Count(&count).Error
	return count, err
}

func (r *languageRepository) Update(language *models.Language) error {
	return r.db.Save(language).Error
}

func (r *languageRepository) UnsetDefaults(shop string) error {
	return r.db.Model(&models.Language{}).
		Where("shop = ? AND is_default = ?", shop, true).
		Update("is_default", false).Error
}

func (r *languageRepository) Delete(shop, code string) error {
	tx := r.db.Where("shop = ? AND code = ?", shop, code).Delete(&models.Language{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
