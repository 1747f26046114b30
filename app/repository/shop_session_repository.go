package repository

import (
	"time"

	"github.com/ManuelReschke/LingoFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type shopSessionRepository struct {
	db *gorm.DB
}

func NewShopSessionRepository(db *gorm.DB) ShopSessionRepository {
	return &shopSessionRepository{db: db}
}

// Upsert stores a fresh install. Reinstalling clears the uninstall marker.
func (r *shopSessionRepository) Upsert(session *models.ShopSession) error {
	if session.InstalledAt.IsZero() {
		session.InstalledAt = time.Now()
	}
	session.UninstalledAt = nil
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token_enc",
			"scope",
			"installed_at",
			"uninstalled_at",
			"updated_at",
		}),
	}).Create(session).Error; err != nil {
		return err
	}
	stored, err := r.GetByShop(session.Shop)
	if err != nil {
		return err
	}
	*session = *stored
	return nil
}

func (r *shopSessionRepository) GetByShop(shop string) (*models.ShopSession, error) {
	return models.FindShopSession(r.db, shop)
}

// MarkUninstalled drops the stored token; the row is kept for auditing.
func (r *shopSessionRepository) MarkUninstalled(shop string) error {
	now := time.Now()
	return r.db.Model(&models.ShopSession{}).
		Where("shop = ?", shop).
		Updates(map[string]interface{}{
			"access_token_enc": "",
			"uninstalled_at":   &now,
		}).Error
}
