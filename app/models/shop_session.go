package models

import (
	"time"

	"gorm.io/gorm"
)

// ShopSession is the offline Shopify session of an installed shop. The access
// token is stored encrypted.
type ShopSession struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Shop           string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"shop"`
	AccessTokenEnc string     `gorm:"type:text;not null" json:"-"`
	Scope          string     `gorm:"type:varchar(500);not null;default:''" json:"scope"`
	InstalledAt    time.Time  `json:"installed_at"`
	UninstalledAt  *time.Time `gorm:"type:timestamp;default:null" json:"uninstalled_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsInstalled reports whether the app is currently installed on the shop.
func (s *ShopSession) IsInstalled() bool {
	return s != nil && s.AccessTokenEnc != "" && s.UninstalledAt == nil
}

func FindShopSession(db *gorm.DB, shop string) (*ShopSession, error) {
	var s ShopSession
	if err := db.Where("shop = ?", shop).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
