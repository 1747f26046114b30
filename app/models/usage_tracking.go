package models

import "time"

// UsageTracking holds the per-shop counters of one calendar month ("2006-01").
type UsageTracking struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Shop              string    `gorm:"type:varchar(191);not null;index:ux_usage_trackings_shop_period,unique,priority:1" json:"shop"`
	Period            string    `gorm:"type:char(7);not null;index:ux_usage_trackings_shop_period,unique,priority:2" json:"period"`
	LanguagesCount    int       `gorm:"not null;default:0" json:"languages_count"`
	TranslationsCount int       `gorm:"not null;default:0" json:"translations_count"`
	ProductsCount     int       `gorm:"not null;default:0" json:"products_count"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
