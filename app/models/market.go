package models

import "time"

// Market is the local mirror of a Shopify market.
type Market struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Shop      string    `gorm:"type:varchar(191);not null;index:ux_markets_shop_shopify_id,unique,priority:1" json:"shop"`
	ShopifyID string    `gorm:"type:varchar(191);not null;index:ux_markets_shop_shopify_id,unique,priority:2" json:"shopify_id"`
	Name      string    `gorm:"type:varchar(191);not null" json:"name"`
	Enabled   bool      `gorm:"index" json:"enabled"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
