package models

import "time"

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusDeclined  = "declined"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusFrozen    = "frozen"
)

// Subscription mirrors the shop's Shopify app subscription. There is at most
// one row per shop; a confirmed plan change rewrites it in place.
type Subscription struct {
	ID                           uint        `gorm:"primaryKey" json:"id"`
	Shop                         string      `gorm:"type:varchar(191);not null;uniqueIndex" json:"shop"`
	PlanID                       string      `gorm:"type:varchar(50);not null;index" json:"plan_id"`
	PlanName                     string      `gorm:"type:varchar(100);not null" json:"plan_name"`
	Status                       string      `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	ShopifySubscriptionID        string      `gorm:"type:varchar(191);not null;default:''" json:"shopify_subscription_id"`
	// A plan change waiting for the merchant's confirmation. The current plan
	// and its caps stay in force until Shopify reports the new charge active.
	PendingPlanID                string      `gorm:"type:varchar(50);not null;default:''" json:"pending_plan_id,omitempty"`
	PendingShopifySubscriptionID string      `gorm:"type:varchar(191);not null;default:''" json:"pending_shopify_subscription_id,omitempty"`
	CurrentPeriodStart           *time.Time  `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd             *time.Time  `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	TrialEndsAt                  *time.Time  `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	CancelledAt                  *time.Time  `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	UsageLimit                   *UsageLimit `gorm:"foreignKey:SubscriptionID" json:"usage_limit,omitempty"`
	CreatedAt                    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription currently entitles the shop.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// UsageLimit is the snapshot of plan caps taken when the subscription was
// created or its plan changed. -1 means unlimited.
type UsageLimit struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint      `gorm:"not null;uniqueIndex" json:"subscription_id"`
	MaxLanguages      int       `gorm:"not null;default:0" json:"max_languages"`
	MaxTranslations   int       `gorm:"not null;default:0" json:"max_translations"`
	MaxProducts       int       `gorm:"not null;default:0" json:"max_products"`
	AutoTranslate     bool      `gorm:"default:false" json:"auto_translate"`
	TranslationMemory bool      `gorm:"default:false" json:"translation_memory"`
	PrioritySupport   bool      `gorm:"default:false" json:"priority_support"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
