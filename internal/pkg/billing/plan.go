package billing

import (
	"strings"

	"github.com/ManuelReschke/LingoFox/app/models"
)

// PlanID is the closed set of subscription tiers.
type PlanID string

const (
	PlanBasic      PlanID = "basic"
	PlanPro        PlanID = "pro"
	PlanEnterprise PlanID = "enterprise"
)

// Unlimited marks a cap without upper bound.
const Unlimited = -1

const (
	IntervalEvery30Days = "EVERY_30_DAYS"
	IntervalAnnual      = "ANNUAL"
	CurrencyUSD         = "USD"
)

// Caps is the capability record attached to a plan.
type Caps struct {
	MaxLanguages      int  `json:"max_languages"`
	MaxTranslations   int  `json:"max_translations"`
	MaxProducts       int  `json:"max_products"`
	AutoTranslate     bool `json:"auto_translate"`
	TranslationMemory bool `json:"translation_memory"`
	PrioritySupport   bool `json:"priority_support"`
}

type PlanDefinition struct {
	ID        PlanID  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Interval  string  `json:"interval"`
	TrialDays int     `json:"trial_days"`
	Caps      Caps    `json:"caps"`
}

var plans = []PlanDefinition{
	{
		ID:        PlanBasic,
		Name:      "Basic",
		Price:     9.99,
		Currency:  CurrencyUSD,
		Interval:  IntervalEvery30Days,
		TrialDays: 14,
		Caps: Caps{
			MaxLanguages:    2,
			MaxTranslations: 100,
			MaxProducts:     50,
		},
	},
	{
		ID:        PlanPro,
		Name:      "Pro",
		Price:     29.99,
		Currency:  CurrencyUSD,
		Interval:  IntervalEvery30Days,
		TrialDays: 14,
		Caps: Caps{
			MaxLanguages:      5,
			MaxTranslations:   1000,
			MaxProducts:       500,
			AutoTranslate:     true,
			TranslationMemory: true,
		},
	},
	{
		ID:       PlanEnterprise,
		Name:     "Enterprise",
		Price:    99.99,
		Currency: CurrencyUSD,
		Interval: IntervalEvery30Days,
		Caps: Caps{
			MaxLanguages:      Unlimited,
			MaxTranslations:   Unlimited,
			MaxProducts:       Unlimited,
			AutoTranslate:     true,
			TranslationMemory: true,
			PrioritySupport:   true,
		},
	},
}

// Plans returns the catalog in display order.
func Plans() []PlanDefinition {
	out := make([]PlanDefinition, len(plans))
	copy(out, plans)
	return out
}

// ParsePlanID normalizes user input to a PlanID. Unknown values yield "".
func ParsePlanID(raw string) PlanID {
	switch id := PlanID(strings.ToLower(strings.TrimSpace(raw))); id {
	case PlanBasic, PlanPro, PlanEnterprise:
		return id
	default:
		return ""
	}
}

func FindPlan(id PlanID) (PlanDefinition, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return PlanDefinition{}, false
}

// UsageLimit converts the caps into the persisted snapshot row.
func (c Caps) UsageLimit(subscriptionID uint) *models.UsageLimit {
	return &models.UsageLimit{
		SubscriptionID:    subscriptionID,
		MaxLanguages:      c.MaxLanguages,
		MaxTranslations:   c.MaxTranslations,
		MaxProducts:       c.MaxProducts,
		AutoTranslate:     c.AutoTranslate,
		TranslationMemory: c.TranslationMemory,
		PrioritySupport:   c.PrioritySupport,
	}
}

// CapsFromUsageLimit is the inverse of Caps.UsageLimit.
func CapsFromUsageLimit(l *models.UsageLimit) Caps {
	if l == nil {
		return Caps{}
	}
	return Caps{
		MaxLanguages:      l.MaxLanguages,
		MaxTranslations:   l.MaxTranslations,
		MaxProducts:       l.MaxProducts,
		AutoTranslate:     l.AutoTranslate,
		TranslationMemory: l.TranslationMemory,
		PrioritySupport:   l.PrioritySupport,
	}
}

// normalizeStatus maps Shopify's AppSubscriptionStatus values to the
// lower-case local status. An empty value is treated as active.
func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "":
		return models.SubscriptionStatusActive
	case "canceled":
		return models.SubscriptionStatusCancelled
	default:
		return s
	}
}

func isEntitlingStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == models.SubscriptionStatusActive
}
