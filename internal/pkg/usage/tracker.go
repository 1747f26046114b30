package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
)

// Kind names one of the tracked resources.
type Kind string

const (
	KindLanguages    Kind = "languages"
	KindTranslations Kind = "translations"
	KindProducts     Kind = "products"
)

// AllKinds lists every tracked resource in display order.
var AllKinds = []Kind{KindLanguages, KindTranslations, KindProducts}

var (
	ErrInvalidKind   = errors.New("invalid usage kind")
	ErrInvalidAmount = errors.New("amount must be at least 1")
)

func (k Kind) column() (string, error) {
	switch k {
	case KindLanguages:
		return "languages_count", nil
	case KindTranslations:
		return "translations_count", nil
	case KindProducts:
		return "products_count", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// PeriodKey returns the calendar month bucket of t in UTC.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Counts is the usage of one shop in one period.
type Counts struct {
	Period       string `json:"period"`
	Languages    int    `json:"languages"`
	Translations int    `json:"translations"`
	Products     int    `json:"products"`
}

// Of returns the counter for kind.
func (c Counts) Of(kind Kind) int {
	switch kind {
	case KindLanguages:
		return c.Languages
	case KindTranslations:
		return c.Translations
	case KindProducts:
		return c.Products
	default:
		return 0
	}
}

// CountsFromModel converts a stored row. A nil row yields zeros.
func CountsFromModel(period string, row *models.UsageTracking) Counts {
	if row == nil {
		return Counts{Period: period}
	}
	return Counts{
		Period:       row.Period,
		Languages:    row.LanguagesCount,
		Translations: row.TranslationsCount,
		Products:     row.ProductsCount,
	}
}

// Stats combines the current usage with the caps of the shop's subscription.
// Limits is nil when the shop has no subscription or no caps snapshot.
type Stats struct {
	Usage  Counts        `json:"usage"`
	Limits *billing.Caps `json:"limits"`
}

// Tracker maintains the monthly usage counters. Translations and products
// are flows and start at zero every month. Languages are a stock: a new
// period row starts at the number of stored languages, and Release lowers
// the counter when a language is removed.
type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// WithTx returns a tracker bound to the given transaction.
func (t *Tracker) WithTx(tx *gorm.DB) *Tracker {
	return &Tracker{db: tx, now: t.now}
}

// Period returns the key of the current period.
func (t *Tracker) Period() string {
	return PeriodKey(t.now())
}

// Find returns the current-period row without creating it. A missing row is
// reported as nil without error.
func (t *Tracker) Find(ctx context.Context, shop string) (*models.UsageTracking, error) {
	var row models.UsageTracking
	err := t.db.WithContext(ctx).
		Where("shop = ? AND period = ?", shop, t.Period()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// storedLanguages counts the shop's language rows, the opening balance of a
// new period.
func (t *Tracker) storedLanguages(ctx context.Context, shop string) (int, error) {
	n, err := repository.NewRepositories(t.db.WithContext(ctx)).Language.CountByShop(shop)
	return int(n), err
}

// Current returns the current-period row, creating it if needed.
func (t *Tracker) Current(ctx context.Context, shop string) (*models.UsageTracking, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, billing.ErrShopRequired
	}
	languages, err := t.storedLanguages(ctx, shop)
	if err != nil {
		return nil, err
	}
	row := models.UsageTracking{Shop: shop, Period: t.Period(), LanguagesCount: languages}
	err = t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop"}, {Name: "period"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return t.Find(ctx, shop)
}

// Increment adds amount to the counter of kind in a single upsert. A language
// must be counted before its row is inserted, otherwise a fresh period row
// would include it twice.
func (t *Tracker) Increment(ctx context.Context, shop string, kind Kind, amount int) error {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return billing.ErrShopRequired
	}
	if amount < 1 {
		return ErrInvalidAmount
	}
	col, err := kind.column()
	if err != nil {
		return err
	}

	languages, err := t.storedLanguages(ctx, shop)
	if err != nil {
		return err
	}
	row := map[string]interface{}{
		"shop":               shop,
		"period":             t.Period(),
		"languages_count":    languages,
		"translations_count": 0,
		"products_count":     0,
		"created_at":         t.now(),
		"updated_at":         t.now(),
	}
	if kind == KindLanguages {
		row[col] = languages + amount
	} else {
		row[col] = amount
	}

	return t.db.WithContext(ctx).
		Model(&models.UsageTracking{}).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shop"}, {Name: "period"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				col:          gorm.Expr(col+" + ?", amount),
				"updated_at": t.now(),
			}),
		}).
		Create(row).Error
}

// Release lowers the counter of kind by amount, never below zero. Only
// stock kinds can be released.
func (t *Tracker) Release(ctx context.Context, shop string, kind Kind, amount int) error {
	if kind != KindLanguages {
		return fmt.Errorf("%w: %q cannot be released", ErrInvalidKind, string(kind))
	}
	if amount < 1 {
		return ErrInvalidAmount
	}
	col, err := kind.column()
	if err != nil {
		return err
	}
	if _, err := t.Current(ctx, shop); err != nil {
		return err
	}
	return t.db.WithContext(ctx).
		Model(&models.UsageTracking{}).
		Where("shop = ? AND period = ?", strings.TrimSpace(shop), t.Period()).
		Updates(map[string]interface{}{
			col:          gorm.Expr("CASE WHEN "+col+" > ? THEN "+col+" - ? ELSE 0 END", amount, amount),
			"updated_at": t.now(),
		}).Error
}

// Counts returns the current usage. Without a row for the period the flows
// read zero and languages read the stored count.
func (t *Tracker) Counts(ctx context.Context, shop string) (Counts, error) {
	row, err := t.Find(ctx, shop)
	if err != nil {
		return Counts{}, err
	}
	counts := CountsFromModel(t.Period(), row)
	if row == nil {
		if counts.Languages, err = t.storedLanguages(ctx, shop); err != nil {
			return Counts{}, err
		}
	}
	return counts, nil
}

// Stats returns the current usage together with the subscription caps.
func (t *Tracker) Stats(ctx context.Context, shop string) (*Stats, error) {
	counts, err := t.Counts(ctx, shop)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Usage: counts}

	var sub models.Subscription
	err = t.db.WithContext(ctx).Preload("UsageLimit").Where("shop = ?", shop).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return stats, nil
	case err != nil:
		return nil, err
	}
	if sub.UsageLimit != nil {
		caps := billing.CapsFromUsageLimit(sub.UsageLimit)
		stats.Limits = &caps
	}
	return stats, nil
}
