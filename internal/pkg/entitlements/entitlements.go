package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/usage"
)

// ReasonNoSubscription is returned for every denial caused by the
// subscription itself rather than by a cap.
const ReasonNoSubscription = "No active subscription"

type Feature string

const (
	FeatureAutoTranslate     Feature = "autoTranslate"
	FeatureTranslationMemory Feature = "translationMemory"
	FeaturePrioritySupport   Feature = "prioritySupport"
)

var ErrUnknownFeature = errors.New("unknown feature")

// ParseFeature accepts the camelCase feature names used by the API.
func ParseFeature(raw string) (Feature, error) {
	switch f := Feature(strings.TrimSpace(raw)); f {
	case FeatureAutoTranslate, FeatureTranslationMemory, FeaturePrioritySupport:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, raw)
	}
}

// CapAllows reports whether one more unit fits below cap.
func CapAllows(cap, count int) bool {
	return cap == billing.Unlimited || count < cap
}

// LimitCheck is the verdict for one resource kind.
type LimitCheck struct {
	Allowed bool   `json:"allowed"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
	Reason  string `json:"reason,omitempty"`
}

// UsageCheck is the combined verdict over several resource kinds.
type UsageCheck struct {
	Allowed bool                      `json:"allowed"`
	Reason  string                    `json:"reason,omitempty"`
	Checks  map[usage.Kind]LimitCheck `json:"checks,omitempty"`
}

// Checker answers entitlement questions from the stored subscription, its
// caps snapshot and the current usage counters. Denials are values.
type Checker struct {
	db      *gorm.DB
	tracker *usage.Tracker
}

func NewChecker(db *gorm.DB, tracker *usage.Tracker) *Checker {
	if tracker == nil {
		tracker = usage.NewTracker(db)
	}
	return &Checker{db: db, tracker: tracker}
}

// WithTx returns a checker reading through the given transaction.
func (c *Checker) WithTx(tx *gorm.DB) *Checker {
	return &Checker{db: tx, tracker: c.tracker.WithTx(tx)}
}

// activeCaps loads the caps of an active subscription. ok is false when the
// shop has no subscription, a non-active one, or no caps snapshot.
func (c *Checker) activeCaps(ctx context.Context, shop string) (billing.Caps, bool, error) {
	var sub models.Subscription
	err := c.db.WithContext(ctx).Preload("UsageLimit").Where("shop = ?", shop).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billing.Caps{}, false, nil
	}
	if err != nil {
		return billing.Caps{}, false, err
	}
	if !sub.IsActive() || sub.UsageLimit == nil {
		return billing.Caps{}, false, nil
	}
	return billing.CapsFromUsageLimit(sub.UsageLimit), true, nil
}

func capFor(caps billing.Caps, kind usage.Kind) int {
	switch kind {
	case usage.KindLanguages:
		return caps.MaxLanguages
	case usage.KindTranslations:
		return caps.MaxTranslations
	case usage.KindProducts:
		return caps.MaxProducts
	default:
		return 0
	}
}

// CheckUsageLimits evaluates the given kinds, or all of them when none is
// given. Allowed is true only when every evaluated kind is allowed.
func (c *Checker) CheckUsageLimits(ctx context.Context, shop string, kinds ...usage.Kind) (*UsageCheck, error) {
	caps, ok, err := c.activeCaps(ctx, shop)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &UsageCheck{Allowed: false, Reason: ReasonNoSubscription}, nil
	}

	counts, err := c.tracker.Counts(ctx, shop)
	if err != nil {
		return nil, err
	}

	if len(kinds) == 0 {
		kinds = usage.AllKinds
	}
	res := &UsageCheck{Allowed: true, Checks: make(map[usage.Kind]LimitCheck, len(kinds))}
	for _, kind := range kinds {
		limit := capFor(caps, kind)
		current := counts.Of(kind)
		check := LimitCheck{Allowed: CapAllows(limit, current), Current: current, Limit: limit}
		if !check.Allowed {
			check.Reason = fmt.Sprintf("%s limit reached", kind)
			res.Allowed = false
			if res.Reason == "" {
				res.Reason = check.Reason
			}
		}
		res.Checks[kind] = check
	}
	return res, nil
}

// CheckLimit evaluates a single resource kind.
func (c *Checker) CheckLimit(ctx context.Context, shop string, kind usage.Kind) (*LimitCheck, error) {
	res, err := c.CheckUsageLimits(ctx, shop, kind)
	if err != nil {
		return nil, err
	}
	if check, ok := res.Checks[kind]; ok {
		return &check, nil
	}
	return &LimitCheck{Allowed: false, Reason: res.Reason}, nil
}

// CheckLanguageLimit is CheckLimit for languages.
func (c *Checker) CheckLanguageLimit(ctx context.Context, shop string) (*LimitCheck, error) {
	return c.CheckLimit(ctx, shop, usage.KindLanguages)
}

// CheckFeatureAccess reports whether the active plan carries the feature.
func (c *Checker) CheckFeatureAccess(ctx context.Context, shop string, feature Feature) (bool, error) {
	caps, ok, err := c.activeCaps(ctx, shop)
	if err != nil || !ok {
		return false, err
	}
	switch feature {
	case FeatureAutoTranslate:
		return caps.AutoTranslate, nil
	case FeatureTranslationMemory:
		return caps.TranslationMemory, nil
	case FeaturePrioritySupport:
		return caps.PrioritySupport, nil
	default:
		return false, nil
	}
}

// HasActiveSubscription reports whether the shop currently holds an
// entitling subscription with caps.
func (c *Checker) HasActiveSubscription(ctx context.Context, shop string) (bool, error) {
	_, ok, err := c.activeCaps(ctx, shop)
	return ok, err
}
