package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
)

// Service keeps the local Subscription record in step with Shopify billing.
type Service struct {
	repo Repository
	now  func() time.Time
	test bool
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithTestCharges marks every created charge as a Shopify test charge.
func (s *Service) WithTestCharges(test bool) *Service {
	s.test = test
	return s
}

// CreateSubscription starts a Shopify checkout for planID. The local record is
// only written once Shopify accepted the subscription; it stays pending until
// the merchant confirms and the update webhook arrives. A shop with an active
// subscription keeps its plan and caps; the new plan is parked as pending
// until Shopify reports it active. The returned URL is the confirmation page
// the merchant must be sent to.
func (s *Service) CreateSubscription(ctx context.Context, gw Gateway, shop string, planID PlanID, returnURL string) (*models.Subscription, string, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, "", ErrShopRequired
	}
	plan, ok := FindPlan(planID)
	if !ok {
		return nil, "", ErrInvalidPlan
	}

	res, err := gw.CreateAppSubscription(ctx, CreateSubscriptionRequest{
		Name:      plan.Name,
		Price:     plan.Price,
		Currency:  plan.Currency,
		Interval:  plan.Interval,
		TrialDays: plan.TrialDays,
		ReturnURL: returnURL,
		Test:      s.test,
	})
	if err != nil {
		return nil, "", err
	}
	if res == nil || res.Subscription == nil {
		var userErrors []UserError
		if res != nil {
			userErrors = res.UserErrors
		}
		return nil, "", NewExternalError(userErrors, errCreateFailedMsg)
	}

	var stored *models.Subscription
	err = s.repo.Transaction(func(repo Repository) error {
		sub, err := repo.GetSubscriptionByShop(shop)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = &models.Subscription{
				Shop:                  shop,
				PlanID:                string(plan.ID),
				PlanName:              plan.Name,
				Status:                models.SubscriptionStatusPending,
				ShopifySubscriptionID: res.Subscription.ID,
			}
			if plan.TrialDays > 0 {
				trialEnd := s.now().Add(time.Duration(plan.TrialDays) * 24 * time.Hour)
				sub.TrialEndsAt = &trialEnd
			}
			if err := repo.CreateSubscription(sub); err != nil {
				return err
			}
		case err != nil:
			return err
		case sub.IsActive() && sub.ShopifySubscriptionID != res.Subscription.ID:
			sub.PendingPlanID = string(plan.ID)
			sub.PendingShopifySubscriptionID = res.Subscription.ID
			if err := repo.SaveSubscription(sub); err != nil {
				return err
			}
			stored = sub
			return nil
		default:
			sub.PlanID = string(plan.ID)
			sub.PlanName = plan.Name
			sub.ShopifySubscriptionID = res.Subscription.ID
			sub.PendingPlanID = ""
			sub.PendingShopifySubscriptionID = ""
			if err := repo.SaveSubscription(sub); err != nil {
				return err
			}
		}

		limit := plan.Caps.UsageLimit(sub.ID)
		if err := repo.UpsertUsageLimit(limit); err != nil {
			return err
		}
		sub.UsageLimit = limit
		stored = sub
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	log.Infof("[Billing] Created %s subscription for %s (%s)", plan.ID, shop, res.Subscription.ID)
	return stored, res.ConfirmationURL, nil
}

// GetSubscription returns the shop's subscription with its caps, or
// ErrNoSubscription.
func (s *Service) GetSubscription(ctx context.Context, shop string) (*models.Subscription, error) {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByShop(strings.TrimSpace(shop))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSubscription
	}
	return sub, err
}

// CheckSubscriptionStatus polls Shopify and mirrors status and period end.
// It returns nil without error when there is nothing to poll.
func (s *Service) CheckSubscriptionStatus(ctx context.Context, gw Gateway, shop string) (*AppSubscription, error) {
	sub, err := s.GetSubscription(ctx, shop)
	if errors.Is(err, ErrNoSubscription) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sub.ShopifySubscriptionID == "" {
		return nil, nil
	}

	if sub.PendingShopifySubscriptionID != "" {
		pending, err := gw.GetAppSubscription(ctx, sub.PendingShopifySubscriptionID)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			status := normalizeStatus(pending.Status)
			if _, err := s.settlePending(sub, status, nil, pending.CurrentPeriodEnd); err != nil {
				return nil, err
			}
			if status == models.SubscriptionStatusActive {
				return pending, nil
			}
		}
	}

	remote, err := gw.GetAppSubscription(ctx, sub.ShopifySubscriptionID)
	if err != nil || remote == nil {
		return remote, err
	}

	sub.Status = normalizeStatus(remote.Status)
	if remote.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = remote.CurrentPeriodEnd
	}
	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}
	return remote, nil
}

// CancelSubscription cancels the remote subscription and marks the local one
// cancelled. A failed remote call leaves the local record untouched.
func (s *Service) CancelSubscription(ctx context.Context, gw Gateway, shop string) (*models.Subscription, error) {
	sub, err := s.GetSubscription(ctx, shop)
	if err != nil {
		return nil, err
	}
	if sub.ShopifySubscriptionID == "" {
		return nil, ErrNoSubscription
	}

	res, err := gw.CancelAppSubscription(ctx, sub.ShopifySubscriptionID)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Subscription == nil {
		var userErrors []UserError
		if res != nil {
			userErrors = res.UserErrors
		}
		return nil, NewExternalError(userErrors, errCancelFailedMsg)
	}

	now := s.now()
	sub.Status = models.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}
	log.Infof("[Billing] Cancelled subscription for %s", sub.Shop)
	return sub, nil
}

// ApplyWebhook mirrors an app_subscriptions/update delivery into the local
// record. Period bounds are only overwritten when present. Deliveries for the
// pending charge settle the plan change; deliveries for any other charge
// return ErrReplacedSubscription.
func (s *Service) ApplyWebhook(ctx context.Context, shop string, in SubscriptionWebhook) (*models.Subscription, error) {
	sub, err := s.GetSubscription(ctx, shop)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(in.AdminGraphqlAPIID)
	switch {
	case id == "":
	case id == sub.PendingShopifySubscriptionID:
		return s.settlePending(sub, normalizeStatus(in.Status), in.CurrentPeriodStart, in.CurrentPeriodEnd)
	case sub.ShopifySubscriptionID != "" && id != sub.ShopifySubscriptionID:
		return nil, fmt.Errorf("%w: %s", ErrReplacedSubscription, id)
	}

	sub.Status = normalizeStatus(in.Status)
	if in.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = in.CurrentPeriodEnd
	}
	if in.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = in.CurrentPeriodStart
	}
	if sub.Status == models.SubscriptionStatusCancelled && sub.CancelledAt == nil {
		now := s.now()
		sub.CancelledAt = &now
	}
	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// settlePending resolves a parked plan change. An active charge becomes the
// current subscription with the new plan's caps; a declined, cancelled or
// expired one is dropped and the current plan stays as it is.
func (s *Service) settlePending(sub *models.Subscription, status string, start, end *time.Time) (*models.Subscription, error) {
	switch status {
	case models.SubscriptionStatusPending:
		return sub, nil
	case models.SubscriptionStatusActive:
	default:
		log.Infof("[Billing] Plan change of %s to %s ended as %s", sub.Shop, sub.PendingPlanID, status)
		sub.PendingPlanID = ""
		sub.PendingShopifySubscriptionID = ""
		if err := s.repo.SaveSubscription(sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	plan, ok := FindPlan(PlanID(sub.PendingPlanID))
	if !ok {
		return nil, ErrInvalidPlan
	}
	err := s.repo.Transaction(func(repo Repository) error {
		sub.PlanID = string(plan.ID)
		sub.PlanName = plan.Name
		sub.ShopifySubscriptionID = sub.PendingShopifySubscriptionID
		sub.PendingPlanID = ""
		sub.PendingShopifySubscriptionID = ""
		sub.Status = models.SubscriptionStatusActive
		sub.CancelledAt = nil
		if start != nil {
			sub.CurrentPeriodStart = start
		}
		if end != nil {
			sub.CurrentPeriodEnd = end
		}
		if err := repo.SaveSubscription(sub); err != nil {
			return err
		}
		limit := plan.Caps.UsageLimit(sub.ID)
		if err := repo.UpsertUsageLimit(limit); err != nil {
			return err
		}
		sub.UsageLimit = limit
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Billing] %s switched to %s (%s)", sub.Shop, plan.ID, sub.ShopifySubscriptionID)
	return sub, nil
}

// IsEntitled reports whether the shop's subscription status grants access.
func (s *Service) IsEntitled(ctx context.Context, shop string) (bool, error) {
	sub, err := s.GetSubscription(ctx, shop)
	if errors.Is(err, ErrNoSubscription) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isEntitlingStatus(sub.Status), nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return false, nil, errors.New("topic is required")
	}
	webhookID := strings.TrimSpace(in.WebhookID)
	if webhookID == "" {
		sum := sha256.Sum256([]byte(topic + "\n" + in.PayloadJSON))
		webhookID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Shop:           strings.TrimSpace(in.Shop),
		Topic:          topic,
		WebhookID:      webhookID,
		PayloadJSON:    in.PayloadJSON,
		SignatureValid: in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
