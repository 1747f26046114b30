package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/models"
)

const testShop = "demo.myshopify.com"

type fakeGateway struct {
	createResult *CreateSubscriptionResult
	createErr    error
	lastCreate   CreateSubscriptionRequest

	remote    *AppSubscription
	getErr    error
	cancelRes *CancelSubscriptionResult
	cancelErr error
}

func (f *fakeGateway) CreateAppSubscription(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResult, error) {
	f.lastCreate = req
	return f.createResult, f.createErr
}

func (f *fakeGateway) GetAppSubscription(ctx context.Context, id string) (*AppSubscription, error) {
	return f.remote, f.getErr
}

func (f *fakeGateway) CancelAppSubscription(ctx context.Context, id string) (*CancelSubscriptionResult, error) {
	return f.cancelRes, f.cancelErr
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels...))
	return db
}

func newTestService(t *testing.T, now time.Time) *Service {
	return NewServiceFromDB(setupTestDB(t)).WithClock(func() time.Time { return now })
}

func acceptedCheckout(id string) *fakeGateway {
	return &fakeGateway{createResult: &CreateSubscriptionResult{
		Subscription:    &AppSubscription{ID: id, Status: "PENDING"},
		ConfirmationURL: "https://demo.myshopify.com/admin/charges/confirm",
	}}
}

func TestCreateSubscription(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()
	gw := acceptedCheckout("gid://shopify/AppSubscription/1")

	sub, url, err := svc.CreateSubscription(ctx, gw, testShop, PlanBasic, "https://app.example.com/app/subscription/success")
	require.NoError(t, err)
	assert.Equal(t, "https://demo.myshopify.com/admin/charges/confirm", url)
	assert.Equal(t, models.SubscriptionStatusPending, sub.Status)
	assert.Equal(t, "basic", sub.PlanID)
	assert.Equal(t, "Basic", sub.PlanName)
	require.NotNil(t, sub.TrialEndsAt)
	assert.True(t, sub.TrialEndsAt.Equal(now.Add(14*24*time.Hour)))

	assert.Equal(t, "Basic", gw.lastCreate.Name)
	assert.Equal(t, 9.99, gw.lastCreate.Price)
	assert.Equal(t, "EVERY_30_DAYS", gw.lastCreate.Interval)
	assert.Equal(t, 14, gw.lastCreate.TrialDays)
	assert.False(t, gw.lastCreate.Test)

	stored, err := svc.GetSubscription(ctx, testShop)
	require.NoError(t, err)
	require.NotNil(t, stored.UsageLimit)
	assert.Equal(t, 2, stored.UsageLimit.MaxLanguages)
	assert.Equal(t, 100, stored.UsageLimit.MaxTranslations)
	assert.False(t, stored.UsageLimit.AutoTranslate)
}

func TestCreateSubscriptionTestCharges(t *testing.T) {
	svc := newTestService(t, time.Now()).WithTestCharges(true)
	gw := acceptedCheckout("gid://shopify/AppSubscription/9")

	_, _, err := svc.CreateSubscription(context.Background(), gw, testShop, PlanPro, "https://app.example.com/return")
	require.NoError(t, err)
	assert.True(t, gw.lastCreate.Test)
	assert.Equal(t, "https://app.example.com/return", gw.lastCreate.ReturnURL)
}

func activeBasic(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	_, _, err := svc.CreateSubscription(ctx, acceptedCheckout("gid://shopify/AppSubscription/1"), testShop, PlanBasic, "")
	require.NoError(t, err)
	_, err = svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{AdminGraphqlAPIID: "gid://shopify/AppSubscription/1", Status: "ACTIVE"})
	require.NoError(t, err)
}

func TestPlanChangeWaitsForConfirmation(t *testing.T) {
	svc := newTestService(t, time.Now())
	ctx := context.Background()
	activeBasic(t, svc)

	_, _, err := svc.CreateSubscription(ctx, acceptedCheckout("gid://shopify/AppSubscription/2"), testShop, PlanEnterprise, "")
	require.NoError(t, err)

	stored, err := svc.GetSubscription(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, "basic", stored.PlanID)
	assert.Equal(t, "gid://shopify/AppSubscription/1", stored.ShopifySubscriptionID)
	assert.Equal(t, "enterprise", stored.PendingPlanID)
	assert.Equal(t, "gid://shopify/AppSubscription/2", stored.PendingShopifySubscriptionID)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	require.NotNil(t, stored.UsageLimit)
	assert.Equal(t, 2, stored.UsageLimit.MaxLanguages)
	assert.False(t, stored.UsageLimit.PrioritySupport)

	sub, err := svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{AdminGraphqlAPIID: "gid://shopify/AppSubscription/2", Status: "ACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, "enterprise", sub.PlanID)
	assert.Empty(t, sub.PendingPlanID)

	stored, err = svc.GetSubscription(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, "enterprise", stored.PlanID)
	assert.Equal(t, "Enterprise", stored.PlanName)
	assert.Equal(t, "gid://shopify/AppSubscription/2", stored.ShopifySubscriptionID)
	assert.Empty(t, stored.PendingShopifySubscriptionID)
	require.NotNil(t, stored.UsageLimit)
	assert.Equal(t, Unlimited, stored.UsageLimit.MaxLanguages)
	assert.True(t, stored.UsageLimit.PrioritySupport)

	var limits int64
	require.NoError(t, svc.repo.(*gormRepository).db.Model(&models.UsageLimit{}).Count(&limits).Error)
	assert.Equal(t, int64(1), limits)

	// Shopify cancels the replaced charge after the switch.
	_, err = svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{AdminGraphqlAPIID: "gid://shopify/AppSubscription/1", Status: "CANCELLED"})
	assert.ErrorIs(t, err, ErrReplacedSubscription)

	entitled, err := svc.IsEntitled(ctx, testShop)
	require.NoError(t, err)
	assert.True(t, entitled)
}

func TestAbandonedPlanChangeKeepsCurrentPlan(t *testing.T) {
	svc := newTestService(t, time.Now())
	ctx := context.Background()
	activeBasic(t, svc)

	_, _, err := svc.CreateSubscription(ctx, acceptedCheckout("gid://shopify/AppSubscription/2"), testShop, PlanEnterprise, "")
	require.NoError(t, err)

	sub, err := svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{AdminGraphqlAPIID: "gid://shopify/AppSubscription/2", Status: "DECLINED"})
	require.NoError(t, err)
	assert.Equal(t, "basic", sub.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Empty(t, sub.PendingPlanID)

	stored, err := svc.GetSubscription(ctx, testShop)
	require.NoError(t, err)
	assert.Empty(t, stored.PendingShopifySubscriptionID)
	assert.Equal(t, 2, stored.UsageLimit.MaxLanguages)
}

func TestStatusPollSettlesPlanChange(t *testing.T) {
	svc := newTestService(t, time.Now())
	ctx := context.Background()
	activeBasic(t, svc)

	_, _, err := svc.CreateSubscription(ctx, acceptedCheckout("gid://shopify/AppSubscription/2"), testShop, PlanPro, "")
	require.NoError(t, err)

	periodEnd := time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)
	gw := &fakeGateway{remote: &AppSubscription{ID: "gid://shopify/AppSubscription/2", Status: "ACTIVE", CurrentPeriodEnd: &periodEnd}}
	remote, err := svc.CheckSubscriptionStatus(ctx, gw, testShop)
	require.NoError(t, err)
	require.NotNil(t, remote)

	stored, err := svc.GetSubscription(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, "pro", stored.PlanID)
	assert.Equal(t, "gid://shopify/AppSubscription/2", stored.ShopifySubscriptionID)
	assert.Equal(t, 5, stored.UsageLimit.MaxLanguages)
	require.NotNil(t, stored.CurrentPeriodEnd)
	assert.True(t, stored.CurrentPeriodEnd.Equal(periodEnd))
}

func TestCreateSubscriptionFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid plan", func(t *testing.T) {
		svc := newTestService(t, time.Now())
		_, _, err := svc.CreateSubscription(ctx, acceptedCheckout("x"), testShop, "gold", "")
		assert.ErrorIs(t, err, ErrInvalidPlan)
		assert.Equal(t, "Invalid plan", err.Error())
	})

	t.Run("user errors are joined and nothing is stored", func(t *testing.T) {
		svc := newTestService(t, time.Now())
		gw := &fakeGateway{createResult: &CreateSubscriptionResult{UserErrors: []UserError{
			{Message: "Return URL is invalid"},
			{Message: "Price must be positive"},
		}}}
		_, _, err := svc.CreateSubscription(ctx, gw, testShop, PlanPro, "")
		var ext *ExternalError
		require.ErrorAs(t, err, &ext)
		assert.Equal(t, "Return URL is invalid, Price must be positive", err.Error())

		_, err = svc.GetSubscription(ctx, testShop)
		assert.ErrorIs(t, err, ErrNoSubscription)
	})

	t.Run("no subscription and no user errors", func(t *testing.T) {
		svc := newTestService(t, time.Now())
		gw := &fakeGateway{createResult: &CreateSubscriptionResult{}}
		_, _, err := svc.CreateSubscription(ctx, gw, testShop, PlanPro, "")
		assert.EqualError(t, err, "Failed to create subscription")
	})

	t.Run("transport error", func(t *testing.T) {
		svc := newTestService(t, time.Now())
		gw := &fakeGateway{createErr: errors.New("connection reset")}
		_, _, err := svc.CreateSubscription(ctx, gw, testShop, PlanPro, "")
		assert.EqualError(t, err, "connection reset")
	})
}

func TestCheckSubscriptionStatus(t *testing.T) {
	svc := newTestService(t, time.Now())
	ctx := context.Background()

	remote, err := svc.CheckSubscriptionStatus(ctx, &fakeGateway{}, testShop)
	require.NoError(t, err)
	assert.Nil(t, remote)

	_, _, err = svc.CreateSubscription(ctx, acceptedCheckout("gid://shopify/AppSubscription/1"), testShop, PlanPro, "")
	require.NoError(t, err)

	periodEnd := time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)
	gw := &fakeGateway{remote: &AppSubscription{ID: "gid://shopify/AppSubscription/1", Status: "ACTIVE", CurrentPeriodEnd: &periodEnd}}
	remote, err = svc.CheckSubscriptionStatus(ctx, gw, testShop)
	require.NoError(t, err)
	require.NotNil(t, remote)

	stored, err := svc.GetSubscription(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	require.NotNil(t, stored.CurrentPeriodEnd)
	assert.True(t, stored.CurrentPeriodEnd.Equal(periodEnd))
}

func TestCancelSubscription(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	_, err := svc.CancelSubscription(ctx, &fakeGateway{}, testShop)
	assert.ErrorIs(t, err, ErrNoSubscription)

	_, _, err = svc.CreateSubscription(ctx, acceptedCheckout("gid://shopify/AppSubscription/1"), testShop, PlanPro, "")
	require.NoError(t, err)
	_, err = svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{Status: "ACTIVE"})
	require.NoError(t, err)

	t.Run("remote failure leaves record unchanged", func(t *testing.T) {
		gw := &fakeGateway{cancelRes: &CancelSubscriptionResult{UserErrors: []UserError{{Message: "Subscription already cancelled"}}}}
		_, err := svc.CancelSubscription(ctx, gw, testShop)
		assert.EqualError(t, err, "Subscription already cancelled")

		stored, err := svc.GetSubscription(ctx, testShop)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
		assert.Nil(t, stored.CancelledAt)
	})

	t.Run("success marks cancelled", func(t *testing.T) {
		gw := &fakeGateway{cancelRes: &CancelSubscriptionResult{Subscription: &AppSubscription{ID: "gid://shopify/AppSubscription/1", Status: "CANCELLED"}}}
		sub, err := svc.CancelSubscription(ctx, gw, testShop)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionStatusCancelled, sub.Status)
		require.NotNil(t, sub.CancelledAt)
		assert.True(t, sub.CancelledAt.Equal(now))

		entitled, err := svc.IsEntitled(ctx, testShop)
		require.NoError(t, err)
		assert.False(t, entitled)
	})
}

func TestApplyWebhookRenewal(t *testing.T) {
	svc := newTestService(t, time.Now())
	ctx := context.Background()

	_, err := svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{Status: "ACTIVE"})
	assert.ErrorIs(t, err, ErrNoSubscription)

	_, _, err = svc.CreateSubscription(ctx, acceptedCheckout("gid://shopify/AppSubscription/1"), testShop, PlanBasic, "")
	require.NoError(t, err)

	firstEnd := time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)
	sub, err := svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{Status: "ACTIVE", CurrentPeriodEnd: &firstEnd})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)

	secondStart := firstEnd
	secondEnd := firstEnd.Add(30 * 24 * time.Hour)
	sub, err = svc.ApplyWebhook(ctx, testShop, SubscriptionWebhook{Status: "", CurrentPeriodStart: &secondStart, CurrentPeriodEnd: &secondEnd})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.CurrentPeriodEnd.Equal(secondEnd))
	assert.True(t, sub.CurrentPeriodStart.Equal(secondStart))

	entitled, err := svc.IsEntitled(ctx, testShop)
	require.NoError(t, err)
	assert.True(t, entitled)
}

func TestRecordWebhookEventIsIdempotent(t *testing.T) {
	svc := newTestService(t, time.Now())
	ctx := context.Background()

	in := WebhookEventInput{Shop: testShop, Topic: "app_subscriptions/update", WebhookID: "wh-1", PayloadJSON: `{}`, SignatureValid: true}
	created, stored, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	created, again, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)

	require.NoError(t, svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("boom")))
	assert.Error(t, svc.MarkWebhookProcessed(ctx, 0, nil))

	created, hashed, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{Topic: "products/update", PayloadJSON: `{"id":1}`})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, hashed.WebhookID, "hash:")

	_, _, err = svc.RecordWebhookEvent(ctx, WebhookEventInput{PayloadJSON: `{}`})
	assert.Error(t, err)
}
