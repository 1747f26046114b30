package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/oauth"
	"github.com/ManuelReschke/LingoFox/internal/pkg/security"
)

const subscriptionPayload = `{"app_subscription":{"admin_graphql_api_id":"gid://shopify/AppSubscription/1","name":"Basic","status":"CANCELLED","current_period_end":"2026-11-01T00:00:00Z"}}`

func webhookRequest(path, webhookID, body, secret string) *http.Request {
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Shopify-Shop-Domain", testShop)
	req.Header.Set("X-Shopify-Webhook-Id", webhookID)
	req.Header.Set("X-Shopify-Hmac-Sha256", billing.SignShopifyWebhook([]byte(body), secret))
	return req
}

func TestSubscriptionWebhook(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanBasic)

	resp, body := e.do(t, webhookRequest("/webhooks/app_subscriptions/update", "wh-1", subscriptionPayload, testSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	out := decodeJSON(t, body)
	assert.Equal(t, true, out["ok"])
	assert.Nil(t, out["duplicate"])

	var sub models.Subscription
	require.NoError(t, e.db.Where("shop = ?", testShop).First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, sub.Status)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, 2026, sub.CurrentPeriodEnd.Year())

	resp, body = e.do(t, webhookRequest("/webhooks/app_subscriptions/update", "wh-1", subscriptionPayload, testSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeJSON(t, body)["duplicate"])

	var events int64
	require.NoError(t, e.db.Model(&models.WebhookEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestSubscriptionWebhookForReplacedCharge(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanBasic)

	payload := strings.Replace(subscriptionPayload, "AppSubscription/1", "AppSubscription/0", 1)
	resp, body := e.do(t, webhookRequest("/webhooks/app_subscriptions/update", "wh-8", payload, testSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, decodeJSON(t, body)["ignored"])

	sub := loadSubscription(t, e)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Nil(t, sub.CancelledAt)
}

func TestSubscriptionWebhookRejectsBadSignature(t *testing.T) {
	e := newTestEnv(t)
	seedSubscription(t, e.db, billing.PlanBasic)

	resp, _ := e.do(t, webhookRequest("/webhooks/app_subscriptions/update", "wh-2", subscriptionPayload, "wrong-secret"))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var events int64
	require.NoError(t, e.db.Model(&models.WebhookEvent{}).Count(&events).Error)
	assert.Zero(t, events)

	var sub models.Subscription
	require.NoError(t, e.db.Where("shop = ?", testShop).First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
}

func TestSubscriptionWebhookEdgeCases(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, webhookRequest("/webhooks/app_subscriptions/update", "wh-3", subscriptionPayload, testSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeJSON(t, body)["ignored"])

	resp, _ = e.do(t, webhookRequest("/webhooks/app_subscriptions/update", "wh-4", "{not json", testSecret))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var event models.WebhookEvent
	require.NoError(t, e.db.Where("webhook_id = ?", "wh-4").First(&event).Error)
	assert.NotEmpty(t, event.ProcessingError)

	req := webhookRequest("/webhooks/products/update", "wh-5", `{}`, testSecret)
	req.Header.Set("X-Shopify-Shop-Domain", "example.com")
	resp, _ = e.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProductsWebhook(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.do(t, webhookRequest("/webhooks/products/update", "wh-6", `{"id":1}`, testSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeJSON(t, body)["ok"])
}

func TestUninstalledWebhook(t *testing.T) {
	e := newTestEnv(t)
	cipher, err := security.NewTokenCipher(strings.Repeat("ab", 32))
	require.NoError(t, err)
	sessions := repository.NewShopSessionRepository(e.db)
	e.ac.Installer = oauth.NewInstaller(sessions, cipher)
	_, err = e.ac.Installer.Complete(context.Background(), testShop, "shpat_token", []string{"read_products"})
	require.NoError(t, err)

	resp, _ := e.do(t, webhookRequest("/webhooks/app/uninstalled", "wh-7", `{"id":1}`, testSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	sess, err := sessions.GetByShop(testShop)
	require.NoError(t, err)
	assert.False(t, sess.IsInstalled())
	assert.NotNil(t, sess.UninstalledAt)
}
