package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

const (
	TopicSubscriptionUpdate = "app_subscriptions/update"
	TopicProductsUpdate     = "products/update"
	TopicAppUninstalled     = "app/uninstalled"
)

const webhookTimeout = 15 * time.Second

// errIgnoredWebhook marks deliveries that are acknowledged without effect.
var errIgnoredWebhook = errors.New("ignored")

type webhookProcessor func(ctx context.Context, shop string, body []byte) error

// handleWebhook verifies and records a Shopify delivery, then runs process
// once per X-Shopify-Webhook-Id. Deliveries whose earlier attempt failed are
// processed again.
func (ac *AppController) handleWebhook(c *fiber.Ctx, topic string, process webhookProcessor) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	shop := shopcontext.NormalizeShop(c.Get("X-Shopify-Shop-Domain"))
	webhookID := strings.TrimSpace(c.Get("X-Shopify-Webhook-Id"))
	signature := strings.TrimSpace(c.Get("X-Shopify-Hmac-Sha256"))

	if !billing.VerifyShopifyWebhookSignature(rawBody, signature, ac.APISecret) {
		log.Warnf("[Webhook] Invalid signature for %s from %q", topic, shop)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if !shopcontext.IsValidShopDomain(shop) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_shop"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	created, stored, err := ac.Billing.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Shop:           shop,
		Topic:          topic,
		WebhookID:      webhookID,
		PayloadJSON:    string(rawBody),
		SignatureValid: true,
	})
	if err != nil {
		log.Errorf("[Webhook] Persisting %s for %s failed: %v", topic, shop, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		return c.JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	perr := process(ctx, shop, rawBody)
	if errors.Is(perr, errIgnoredWebhook) {
		_ = ac.Billing.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.JSON(fiber.Map{"ok": true, "ignored": true})
	}
	if markErr := ac.Billing.MarkWebhookProcessed(ctx, stored.ID, perr); markErr != nil {
		log.Warnf("[Webhook] Marking %s processed failed: %v", stored.WebhookID, markErr)
	}
	if perr != nil {
		log.Errorf("[Webhook] Processing %s for %s failed: %v", topic, shop, perr)
		return RespondError(c, perr)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleSubscriptionWebhook mirrors app_subscriptions/update into the stored
// subscription.
func (ac *AppController) HandleSubscriptionWebhook(c *fiber.Ctx) error {
	return ac.handleWebhook(c, TopicSubscriptionUpdate, func(ctx context.Context, shop string, body []byte) error {
		in, err := billing.ParseSubscriptionWebhook(body)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid_payload")
		}
		sub, err := ac.Billing.ApplyWebhook(ctx, shop, in)
		if errors.Is(err, billing.ErrNoSubscription) {
			log.Warnf("[Billing] Subscription webhook for %s without local subscription", shop)
			return errIgnoredWebhook
		}
		if errors.Is(err, billing.ErrReplacedSubscription) {
			log.Infof("[Billing] Ignoring webhook for %s: %v", shop, err)
			return errIgnoredWebhook
		}
		if err != nil {
			return err
		}
		log.Infof("[Billing] Subscription of %s is now %s", shop, sub.Status)
		return nil
	})
}

func (ac *AppController) HandleProductsWebhook(c *fiber.Ctx) error {
	return ac.handleWebhook(c, TopicProductsUpdate, func(ctx context.Context, shop string, body []byte) error {
		log.Infof("[Webhook] products/update for %s (%d bytes)", shop, len(body))
		return nil
	})
}

func (ac *AppController) HandleUninstalledWebhook(c *fiber.Ctx) error {
	return ac.handleWebhook(c, TopicAppUninstalled, func(ctx context.Context, shop string, body []byte) error {
		if ac.Installer == nil {
			return errIgnoredWebhook
		}
		return ac.Installer.Uninstall(ctx, shop)
	})
}
