package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/LingoFox/internal/pkg/oauth"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	ac := h.app

	app.Get("/healthz", ac.HandleHealth)

	// Shopify OAuth install
	app.Get("/auth/:provider", oauth.BeginInstall)
	app.Get("/auth/:provider/callback", ac.HandleOAuthCallback)

	// Shopify webhooks (no CSRF, HMAC-verified in controller)
	app.Post("/webhooks/app_subscriptions/update", ac.HandleSubscriptionWebhook)
	app.Post("/webhooks/products/update", ac.HandleProductsWebhook)
	app.Post("/webhooks/app/uninstalled", ac.HandleUninstalledWebhook)
}
