package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

// currentSubscription returns the stored subscription, or nil when the shop
// has none.
func (ac *AppController) currentSubscription(c *fiber.Ctx, shop string) (*models.Subscription, error) {
	sub, err := ac.Billing.GetSubscription(c.UserContext(), shop)
	if errors.Is(err, billing.ErrNoSubscription) {
		return nil, nil
	}
	return sub, err
}

func (ac *AppController) HandleDashboard(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	sub, err := ac.currentSubscription(c, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	stats, err := ac.Translations.Stats(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	langs, err := ac.Languages.List(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	usageStats, err := ac.Tracker.Stats(ctx, shop)
	if err != nil {
		return ac.renderError(c, err)
	}

	return ac.render(c, "dashboard", "Dashboard", fiber.Map{
		"Shop":         shop,
		"Subscription": sub,
		"Stats":        stats,
		"Languages":    langs,
		"Usage":        usageStats,
	})
}
