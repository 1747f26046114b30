package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

const PlansPath = "/app/subscription/plans"

// SubscriptionChecker is satisfied by *entitlements.Checker.
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, shop string) (bool, error)
}

// RequireActiveSubscription sends shops without an active subscription to the
// plan catalog. API requests get 403 JSON instead.
func RequireActiveSubscription(checker SubscriptionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shop := shopcontext.Shop(c)
		if shop == "" {
			return fiber.NewError(fiber.StatusUnauthorized, ErrMissingSessionToken.Error())
		}
		ok, err := checker.HasActiveSubscription(c.UserContext(), shop)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if ok {
			return c.Next()
		}
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No active subscription"})
		}
		return c.Redirect(PlansPath, fiber.StatusSeeOther)
	}
}
