package controllers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LingoFox/app/models"
	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

const successPath = "/app/subscription/success"

func (ac *AppController) HandlePlans(c *fiber.Ctx) error {
	sub, err := ac.currentSubscription(c, shopcontext.Shop(c))
	if err != nil {
		return ac.renderError(c, err)
	}
	return ac.render(c, "plans", "Plans", fiber.Map{
		"Plans":        billing.Plans(),
		"Subscription": sub,
	})
}

func (ac *AppController) HandleCheckout(c *fiber.Ctx) error {
	plan, ok := billing.FindPlan(billing.ParsePlanID(c.Query("plan")))
	if !ok {
		return ac.renderError(c, fiber.NewError(fiber.StatusNotFound, "Plan not found"))
	}
	return ac.render(c, "checkout", "Checkout", fiber.Map{"Plan": plan})
}

// HandleCheckoutPost creates the Shopify charge and sends the merchant to its
// confirmation page.
func (ac *AppController) HandleCheckoutPost(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	planID := billing.ParsePlanID(c.FormValue("planId"))
	if planID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": billing.ErrInvalidPlan.Error()})
	}

	gw, err := ac.client(ctx, shop)
	if err != nil {
		return RespondError(c, err)
	}
	returnURL := ac.PublicURL + successPath + "?shop=" + url.QueryEscape(shop)
	_, confirmationURL, err := ac.Billing.CreateSubscription(ctx, gw, shop, planID, returnURL)
	if err != nil {
		return RespondError(c, err)
	}
	return c.Redirect(confirmationURL, fiber.StatusSeeOther)
}

// refreshSubscription polls Shopify for the current state. Failures are
// logged and the stored state is shown.
func (ac *AppController) refreshSubscription(c *fiber.Ctx, shop string, sub *models.Subscription) *models.Subscription {
	if sub == nil || sub.ShopifySubscriptionID == "" {
		return sub
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	gw, err := ac.client(ctx, shop)
	if err == nil {
		_, err = ac.Billing.CheckSubscriptionStatus(ctx, gw, shop)
	}
	if err != nil {
		log.Warnf("[Billing] Status refresh for %s failed: %v", shop, err)
		return sub
	}
	if fresh, err := ac.currentSubscription(c, shop); err == nil && fresh != nil {
		return fresh
	}
	return sub
}

func (ac *AppController) HandleManage(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	sub, err := ac.currentSubscription(c, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	return ac.render(c, "manage", "Subscription", fiber.Map{
		"Subscription": ac.refreshSubscription(c, shop, sub),
	})
}

func (ac *AppController) HandleManagePost(c *fiber.Ctx) error {
	if c.FormValue("action") != "cancel" {
		return c.JSON(fiber.Map{"success": false})
	}

	shop := shopcontext.Shop(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	gw, err := ac.client(ctx, shop)
	if err != nil {
		return RespondError(c, err)
	}
	if _, err := ac.Billing.CancelSubscription(ctx, gw, shop); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Subscription cancelled"})
}

func (ac *AppController) HandleSuccess(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	sub, err := ac.currentSubscription(c, shop)
	if err != nil {
		return ac.renderError(c, err)
	}
	return ac.render(c, "success", "Subscription confirmed", fiber.Map{
		"Subscription": ac.refreshSubscription(c, shop, sub),
	})
}
