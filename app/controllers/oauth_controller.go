package controllers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/LingoFox/internal/pkg/oauth"
	"github.com/ManuelReschke/LingoFox/internal/pkg/session"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

// HandleOAuthCallback completes the install flow, stores the offline token and
// opens the app for the shop.
func (ac *AppController) HandleOAuthCallback(c *fiber.Ctx) error {
	shop := shopcontext.NormalizeShop(c.Query("shop"))
	if !shopcontext.IsValidShopDomain(shop) {
		return fiber.NewError(fiber.StatusBadRequest, oauth.ErrInvalidShop.Error())
	}

	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[OAuth] Install for %s failed: %v", shop, err)
		return fiber.NewError(fiber.StatusBadRequest, "OAuth failed: "+err.Error())
	}
	if ac.Installer == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Install is not configured")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if _, err := ac.Installer.Complete(ctx, shop, u.AccessToken, oauth.Scopes()); err != nil {
		return RespondError(c, err)
	}

	if session.GetSessionStore() != nil {
		_ = session.SetSessionValue(c, shopcontext.SessionKey, shop)
	}
	return c.Redirect("/app?shop="+url.QueryEscape(shop), fiber.StatusSeeOther)
}
