package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
	"github.com/ManuelReschke/LingoFox/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "None",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			// App Bridge fetches authenticate with a bearer session token.
			return strings.HasPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		},
	}
	if env.IsDev() {
		csrfConf.CookieSameSite = "Lax"
	}

	ac := h.app
	paid := middleware.RequireActiveSubscription(ac.Checker)

	group := app.Group("/app", cors.New(), middleware.ShopifySession(h.sessionConfig(false)), csrf.New(csrfConf))
	group.Get("/", ac.HandleDashboard)

	group.Get("/languages", ac.HandleLanguages)
	group.Post("/languages", paid, ac.HandleLanguagesPost)

	group.Get("/subscription/plans", ac.HandlePlans)
	group.Get("/subscription/checkout", ac.HandleCheckout)
	group.Post("/subscription/checkout", ac.HandleCheckoutPost)
	group.Get("/subscription/manage", ac.HandleManage)
	group.Post("/subscription/manage", ac.HandleManagePost)
	group.Get("/subscription/success", ac.HandleSuccess)

	group.Get("/translations", ac.HandleTranslations)
	group.Get("/translations/select", ac.HandleSelect)
	group.Post("/translations/backup", paid, ac.HandleBackup)
	group.Get("/translations/:resourceType/:resourceId", ac.HandleEditor)
	group.Post("/translations/:resourceType/:resourceId", paid, ac.HandleEditorPost)
}
