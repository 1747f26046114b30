package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/LingoFox/app/controllers"
	apiv1 "github.com/ManuelReschke/LingoFox/internal/api/v1"
	"github.com/ManuelReschke/LingoFox/internal/pkg/middleware"
)

const pingPath = "/api/v1/ping"

type ApiRouter struct {
	app *controllers.AppController
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from LingoFox api",
		})
	})

	// API v1 routes, everything but ping needs a session token
	auth := middleware.ShopifySession(HttpRouter{app: h.app}.sessionConfig(true))
	v1 := api.Group("/v1", func(c *fiber.Ctx) error {
		if c.Path() == pingPath {
			return c.Next()
		}
		return auth(c)
	})
	apiv1.RegisterHandlers(v1, apiv1.NewAPIServer(h.app))
}

func NewApiRouter(ac *controllers.AppController) *ApiRouter {
	return &ApiRouter{app: ac}
}
