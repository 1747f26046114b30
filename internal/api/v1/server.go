package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// Pong is the body of GET /ping.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface lists the operations of public/docs/v1/openapi.yml.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /usage)
	GetUsage(c *fiber.Ctx) error
	// (GET /entitlements/{feature})
	GetEntitlement(c *fiber.Ctx, feature string) error
	// (GET /languages)
	GetLanguages(c *fiber.Ctx) error
	// (GET /translations/stats)
	GetTranslationStats(c *fiber.Ctx) error
	// (GET /jobs/{id})
	GetJob(c *fiber.Ctx, id string) error
}

// Route is one registered operation, exported for the docs check.
type Route struct {
	Method string
	Path   string
}

// Routes are the operations RegisterHandlers mounts, in OpenAPI path syntax.
var Routes = []Route{
	{fiber.MethodGet, "/ping"},
	{fiber.MethodGet, "/usage"},
	{fiber.MethodGet, "/entitlements/{feature}"},
	{fiber.MethodGet, "/languages"},
	{fiber.MethodGet, "/translations/stats"},
	{fiber.MethodGet, "/jobs/{id}"},
}

// ServerInterfaceWrapper converts path parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetEntitlement(c *fiber.Ctx) error {
	feature := c.Params("feature")
	if feature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "feature missing"})
	}
	return w.Handler.GetEntitlement(c, feature)
}

func (w *ServerInterfaceWrapper) GetJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id missing"})
	}
	return w.Handler.GetJob(c, id)
}

// RegisterHandlers mounts si on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	w := &ServerInterfaceWrapper{Handler: si}

	router.Get("/ping", si.GetPing)
	router.Get("/usage", si.GetUsage)
	router.Get("/entitlements/:feature", w.GetEntitlement)
	router.Get("/languages", si.GetLanguages)
	router.Get("/translations/stats", si.GetTranslationStats)
	router.Get("/jobs/:id", w.GetJob)
}
