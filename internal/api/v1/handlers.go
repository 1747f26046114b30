package apiv1

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/LingoFox/app/controllers"
	"github.com/ManuelReschke/LingoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/LingoFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

// APIServer implements ServerInterface on top of the app controller's services.
type APIServer struct {
	app *controllers.AppController
}

func NewAPIServer(ac *controllers.AppController) *APIServer {
	return &APIServer{app: ac}
}

func apiContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), 10*time.Second)
}

func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetUsage returns the month's counters, the plan caps and the limit checks.
func (s *APIServer) GetUsage(c *fiber.Ctx) error {
	shop := shopcontext.Shop(c)
	ctx, cancel := apiContext(c)
	defer cancel()

	stats, err := s.app.Tracker.Stats(ctx, shop)
	if err != nil {
		return controllers.RespondError(c, err)
	}
	checks, err := s.app.Checker.CheckUsageLimits(ctx, shop)
	if err != nil {
		return controllers.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"usage":  stats.Usage,
		"limits": stats.Limits,
		"checks": checks,
	})
}

func (s *APIServer) GetEntitlement(c *fiber.Ctx, feature string) error {
	f, err := entitlements.ParseFeature(feature)
	if err != nil {
		return controllers.RespondError(c, err)
	}
	ctx, cancel := apiContext(c)
	defer cancel()

	allowed, err := s.app.Checker.CheckFeatureAccess(ctx, shopcontext.Shop(c), f)
	if err != nil {
		return controllers.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"feature": f, "allowed": allowed})
}

func (s *APIServer) GetLanguages(c *fiber.Ctx) error {
	ctx, cancel := apiContext(c)
	defer cancel()

	langs, err := s.app.Languages.List(ctx, shopcontext.Shop(c))
	if err != nil {
		return controllers.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"languages": langs})
}

func (s *APIServer) GetTranslationStats(c *fiber.Ctx) error {
	ctx, cancel := apiContext(c)
	defer cancel()

	stats, err := s.app.Translations.Stats(ctx, shopcontext.Shop(c))
	if err != nil {
		return controllers.RespondError(c, err)
	}
	return c.JSON(stats)
}

// GetJob reports a background job. Jobs of other shops are not found.
func (s *APIServer) GetJob(c *fiber.Ctx, id string) error {
	if s.app.Jobs == nil {
		return controllers.RespondError(c, jobqueue.ErrJobNotFound)
	}
	ctx, cancel := apiContext(c)
	defer cancel()

	job, err := s.app.Jobs.GetShopJob(ctx, shopcontext.Shop(c), id)
	if err != nil {
		return controllers.RespondError(c, err)
	}
	return c.JSON(job)
}
