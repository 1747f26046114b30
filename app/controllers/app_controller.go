package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/internal/pkg/billing"
	"github.com/ManuelReschke/LingoFox/internal/pkg/contentsync"
	"github.com/ManuelReschke/LingoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/LingoFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/LingoFox/internal/pkg/languages"
	"github.com/ManuelReschke/LingoFox/internal/pkg/markets"
	"github.com/ManuelReschke/LingoFox/internal/pkg/oauth"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopify"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shoplock"
	"github.com/ManuelReschke/LingoFox/internal/pkg/translations"
	"github.com/ManuelReschke/LingoFox/internal/pkg/translator"
	"github.com/ManuelReschke/LingoFox/internal/pkg/usage"
)

const requestTimeout = 20 * time.Second

// ShopClient is the Admin API surface used by the app pages.
type ShopClient interface {
	billing.Gateway
	contentsync.ContentUpdater
	markets.Fetcher
	FetchResource(ctx context.Context, resourceType, id string) (*shopify.Resource, error)
	ListResources(ctx context.Context, resourceType string, limit int) ([]shopify.Resource, error)
}

// ClientSource returns the Admin API client of an installed shop.
type ClientSource func(ctx context.Context, shop string) (ShopClient, error)

func ResolverSource(r *shopify.Resolver) ClientSource {
	return func(ctx context.Context, shop string) (ShopClient, error) {
		c, err := r.ClientFor(ctx, shop)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Jobs is the part of the job queue the controllers use.
type Jobs interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, shop string, payload map[string]interface{}) (*jobqueue.Job, error)
	GetShopJob(ctx context.Context, shop, jobID string) (*jobqueue.Job, error)
}

// AppController serves the embedded app pages and the Shopify webhooks.
type AppController struct {
	DB           *gorm.DB
	Billing      *billing.Service
	Tracker      *usage.Tracker
	Checker      *entitlements.Checker
	Languages    *languages.Service
	Translations *translations.Service
	Markets      *markets.Service
	Syncer       *contentsync.Syncer

	Installer *oauth.Installer
	Clients   ClientSource
	Jobs      Jobs

	// MarketsSyncTTL throttles market syncs through the cache. Zero syncs on
	// every visit of the select page.
	MarketsSyncTTL time.Duration

	APIKey    string
	APISecret string
	PublicURL string
}

// NewAppController builds the domain services on db. Clients, Jobs and
// Installer are attached by the caller.
func NewAppController(db *gorm.DB, locker shoplock.Locker, provider translator.Provider) *AppController {
	tracker := usage.NewTracker(db)
	checker := entitlements.NewChecker(db, tracker)
	return &AppController{
		DB:           db,
		Billing:      billing.NewServiceFromDB(db),
		Tracker:      tracker,
		Checker:      checker,
		Languages:    languages.NewService(db, checker, tracker, locker),
		Translations: translations.NewService(db, checker, tracker, locker, provider),
		Markets:      markets.NewService(db),
		Syncer:       contentsync.NewSyncer(db),
	}
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func (ac *AppController) client(ctx context.Context, shop string) (ShopClient, error) {
	if ac.Clients == nil {
		return nil, shopify.ErrNotConfigured
	}
	return ac.Clients(ctx, shop)
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	var (
		validationErrs validator.ValidationErrors
		limitErr       *entitlements.LimitError
		externalErr    *billing.ExternalError
		fiberErr       *fiber.Error
	)
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErrs),
		errors.As(err, &limitErr),
		errors.As(err, &externalErr),
		errors.Is(err, billing.ErrInvalidPlan),
		errors.Is(err, billing.ErrShopRequired),
		errors.Is(err, languages.ErrDefaultLanguage),
		errors.Is(err, languages.ErrDefaultRequired),
		errors.Is(err, languages.ErrLanguageExists),
		errors.Is(err, translations.ErrFeatureUnavailable),
		errors.Is(err, translations.ErrEmptySourceText),
		errors.Is(err, shopify.ErrUnsupportedResource),
		errors.Is(err, entitlements.ErrUnknownFeature),
		errors.Is(err, oauth.ErrInvalidShop),
		errors.Is(err, jobqueue.ErrUnknownJobType),
		errors.Is(err, jobqueue.ErrInvalidJobInput):
		return fiber.StatusBadRequest
	case errors.Is(err, shopify.ErrShopNotInstalled):
		return fiber.StatusUnauthorized
	case errors.Is(err, languages.ErrLanguageNotFound),
		errors.Is(err, translations.ErrTranslationNotFound),
		errors.Is(err, shopify.ErrResourceNotFound),
		errors.Is(err, billing.ErrNoSubscription),
		errors.Is(err, jobqueue.ErrJobNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, shoplock.ErrLockTimeout):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorMessage(err error, status int) string {
	if status == fiber.StatusInternalServerError {
		return "Internal server error"
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return "Invalid " + strings.ToLower(fe.Field()) + ": " + fe.Tag()
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Message
	}
	return err.Error()
}

// RespondError writes err as JSON {error} with the mapped status.
func RespondError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Errorf("[App] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": errorMessage(err, status)})
}

// renderError renders the error page with the mapped status.
func (ac *AppController) renderError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Errorf("[App] %s %s: %v", c.Method(), c.Path(), err)
	}
	return ac.render(c.Status(status), "error", errorMessage(err, status), fiber.Map{"Message": errorMessage(err, status)})
}

func (ac *AppController) render(c *fiber.Ctx, view, title string, data fiber.Map) error {
	data["Title"] = title
	data["APIKey"] = ac.APIKey
	data["Flash"] = flash.Get(c)
	data["CSRF"], _ = c.Locals("csrf").(string)
	return c.Render(view, data, "layouts/main")
}

// wantsHTML reports whether a form post came from a browser page rather than
// a fetch call expecting JSON.
func wantsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}

// HandleHealth is the liveness probe.
func (ac *AppController) HandleHealth(c *fiber.Ctx) error {
	if ac.DB != nil {
		if sqlDB, err := ac.DB.DB(); err == nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": err.Error()})
			}
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
