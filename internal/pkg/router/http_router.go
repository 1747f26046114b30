package router

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/LingoFox/app/controllers"
	"github.com/ManuelReschke/LingoFox/app/repository"
	"github.com/ManuelReschke/LingoFox/internal/pkg/middleware"
	"github.com/ManuelReschke/LingoFox/internal/pkg/oauth"
	"github.com/ManuelReschke/LingoFox/internal/pkg/session"
)

type HttpRouter struct {
	app *controllers.AppController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth provider
	oauth.Setup()

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(ac *controllers.AppController) *HttpRouter {
	return &HttpRouter{app: ac}
}

// installedCheck reports whether a shop holds a usable offline token.
func installedCheck(db *gorm.DB) func(ctx context.Context, shop string) (bool, error) {
	return func(ctx context.Context, shop string) (bool, error) {
		s, err := repository.NewShopSessionRepository(db.WithContext(ctx)).GetByShop(shop)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return s.IsInstalled(), nil
	}
}

func (h HttpRouter) sessionConfig(api bool) middleware.SessionConfig {
	return middleware.SessionConfig{
		APIKey:    h.app.APIKey,
		APISecret: h.app.APISecret,
		Installed: installedCheck(h.app.DB),
		API:       api,
	}
}
