package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/LingoFox/app/controllers"
)

func InstallRouter(app *fiber.App, ac *controllers.AppController) {
	// HttpRouter first: it creates the session store and the OAuth provider
	// that the API session middleware relies on.
	setup(app, NewHttpRouter(ac), NewApiRouter(ac))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

type Router interface {
	InstallRouter(app *fiber.App)
}
