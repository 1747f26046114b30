package oauth

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/shopify"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/LingoFox/internal/pkg/cache"
	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

const ProviderName = "shopify"

const defaultScopes = "read_products,write_products,read_content,write_content,read_markets,write_translations"

var ErrInvalidShop = errors.New("invalid shop domain")

// beginMu serializes BeginInstall: the goth Shopify provider keeps the shop
// name on the shared provider instance.
var beginMu sync.Mutex

// Scopes returns the configured SHOPIFY_SCOPES.
func Scopes() []string {
	raw := env.GetEnv("SHOPIFY_SCOPES", defaultScopes)
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CallbackURL is the OAuth redirect registered with the provider.
func CallbackURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base + "/auth/shopify/callback"
}

// Setup registers the Shopify provider and the OAuth state session store.
// It is safe to call multiple times; the provider is re-registered.
func Setup() {
	goth.UseProviders(
		shopify.New(
			env.GetEnv("SHOPIFY_API_KEY", ""),
			env.GetEnv("SHOPIFY_API_SECRET", ""),
			CallbackURL(),
			Scopes()...,
		),
	)

	// OAuth state via Redis, using same connection as app sessions (separate DB)
	cacheClient := cache.GetClient()
	cacheOpts := cacheClient.Options()
	host, port := "127.0.0.1", 6379
	if cacheOpts != nil && cacheOpts.Addr != "" {
		if h, p, err := net.SplitHostPort(cacheOpts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else {
			host = cacheOpts.Addr
		}
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: cacheOpts.Username,
			Password: cacheOpts.Password,
			Database: 2,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})
}

// BeginInstall starts the OAuth flow for the shop given in the query.
func BeginInstall(c *fiber.Ctx) error {
	shop := shopcontext.NormalizeShop(c.Query("shop"))
	if !shopcontext.IsValidShopDomain(shop) {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidShop.Error())
	}

	provider, err := goth.GetProvider(ProviderName)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	sp, ok := provider.(*shopify.Provider)
	if !ok {
		return fiber.NewError(fiber.StatusInternalServerError, "shopify provider not registered")
	}

	beginMu.Lock()
	defer beginMu.Unlock()
	sp.SetShopName(strings.TrimSuffix(shop, ".myshopify.com"))
	return gothfiber.BeginAuthHandler(c)
}
