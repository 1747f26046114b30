package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuelReschke/LingoFox/internal/pkg/session"
	"github.com/ManuelReschke/LingoFox/internal/pkg/shopcontext"
)

var (
	ErrMissingSessionToken = errors.New("missing session token")
	ErrInvalidSessionToken = errors.New("invalid session token")
)

// SessionClaims are the claims of a Shopify App Bridge session token.
type SessionClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// SessionConfig configures ShopifySession.
type SessionConfig struct {
	APIKey    string
	APISecret string

	// Installed reports whether the shop has a stored offline session.
	Installed func(ctx context.Context, shop string) (bool, error)

	// API answers with JSON 401 instead of redirecting to the install flow.
	API bool

	// Now overrides the clock used to validate exp/nbf.
	Now func() time.Time
}

// VerifySessionToken validates an HS256 session token and returns the shop
// domain named by its dest claim.
func VerifySessionToken(raw, apiKey, apiSecret string, now func() time.Time) (string, *SessionClaims, error) {
	if now == nil {
		now = time.Now
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}

	shop := shopcontext.NormalizeShop(claims.Dest)
	if !shopcontext.IsValidShopDomain(shop) {
		return "", nil, fmt.Errorf("%w: bad dest %q", ErrInvalidSessionToken, claims.Dest)
	}
	if claims.Issuer != "" {
		iss, err := url.Parse(claims.Issuer)
		if err != nil || !strings.EqualFold(iss.Host, shop) {
			return "", nil, fmt.Errorf("%w: issuer does not match dest", ErrInvalidSessionToken)
		}
	}
	return shop, claims, nil
}

// NewSessionToken signs a session token the way Shopify does. Used by tests and
// local tooling.
func NewSessionToken(shop, apiKey, apiSecret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Audience:  jwt.ClaimStrings{apiKey},
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
}

func extractSessionToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if tok := strings.TrimSpace(c.Query("id_token")); tok != "" {
		return tok
	}
	return strings.TrimSpace(c.FormValue("id_token"))
}

// ShopifySession authenticates the shop of an embedded-app request and puts it
// in shopcontext. A verified shop is remembered in the app session so plain
// navigations inside the iframe keep working.
func ShopifySession(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			shop   string
			claims *SessionClaims
		)

		if raw := extractSessionToken(c); raw != "" {
			var err error
			shop, claims, err = VerifySessionToken(raw, cfg.APIKey, cfg.APISecret, cfg.Now)
			if err != nil {
				log.Warnf("[Auth] Rejected session token: %v", err)
				return unauthorized(c, cfg, ErrInvalidSessionToken.Error())
			}
			if session.GetSessionStore() != nil {
				_ = session.SetSessionValue(c, shopcontext.SessionKey, shop)
			}
		} else {
			shop = session.GetSessionValue(c, shopcontext.SessionKey)
		}

		if shop == "" {
			if q := shopcontext.NormalizeShop(c.Query("shop")); !cfg.API && shopcontext.IsValidShopDomain(q) {
				return c.Redirect("/auth/shopify?shop="+url.QueryEscape(q), fiber.StatusSeeOther)
			}
			return unauthorized(c, cfg, ErrMissingSessionToken.Error())
		}

		if cfg.Installed != nil {
			ok, err := cfg.Installed(c.UserContext(), shop)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
			if !ok {
				if cfg.API {
					return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Shop not installed"})
				}
				return c.Redirect("/auth/shopify?shop="+url.QueryEscape(shop), fiber.StatusSeeOther)
			}
		}

		sc := shopcontext.ShopContext{Shop: shop, Authenticated: true}
		if claims != nil {
			sc.UserID = claims.Subject
			sc.SessionID = claims.Sid
		}
		shopcontext.Set(c, sc)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, cfg SessionConfig, msg string) error {
	if cfg.API {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
	}
	return fiber.NewError(fiber.StatusUnauthorized, msg)
}
