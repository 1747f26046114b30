package shopcontext

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// ShopContext is the authenticated shop of a request
type ShopContext struct {
	Shop          string `json:"shop"`
	UserID        string `json:"user_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// IsValidShopDomain reports whether shop looks like {name}.myshopify.com.
func IsValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// NormalizeShop lower-cases and trims a shop domain and strips a scheme.
func NormalizeShop(shop string) string {
	shop = strings.ToLower(strings.TrimSpace(shop))
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	return strings.TrimRight(shop, "/")
}

func Set(c *fiber.Ctx, sc ShopContext) {
	c.Locals(LocalsKey, sc)
}

// Get returns the shop context or an unauthenticated zero value
func Get(c *fiber.Ctx) ShopContext {
	if sc, ok := c.Locals(LocalsKey).(ShopContext); ok {
		return sc
	}
	return ShopContext{}
}

// Shop returns the authenticated shop domain, or "" when none is set
func Shop(c *fiber.Ctx) string {
	return Get(c).Shop
}
