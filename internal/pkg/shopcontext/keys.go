package shopcontext

// Shared Locals/session keys used across controllers and middlewares
const (
	LocalsKey  = "SHOP_CONTEXT"
	SessionKey = "shop"
)
