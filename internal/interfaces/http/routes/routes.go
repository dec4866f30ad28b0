// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
	"github.com/your-org/storefront/internal/pkg/auth"
)

// Handlers bundles every route handler
type Handlers struct {
	Auth      *handlers.AuthHandler
	Product   *handlers.ProductHandler
	Cart      *handlers.CartHandler
	Checkout  *handlers.CheckoutHandler
	Payment   *handlers.PaymentHandler
	Order     *handlers.OrderHandler
	Invoice   *handlers.InvoiceHandler
	Inventory *handlers.InventoryHandler
}

// SetupRoutes registers the /api/v1 routes. Storefront routes resolve the buyer from
// the bearer token or the guest cookie.
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager, cfg *config.Config) {
	// Provider callbacks carry no buyer session.
	SetupWebhookRoutes(rg, h)

	store := rg.Group("")
	store.Use(middleware.OptionalAuthMiddleware(jwtManager), middleware.BuyerSession(cfg))
	SetupAuthRoutes(store, h, jwtManager)
	SetupCatalogRoutes(store, h)
	SetupCartRoutes(store, h, jwtManager)
	SetupCheckoutRoutes(store, h)
	SetupOrderRoutes(store, h, jwtManager)

	SetupAdminRoutes(rg, h, jwtManager)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.GET("/me", middleware.AuthMiddleware(jwtManager), h.Auth.GetCurrentUser)
	}
}

// SetupCatalogRoutes sets up product pages
func SetupCatalogRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/products/:id", h.Product.GetProduct)
}

// SetupCartRoutes sets up cart and coupon routes
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	cart := rg.Group("/cart")
	{
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.POST("/items", h.Cart.AddToCart)
		cart.PUT("/items/:id", h.Cart.UpdateCartItem)
		cart.DELETE("/items/:id", h.Cart.RemoveFromCart)
		cart.POST("/merge", middleware.AuthMiddleware(jwtManager), h.Cart.MergeGuestCart)
	}

	coupons := rg.Group("/coupons")
	{
		coupons.POST("/apply", h.Cart.ApplyCoupon)
		coupons.DELETE("/applied", h.Cart.RemoveCoupon)
	}
}

// SetupCheckoutRoutes sets up checkout and payment return routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/checkout", h.Checkout.PlaceOrder)

	payment := rg.Group("/payment")
	{
		payment.GET("/success", h.Payment.Success)
		payment.GET("/cancel", h.Payment.Cancel)
	}
}

// SetupWebhookRoutes sets up provider webhooks
func SetupWebhookRoutes(rg *gin.RouterGroup, h *Handlers) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/stripe", h.Payment.StripeWebhook)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	requireUser := middleware.AuthMiddleware(jwtManager)

	orders := rg.Group("/orders")
	{
		orders.GET("", requireUser, h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
		orders.GET("/:id/invoice", h.Invoice.GenerateInvoice)
		orders.POST("/:id/returns", requireUser, h.Order.CreateReturn)
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.AdminMiddleware())
	{
		admin.PUT("/orders/:id/status", h.Order.AdminUpdateOrderStatus)
		admin.PUT("/returns/:id", h.Order.AdminReviewReturn)
		admin.POST("/stocks/:id/adjust", h.Inventory.AdjustStock)
		admin.GET("/stocks/:id/movements", h.Inventory.GetMovements)
	}
}
