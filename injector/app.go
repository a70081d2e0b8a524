package injector

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gobbleapp/gobble-core/internal/app/deliveries"
	"github.com/gobbleapp/gobble-core/internal/app/middlewares"
)

// Application represents the main application container for gobble-core
type Application struct {
	HealthHandler       *deliveries.HealthHandler
	MemberHandler       *deliveries.MemberHandler
	MerchantHandler     *deliveries.MerchantHandler
	RewardHandler       *deliveries.RewardHandler
	RedemptionHandler   *deliveries.RedemptionHandler
	StaffKeyHandler     *deliveries.StaffKeyHandler
	RateLimitMiddleware *middlewares.RateLimitMiddleware
	APIKeyMiddleware    *middlewares.APIKeyMiddleware
}

// RegisterRoutes registers all application routes using a Fiber router
func (app *Application) RegisterRoutes(router fiber.Router) {
	// Apply global rate limit for public API
	router.Use(app.RateLimitMiddleware.LimitByIP(middlewares.PublicAPILimit))

	// Member endpoints with member-based rate limit
	memberGroup := router.Group("/members")
	memberGroup.Use(app.RateLimitMiddleware.LimitByMember(middlewares.MemberAPILimit))

	redemptionGroup := router.Group("/redemptions")
	redemptionGroup.Use(app.RateLimitMiddleware.LimitByMember(middlewares.MemberAPILimit))

	// Register all handlers
	app.HealthHandler.RegisterRoutes(router)
	app.MemberHandler.RegisterRoutes(router)
	app.MerchantHandler.RegisterRoutes(router)
	app.RewardHandler.RegisterRoutes(router)
	app.RedemptionHandler.RegisterRoutes(router)
	app.StaffKeyHandler.RegisterRoutes(router)
}
