//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/gobbleapp/gobble-core/internal/app/deliveries"
	"github.com/gobbleapp/gobble-core/internal/app/middlewares"
	"github.com/gobbleapp/gobble-core/internal/app/services"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
)

// Infrastructure providers
var infrastructureSet = wire.NewSet(
	infrastructures.NewDatabase,
	infrastructures.NewRedisClient,
	infrastructures.NewValidator,
	infrastructures.NewTreasuryClient,
	wire.Value("gobble"),
	wire.Bind(new(middlewares.RateLimiter), new(*middlewares.RedisRateLimiter)),
	middlewares.NewRedisRateLimiter,
)

// Service providers
var serviceSet = wire.NewSet(
	services.NewIdentityService,
	services.NewNotificationService,
	services.NewMemberService,
	services.NewMerchantService,
	services.NewAuditService,
	services.NewStaffKeyService,
	services.NewTransactionService,
	services.NewLedgerService,
	services.NewRewardService,
	services.NewPayoutService,
	services.NewRedemptionService,
)

// Middleware providers
var middlewareSet = wire.NewSet(
	middlewares.NewAuthMiddleware,
	middlewares.NewAPIKeyMiddleware,
	middlewares.NewRateLimitMiddleware,
)

// Handler providers
var handlerSet = wire.NewSet(
	deliveries.NewHealthHandler,
	deliveries.NewMemberHandler,
	deliveries.NewMerchantHandler,
	deliveries.NewRewardHandler,
	deliveries.NewRedemptionHandler,
	deliveries.NewStaffKeyHandler,
	wire.Struct(new(Application), "*"),
)

// InitializeApplication initializes the application with all its dependencies
func InitializeApplication() (*Application, error) {
	wire.Build(
		infrastructureSet,
		serviceSet,
		middlewareSet,
		handlerSet,
	)
	return &Application{}, nil
}
