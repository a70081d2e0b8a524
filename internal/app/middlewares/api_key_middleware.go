package middlewares

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/app/services"
	"github.com/sirupsen/logrus"
)

// APIKeyMiddleware authenticates merchant staff devices by their API key and
// enforces the key's scopes and per-key rate limit.
type APIKeyMiddleware struct {
	staffKeyService *services.StaffKeyService
	rateLimiter     RateLimiter
}

// NewAPIKeyMiddleware creates a new APIKeyMiddleware
func NewAPIKeyMiddleware(staffKeyService *services.StaffKeyService, rateLimiter RateLimiter) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		staffKeyService: staffKeyService,
		rateLimiter:     rateLimiter,
	}
}

// AuthStaffKey requires a valid X-API-Key header and stores the key and its
// merchant in locals.
func (m *APIKeyMiddleware) AuthStaffKey(c *fiber.Ctx) error {
	key := c.Get("X-API-Key")
	if key == "" {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("API key is required"))
	}

	staffKey, err := m.staffKeyService.GetKey(c.Context(), key)
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("Invalid or expired API key"))
	}

	allowed, info := m.rateLimiter.Allow(
		"staffkey:"+staffKey.ID.String(),
		Rate{
			Requests: staffKey.RateLimit,
			Window:   time.Minute,
		},
	)

	c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
	c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
	c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.Reset.Unix()))

	if !allowed {
		return pkg.ErrorResponse(c, errors.NewTooManyRequestsError("Rate limit exceeded"))
	}

	// Touch last-used asynchronously; a failed touch never blocks the
	// request. The fiber ctx is not valid past the handler, so use a fresh
	// context.
	keyId := staffKey.ID
	go func() {
		if err := m.staffKeyService.TouchKey(context.Background(), keyId); err != nil {
			logrus.Warnf("failed to touch staff key %s: %v", keyId, err)
		}
	}()

	c.Locals("staff_key", staffKey)
	c.Locals("merchant_id", staffKey.MerchantID)

	return c.Next()
}

// RequireScope gates a route on one staff key scope. ADMIN implies all
// scopes. Runs after AuthStaffKey.
func (m *APIKeyMiddleware) RequireScope(scope models.StaffKeyScope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffKey, ok := c.Locals("staff_key").(*models.StaffAPIKey)
		if !ok || staffKey == nil {
			return pkg.ErrorResponse(c, errors.NewUnauthorizedError("API key is required"))
		}

		if !staffKey.HasScope(scope) {
			return pkg.ErrorResponse(c, errors.NewForbiddenError("Insufficient permissions"))
		}

		return c.Next()
	}
}
