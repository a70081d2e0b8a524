package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/middlewares"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/app/services"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
)

type StaffKeyHandler struct {
	staffKeyService  *services.StaffKeyService
	validator        *infrastructures.Validator
	apiKeyMiddleware *middlewares.APIKeyMiddleware
}

func NewStaffKeyHandler(
	staffKeyService *services.StaffKeyService,
	validator *infrastructures.Validator,
	apiKeyMiddleware *middlewares.APIKeyMiddleware,
) *StaffKeyHandler {
	return &StaffKeyHandler{
		staffKeyService:  staffKeyService,
		validator:        validator,
		apiKeyMiddleware: apiKeyMiddleware,
	}
}

func (h *StaffKeyHandler) RegisterRoutes(router fiber.Router) {
	keyGroup := router.Group("/staff/keys", h.apiKeyMiddleware.AuthStaffKey, h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeAdmin))

	keyGroup.Post("/", h.CreateKey)
	keyGroup.Get("/", h.ListKeys)
	keyGroup.Delete("/:id", h.RevokeKey)
}

func (h *StaffKeyHandler) CreateKey(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	var req models.StaffKeyCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}
	if err := h.validator.Validate(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	resp, err := h.staffKeyService.CreateKey(c.Context(), merchantId, req.KeyName, req.Scopes, req.RateLimit, req.ExpiresAt)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, resp)
}

func (h *StaffKeyHandler) ListKeys(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	keys, err := h.staffKeyService.ListKeys(c.Context(), merchantId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, keys)
}

func (h *StaffKeyHandler) RevokeKey(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	keyId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid key id"))
	}

	if err := h.staffKeyService.RevokeKey(c.Context(), keyId, merchantId); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse[any](c, nil)
}
