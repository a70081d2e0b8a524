package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/middlewares"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/app/services"
)

type RedemptionHandler struct {
	redemptionService *services.RedemptionService
	authMiddleware    *middlewares.AuthMiddleware
	apiKeyMiddleware  *middlewares.APIKeyMiddleware
}

func NewRedemptionHandler(
	redemptionService *services.RedemptionService,
	authMiddleware *middlewares.AuthMiddleware,
	apiKeyMiddleware *middlewares.APIKeyMiddleware,
) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService: redemptionService,
		authMiddleware:    authMiddleware,
		apiKeyMiddleware:  apiKeyMiddleware,
	}
}

func (h *RedemptionHandler) RegisterRoutes(router fiber.Router) {
	// Member side: create a request, poll it, cancel it.
	memberGroup := router.Group("/redemptions", h.authMiddleware.AuthIdentity, h.authMiddleware.AuthMember)
	memberGroup.Post("/", h.CreateRedemption)
	memberGroup.Get("/:id/status", h.GetStatus)
	memberGroup.Delete("/:id", h.CancelRedemption)

	// Staff side: scan, confirm, decline.
	staffGroup := router.Group("/staff/redemptions", h.apiKeyMiddleware.AuthStaffKey)
	staffGroup.Post("/verify", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeVerify), h.VerifyRedemption)
	staffGroup.Post("/:id/confirm", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeRedeem), h.ConfirmRedemption)
	staffGroup.Post("/:id/decline", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeRedeem), h.DeclineRedemption)
	staffGroup.Get("/pending", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeVerify), h.ListPending)
	staffGroup.Get("/:id/history", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeAdmin), h.GetHistory)
}

func (h *RedemptionHandler) CreateRedemption(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	var req models.RedemptionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	resp, err := h.redemptionService.Create(member.ID, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, resp)
}

func (h *RedemptionHandler) GetStatus(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	redemptionId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid redemption id"))
	}

	status, err := h.redemptionService.GetStatus(member.ID, redemptionId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, status)
}

func (h *RedemptionHandler) CancelRedemption(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	redemptionId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid redemption id"))
	}

	redemption, err := h.redemptionService.Cancel(member.ID, redemptionId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, redemption)
}

func (h *RedemptionHandler) VerifyRedemption(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	var req models.RedemptionVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	resp, err := h.redemptionService.Verify(merchantId, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, resp)
}

func (h *RedemptionHandler) ConfirmRedemption(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)
	staffKey := c.Locals("staff_key").(*models.StaffAPIKey)

	redemptionId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid redemption id"))
	}

	req := &models.RedemptionConfirmRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return pkg.ErrorResponse(c, err)
		}
	}

	resp, err := h.redemptionService.Confirm(merchantId, redemptionId, req, &staffKey.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, resp)
}

func (h *RedemptionHandler) DeclineRedemption(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)
	staffKey := c.Locals("staff_key").(*models.StaffAPIKey)

	redemptionId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid redemption id"))
	}

	req := &models.RedemptionDeclineRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return pkg.ErrorResponse(c, err)
		}
	}

	redemption, err := h.redemptionService.Decline(merchantId, redemptionId, req, &staffKey.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, redemption)
}

func (h *RedemptionHandler) ListPending(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	redemptions, err := h.redemptionService.ListPendingForMerchant(merchantId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, redemptions)
}

func (h *RedemptionHandler) GetHistory(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	redemptionId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid redemption id"))
	}

	history, err := h.redemptionService.History(merchantId, redemptionId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, history)
}
