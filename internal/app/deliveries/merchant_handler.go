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

type MerchantHandler struct {
	merchantService    *services.MerchantService
	ledgerService      *services.LedgerService
	transactionService *services.TransactionService
	apiKeyMiddleware   *middlewares.APIKeyMiddleware
}

func NewMerchantHandler(
	merchantService *services.MerchantService,
	ledgerService *services.LedgerService,
	transactionService *services.TransactionService,
	apiKeyMiddleware *middlewares.APIKeyMiddleware,
) *MerchantHandler {
	return &MerchantHandler{
		merchantService:    merchantService,
		ledgerService:      ledgerService,
		transactionService: transactionService,
		apiKeyMiddleware:   apiKeyMiddleware,
	}
}

func (h *MerchantHandler) RegisterRoutes(router fiber.Router) {
	staffGroup := router.Group("/staff/merchant", h.apiKeyMiddleware.AuthStaffKey)

	staffGroup.Get("/", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeVerify), h.GetMerchant)
	staffGroup.Patch("/", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeAdmin), h.UpdateMerchant)
	staffGroup.Get("/payouts", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeAdmin), h.GetPayouts)

	// Points operations performed at the counter.
	staffGroup.Post("/members/:member_id/earn", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeVerify), h.EarnPoints)
	staffGroup.Post("/members/adjust", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeAdmin), h.AdjustPoints)
	staffGroup.Get("/members/:member_id/balance", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeVerify), h.GetMemberBalance)
	staffGroup.Get("/members/:member_id/reconcile", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeAdmin), h.ReconcileMember)
}

func (h *MerchantHandler) ReconcileMember(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	memberId, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid member id"))
	}

	report, err := h.transactionService.ReconcileMemberBalance(merchantId, memberId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, report)
}

func (h *MerchantHandler) GetMerchant(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	merchant, err := h.merchantService.GetMerchant(merchantId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, merchant)
}

func (h *MerchantHandler) UpdateMerchant(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	var req models.MerchantUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	merchant, err := h.merchantService.UpdateMerchant(merchantId, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, merchant)
}

func (h *MerchantHandler) GetPayouts(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	pagination := parsePagination(c)

	payouts, err := h.transactionService.GetPayoutsByMerchant(merchantId, pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, payouts)
}

type EarnPointsRequest struct {
	Amount     int64   `json:"amount" validate:"required,gt=0"`
	Reason     string  `json:"reason" validate:"required,max=500"`
	BusinessID *string `json:"business_id,omitempty" validate:"omitempty,uuid"`
}

func (h *MerchantHandler) EarnPoints(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	memberId, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid member id"))
	}

	var req EarnPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	var businessId *uuid.UUID
	if req.BusinessID != nil {
		parsed, err := uuid.Parse(*req.BusinessID)
		if err != nil {
			return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid business id"))
		}
		businessId = &parsed
	}

	balance, err := h.ledgerService.Credit(merchantId, memberId, req.Amount, req.Reason, businessId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, balance)
}

func (h *MerchantHandler) AdjustPoints(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	var req models.AdjustPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	memberId, err := uuid.Parse(req.MemberID)
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid member id"))
	}

	balance, err := h.ledgerService.AdjustPoints(merchantId, memberId, req.Delta, req.Reason)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, balance)
}

func (h *MerchantHandler) GetMemberBalance(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	memberId, err := uuid.Parse(c.Params("member_id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid member id"))
	}

	balance, err := h.ledgerService.GetBalance(merchantId, memberId)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, balance)
}
