package deliveries

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/middlewares"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/app/services"
)

type MemberHandler struct {
	memberService      *services.MemberService
	ledgerService      *services.LedgerService
	transactionService *services.TransactionService
	authMiddleware     *middlewares.AuthMiddleware
}

func NewMemberHandler(
	memberService *services.MemberService,
	ledgerService *services.LedgerService,
	transactionService *services.TransactionService,
	authMiddleware *middlewares.AuthMiddleware,
) *MemberHandler {
	return &MemberHandler{
		memberService:      memberService,
		ledgerService:      ledgerService,
		transactionService: transactionService,
		authMiddleware:     authMiddleware,
	}
}

func (h *MemberHandler) RegisterRoutes(router fiber.Router) {
	memberGroup := router.Group("/members")

	memberGroup.Post("/register", h.authMiddleware.AuthIdentity, h.Register)
	memberGroup.Get("/me", h.authMiddleware.AuthIdentity, h.authMiddleware.AuthMember, h.GetMe)
	memberGroup.Patch("/me", h.authMiddleware.AuthIdentity, h.authMiddleware.AuthMember, h.UpdateMe)
	memberGroup.Delete("/me", h.authMiddleware.AuthIdentity, h.authMiddleware.AuthMember, h.DeleteMe)
	memberGroup.Get("/me/merchants/:merchant_id/balance", h.authMiddleware.AuthIdentity, h.authMiddleware.AuthMember, h.GetBalance)
	memberGroup.Get("/me/merchants/:merchant_id/transactions", h.authMiddleware.AuthIdentity, h.authMiddleware.AuthMember, h.GetTransactions)
}

func (h *MemberHandler) Register(c *fiber.Ctx) error {
	var req models.MemberRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	token := strings.Replace(c.Get("Authorization"), "Bearer ", "", 1)

	member, err := h.memberService.RegisterMember(token, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, member)
}

func (h *MemberHandler) GetMe(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)
	return pkg.SuccessResponse(c, member)
}

func (h *MemberHandler) UpdateMe(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	var req models.MemberUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	updated, err := h.memberService.UpdateMember(member.ID.String(), &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, updated)
}

func (h *MemberHandler) DeleteMe(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	if err := h.memberService.DeleteMember(member.ID.String()); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse[any](c, nil)
}

func (h *MemberHandler) GetBalance(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	merchantId, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid merchant id"))
	}

	balance, err := h.ledgerService.GetBalance(merchantId, member.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, balance)
}

func (h *MemberHandler) GetTransactions(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	merchantId, err := uuid.Parse(c.Params("merchant_id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid merchant id"))
	}

	pagination := parsePagination(c)

	transactions, err := h.transactionService.GetTransactionsByMember(merchantId, member.ID, pagination)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, transactions)
}

func parsePagination(c *fiber.Ctx) *models.PaginationRequest {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		limit = 10
	}

	return &models.PaginationRequest{Page: page, Limit: limit}
}
