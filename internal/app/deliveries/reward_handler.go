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

type RewardHandler struct {
	rewardService    *services.RewardService
	merchantService  *services.MerchantService
	apiKeyMiddleware *middlewares.APIKeyMiddleware
}

func NewRewardHandler(
	rewardService *services.RewardService,
	merchantService *services.MerchantService,
	apiKeyMiddleware *middlewares.APIKeyMiddleware,
) *RewardHandler {
	return &RewardHandler{
		rewardService:    rewardService,
		merchantService:  merchantService,
		apiKeyMiddleware: apiKeyMiddleware,
	}
}

func (h *RewardHandler) RegisterRoutes(router fiber.Router) {
	// Public catalog, keyed by merchant slug so member apps can deep-link.
	router.Get("/merchants/:slug/rewards", h.ListRewards)

	// Staff catalog management.
	staffGroup := router.Group("/staff/rewards", h.apiKeyMiddleware.AuthStaffKey)
	staffGroup.Post("/", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeCatalog), h.CreateReward)
	staffGroup.Patch("/:id", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeCatalog), h.UpdateReward)
	staffGroup.Delete("/:id", h.apiKeyMiddleware.RequireScope(models.StaffKeyScopeCatalog), h.DeleteReward)
}

// ListRewards returns the merchant's active catalog with greyed flags for
// rewards beyond the plan limit.
func (h *RewardHandler) ListRewards(c *fiber.Ctx) error {
	merchant, err := h.merchantService.GetMerchantBySlug(c.Params("slug"))
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	rewards, err := h.rewardService.ListRewards(merchant.ID)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, rewards)
}

func (h *RewardHandler) CreateReward(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	var req models.RewardCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	reward, err := h.rewardService.CreateReward(merchantId, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, reward)
}

func (h *RewardHandler) UpdateReward(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	rewardId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid reward id"))
	}

	var req models.RewardUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	reward, err := h.rewardService.UpdateReward(merchantId, rewardId, &req)
	if err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse(c, reward)
}

func (h *RewardHandler) DeleteReward(c *fiber.Ctx) error {
	merchantId := c.Locals("merchant_id").(uuid.UUID)

	rewardId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewBadRequestError("Invalid reward id"))
	}

	if err := h.rewardService.DeleteReward(merchantId, rewardId); err != nil {
		return pkg.ErrorResponse(c, err)
	}

	return pkg.SuccessResponse[any](c, nil)
}
