package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/app/services"
)

type AuthMiddleware struct {
	identityService *services.IdentityService
	memberService   *services.MemberService
}

func NewAuthMiddleware(identityService *services.IdentityService, memberService *services.MemberService) *AuthMiddleware {
	return &AuthMiddleware{identityService: identityService, memberService: memberService}
}

// AuthIdentity resolves the bearer token against the identity provider and
// stores the identity user in locals.
func (m *AuthMiddleware) AuthIdentity(c *fiber.Ctx) error {
	token := c.Get("Authorization")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.WebResponse[any]{
			Success: false,
			Message: "Unauthorized",
		})
	}

	token = strings.Replace(token, "Bearer ", "", 1)

	identityUser, err := m.identityService.GetCurrentUser(token)
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("Invalid or expired session"))
	}

	c.Locals("identity_user", identityUser)

	return c.Next()
}

// AuthMember requires the identity user to be a registered member and stores
// the member row in locals. Runs after AuthIdentity.
func (m *AuthMiddleware) AuthMember(c *fiber.Ctx) error {
	identityUser, _ := c.Locals("identity_user").(*models.IdentityUser)
	if identityUser == nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("User is not authenticated"))
	}

	member, err := m.memberService.GetMember(identityUser.ID.String())
	if err != nil {
		return pkg.ErrorResponse(c, errors.NewUnauthorizedError("User is not registered as a member. Please register first."))
	}

	c.Locals("member", member)

	return c.Next()
}
