package pkg

import (
	"errors"
	"reflect"

	"github.com/gofiber/fiber/v2"
	appError "github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/sirupsen/logrus"
)

func SuccessResponse[T any](c *fiber.Ctx, data T) error {
	return c.JSON(models.WebResponse[T]{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, err error) error {
	var appErr *appError.AppError
	if errors.As(err, &appErr) {
		message := appErr.Message
		if appErr.Code != "" {
			message = message + " [" + appErr.Code + "]"
		}
		return c.Status(appErr.StatusCode).JSON(models.WebResponse[any]{
			Success: false,
			Message: message,
		})
	}

	logrus.Errorf("[%s] %s", reflect.TypeOf(err).String(), err)

	return c.Status(fiber.StatusInternalServerError).JSON(models.WebResponse[any]{
		Success: false,
		Message: "Internal Server Error",
	})
}
