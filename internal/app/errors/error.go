package errors

import (
	"net/http"
	"reflect"

	"github.com/sirupsen/logrus"
)

// Error codes surfaced to clients alongside the HTTP status so the member and
// staff UIs can branch on the exact failure.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeWrongMerchant      = "WRONG_MERCHANT"
	CodeInvalidState       = "INVALID_STATE"
	CodeAlreadyConfirmed   = "ALREADY_CONFIRMED"
	CodeAlreadyDeclined    = "ALREADY_DECLINED"
	CodeAlreadyCancelled   = "ALREADY_CANCELLED"
	CodeExpired            = "EXPIRED"
	CodeInsufficientPoints = "INSUFFICIENT_POINTS"
	CodeInsufficientBal    = "INSUFFICIENT_BALANCE"
	CodePlanRestricted     = "PLAN_RESTRICTED"
	CodePayoutFailed       = "PAYOUT_FAILED"
	CodeBudgetExceeded     = "BUDGET_EXCEEDED"
	CodeDuplicateRequest   = "DUPLICATE_REQUEST"
)

type AppError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(statusCode int, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewDomainError builds an AppError carrying a machine-readable code.
func NewDomainError(statusCode int, code, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func NewUnauthorizedError(message ...string) *AppError {
	if len(message) > 0 {
		return NewAppError(http.StatusUnauthorized, message[0])
	}
	return NewAppError(http.StatusUnauthorized, "Unauthorized")
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message)
}

func NewNotFoundError(message string) *AppError {
	return NewDomainError(http.StatusNotFound, CodeNotFound, message)
}

func NewConflictError(code, message string) *AppError {
	return NewDomainError(http.StatusConflict, code, message)
}

func NewUnprocessableError(code, message string) *AppError {
	return NewDomainError(http.StatusUnprocessableEntity, code, message)
}

func NewTooManyRequestsError(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, message)
}

func NewInternalServerError(originalError error, message string) *AppError {
	logrus.Errorf("[%s] %s", reflect.TypeOf(originalError).String(), originalError)
	return NewAppError(http.StatusInternalServerError, message)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
