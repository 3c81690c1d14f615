package serverutils

import (
	"errors"

	"ai-dms-be/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindAccessDenied:
		return fiber.StatusForbidden
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindUpstream:
		return fiber.StatusBadGateway
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware() fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		appErr, ok := apperr.As(err)
		if !ok {
			return ctx.Status(fiber.StatusInternalServerError).
				JSON(ErrorResponse(fiber.StatusInternalServerError, "internal server error"))
		}

		code := StatusFor(appErr.Kind)
		message := appErr.Message
		if appErr.Kind == apperr.KindStorage || appErr.Kind == apperr.KindUnknown {
			// causes of storage failures stay in the logs
			message = "operation failed, please try again"
		}

		return ctx.Status(code).JSON(&BaseResponse[any]{
			Success: false,
			Code:    code,
			Message: message,
			Kind:    appErr.Kind.String(),
			Field:   appErr.Field,
			Data:    appErr.Data,
		})
	}
}
