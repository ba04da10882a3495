package serverutils

import (
	"errors"
	"net/http"

	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into the error envelope.
// Internal causes are logged, never written to the response.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status, body := mapError(err)
		if status >= http.StatusInternalServerError || isProcessingFailure(err) {
			log.Error("HTTP", "request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": status,
				"error":  err.Error(),
			})
		}

		return ctx.Status(status).JSON(body)
	}
}

func mapError(err error) (int, ErrorEnvelope) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperror.KindValidation:
			return fiber.StatusBadRequest, ErrorResponse(appErr.Message, string(appErr.Kind), appErr.Details)
		case apperror.KindNotFound:
			return fiber.StatusNotFound, ErrorResponse(appErr.Message, string(appErr.Kind), nil)
		case apperror.KindGeneration:
			return fiber.StatusBadRequest, ErrorResponse("Failed to generate an answer", string(appErr.Kind), nil)
		default:
			return fiber.StatusBadRequest, ErrorResponse("Failed to process request", string(appErr.Kind), nil)
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse(fiberErr.Message, http.StatusText(fiberErr.Code), nil)
	}

	return fiber.StatusInternalServerError, ErrorResponse("Internal server error", "INTERNAL_ERROR", nil)
}

func isProcessingFailure(err error) bool {
	return apperror.Is(err, apperror.KindGeneration) || apperror.Is(err, apperror.KindStore)
}
