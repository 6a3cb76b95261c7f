package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/apperr"
	"github.com/walletflow/backend/internal/http/dto"
)

// writeError translates any error into the envelope; component failures
// arrive already classified, everything else is an upstream failure.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.Path()), zap.Error(err))
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   string(apperr.KindOf(err)),
		Message: apperr.MessageOf(err),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:   string(apperr.KindBadRequest),
		Message: message,
	})
}
