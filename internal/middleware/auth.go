package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/auth"
	"github.com/walletflow/backend/internal/config"
	"github.com/walletflow/backend/internal/http/dto"
)

const (
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
)

// AuthRequired verifies the identity provider's bearer token locally with
// the shared JWT secret and stores the authenticated user id in the request
// context.
func AuthRequired(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return unauthorized(c, "missing authorization header")
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == header {
			return unauthorized(c, "authorization header must be a bearer token")
		}

		claims, err := auth.ParseAccessToken(cfg.IdentityJWTSecret, tokenStr)
		if err != nil {
			log.Debug("access token rejected", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		userID, err := claims.UserID()
		if err != nil {
			log.Debug("access token subject invalid", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(CtxUserID, userID)
		c.Locals(CtxUserEmail, claims.Email)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}
