package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/http/dto"
	"github.com/walletflow/backend/internal/identity"
	"github.com/walletflow/backend/internal/services"
)

type AuthHandler struct {
	identity *identity.Client
	wallets  *services.WalletService
	log      *zap.Logger
}

func NewAuthHandler(identityClient *identity.Client, wallets *services.WalletService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: identityClient, wallets: wallets, log: log}
}

// Signup creates the identity account, then provisions the user's MPC
// wallet. The wallet comes back in creating state; activation completes
// asynchronously at the custody provider.
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validateCredentials(req.Email, req.Password); err != "" {
		return badRequest(c, err)
	}

	result, err := h.identity.SignUp(c.Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}

	wallet, err := h.wallets.Provision(c.Context(), result.User.ID)
	if err != nil {
		// The identity account exists at this point; signup is not undone.
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SignupResponse{
		User:    result.User,
		Session: result.Session,
		Wallet: dto.WalletSummary{
			ID:      wallet.ID,
			Status:  wallet.Status,
			Address: wallet.Address,
		},
	})
}

// Login has no wallet side effect.
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validateCredentials(req.Email, req.Password); err != "" {
		return badRequest(c, err)
	}

	result, err := h.identity.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.LoginResponse{
		User:    result.User,
		Session: result.Session,
	})
}

// validateCredentials does shape checks only; credential policy lives at
// the identity provider.
func validateCredentials(email, password string) string {
	if email == "" || password == "" {
		return "email and password are required"
	}
	if !strings.Contains(email, "@") {
		return "email is not valid"
	}
	return ""
}
