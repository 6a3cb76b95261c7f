package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/http/dto"
	"github.com/walletflow/backend/internal/middleware"
	"github.com/walletflow/backend/internal/services"
)

type WalletHandler struct {
	wallets *services.WalletService
	log     *zap.Logger
}

func NewWalletHandler(wallets *services.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, log: log}
}

// Get returns the full wallet view; the balance appears once the wallet is
// ready.
// GET /api/wallet
func (h *WalletHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	view, err := h.wallets.Get(c.Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(view)
}

// Status is the cheap variant: no chain read ever, and a cached ready
// observation also skips the custody read.
// GET /api/wallet/status
func (h *WalletHandler) Status(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	status, address, err := h.wallets.Status(c.Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.WalletStatusResponse{Status: status, Address: address})
}
