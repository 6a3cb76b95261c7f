package handlers

import (
	"fmt"
	"math/big"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/http/dto"
	"github.com/walletflow/backend/internal/middleware"
	"github.com/walletflow/backend/internal/services"
)

type TransactionHandler struct {
	transactions *services.TransactionService
	log          *zap.Logger
}

func NewTransactionHandler(transactions *services.TransactionService, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, log: log}
}

// Send builds, signs and broadcasts a value transfer for the authenticated
// user's wallet.
// POST /api/transaction/send
func (h *TransactionHandler) Send(c *fiber.Ctx) error {
	var req dto.SendTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.To == "" || req.Amount == "" {
		return badRequest(c, "to and amount are required")
	}

	overrides := services.GasOverrides{GasLimit: req.GasLimit}
	var err error
	if overrides.MaxFeePerGas, err = parseWeiField("maxFeePerGas", req.MaxFeePerGas); err != nil {
		return badRequest(c, err.Error())
	}
	if overrides.MaxPriorityFeePerGas, err = parseWeiField("maxPriorityFeePerGas", req.MaxPriorityFeePerGas); err != nil {
		return badRequest(c, err.Error())
	}

	userID := middleware.GetUserID(c)
	result, err := h.transactions.Send(c.Context(), userID, req.To, req.Amount, overrides)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SendTransactionResponse{
		TransactionHash: result.TransactionHash,
		Status:          "pending",
		From:            result.From,
		To:              result.To,
		Value:           result.ValueWei.String(),
	})
}

// GetByHash looks up a transaction by hash; unmined hashes are 404.
// GET /api/transaction/:hash
func (h *TransactionHandler) GetByHash(c *fiber.Ctx) error {
	result, err := h.transactions.GetReceipt(c.Context(), c.Params("hash"))
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.TransactionReceiptResponse{
		TransactionHash: result.TransactionHash,
		BlockNumber:     result.BlockNumber,
		BlockHash:       result.BlockHash,
		Status:          result.Status,
		GasUsed:         result.GasUsed,
		GasPrice:        result.GasPriceWei.String(),
		From:            result.From,
		To:              result.To,
		Value:           result.ValueWei.String(),
	})
}

// parseWeiField parses an optional decimal wei string.
func parseWeiField(name string, s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil, fmt.Errorf("%s must be a decimal wei string", name)
	}
	return v, nil
}
