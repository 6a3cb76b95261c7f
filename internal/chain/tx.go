package chain

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/walletflow/backend/internal/apperr"
)

var txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidateAddress checks that s is a well-formed chain address and, when the
// caller used mixed case, that the EIP-55 checksum holds.
func ValidateAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, apperr.BadRequest("invalid address %q", s)
	}
	addr := common.HexToAddress(s)

	hexPart := strings.TrimPrefix(s, "0x")
	lower, upper := strings.ToLower(hexPart), strings.ToUpper(hexPart)
	if hexPart != lower && hexPart != upper && s != addr.Hex() {
		return common.Address{}, apperr.BadRequest("address %q fails checksum validation", s)
	}
	return addr, nil
}

// ValidateTxHash checks the fixed-length 0x-prefixed hex shape.
func ValidateTxHash(s string) (common.Hash, error) {
	if !txHashRe.MatchString(s) {
		return common.Hash{}, apperr.BadRequest("invalid transaction hash %q", s)
	}
	return common.HexToHash(s), nil
}

// TransferParams carries every consensus field of an unsigned value
// transfer. The struct is ephemeral: built per send, never persisted.
type TransferParams struct {
	To        common.Address
	Value     *big.Int
	Nonce     uint64
	GasLimit  uint64
	GasFeeCap *big.Int
	GasTipCap *big.Int
}

// NewTransferTx builds the unsigned EIP-1559 transaction for a plain value
// transfer.
func NewTransferTx(chainID *big.Int, p TransferParams) *types.Transaction {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     p.Nonce,
		GasTipCap: p.GasTipCap,
		GasFeeCap: p.GasFeeCap,
		Gas:       p.GasLimit,
		To:        &p.To,
		Value:     p.Value,
		Data:      nil,
	})
}

// Sighash returns the digest the chain's consensus rules require a
// signature over for this transaction. This is the only value ever handed
// to the custody provider.
func Sighash(chainID *big.Int, tx *types.Transaction) common.Hash {
	return types.LatestSignerForChainID(chainID).Hash(tx)
}

// AttachSignature reattaches a detached 65-byte signature to the
// orchestrator's own copy of the transaction and verifies that the
// recovered sender is the expected wallet address. A signer that produced a
// signature over different fields fails here.
func AttachSignature(chainID *big.Int, tx *types.Transaction, sig []byte, expectedFrom common.Address) (*types.Transaction, error) {
	signer := types.LatestSignerForChainID(chainID)

	signed, err := tx.WithSignature(signer, sig)
	if err != nil {
		return nil, apperr.Upstream("failed to attach signature", err)
	}

	from, err := types.Sender(signer, signed)
	if err != nil {
		return nil, apperr.Upstream("failed to recover signer from signature", err)
	}
	if from != expectedFrom {
		return nil, apperr.Upstream("signature does not recover to wallet address "+expectedFrom.Hex(), nil)
	}
	return signed, nil
}
