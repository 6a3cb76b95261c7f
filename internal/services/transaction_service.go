package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/apperr"
	"github.com/walletflow/backend/internal/chain"
)

// Minimum gas for a plain value transfer; used when the caller supplies no
// gas limit.
const transferGasLimit = 21000

// GasOverrides carries caller-supplied gas fields. Nil fields fall back to
// the chain's live estimate.
type GasOverrides struct {
	GasLimit             *uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

type SendResult struct {
	TransactionHash string
	From            string
	To              string
	ValueWei        *big.Int
}

type ReceiptResult struct {
	TransactionHash string
	BlockNumber     uint64
	BlockHash       string
	Status          string
	GasUsed         uint64
	GasPriceWei     *big.Int
	From            string
	To              string
	ValueWei        *big.Int
}

// TransactionService turns a (recipient, amount) request into a broadcast
// transaction hash. It composes the chain client and the custody signer; a
// complete private key never exists on this side.
type TransactionService struct {
	links   WalletLinkStore
	custody CustodyClient
	chain   ChainClient
	locks   *walletLocks
	log     *zap.Logger
}

func NewTransactionService(links WalletLinkStore, custodyClient CustodyClient, chainClient ChainClient, log *zap.Logger) *TransactionService {
	return &TransactionService{
		links:   links,
		custody: custodyClient,
		chain:   chainClient,
		locks:   newWalletLocks(),
		log:     log,
	}
}

// Send builds, signs and broadcasts one value transfer. Input validation
// happens before any network call; the wallet readiness gate happens before
// any chain call; broadcast is attempted exactly once. Nothing is persisted
// locally at any step.
func (s *TransactionService) Send(ctx context.Context, userID uuid.UUID, to, amount string, overrides GasOverrides) (*SendResult, error) {
	toAddr, err := chain.ValidateAddress(to)
	if err != nil {
		return nil, err
	}
	valueWei, err := chain.ParseEther(amount)
	if err != nil {
		return nil, err
	}
	if err := validateOverrides(overrides); err != nil {
		return nil, err
	}

	link, err := s.links.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Readiness gate: signing against a wallet whose key shares may not
	// exist yet is rejected before the first chain call.
	wallet, err := s.custody.GetWallet(ctx, link.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.Ready() {
		return nil, apperr.WalletNotReady(link.WalletID)
	}
	fromAddr := common.HexToAddress(*wallet.Address)

	// Nonce comes from the chain at send time; holding the wallet lock from
	// here through broadcast keeps concurrent sends from reusing it.
	release := s.locks.acquire(link.WalletID)
	defer release()

	nonce, err := s.chain.PendingNonce(ctx, fromAddr)
	if err != nil {
		return nil, err
	}

	feeCap, tipCap := overrides.MaxFeePerGas, overrides.MaxPriorityFeePerGas
	if feeCap == nil || tipCap == nil {
		est, err := s.chain.EstimateFees(ctx)
		if err != nil {
			return nil, err
		}
		if feeCap == nil {
			feeCap = est.GasFeeCap
		}
		if tipCap == nil {
			tipCap = est.GasTipCap
		}
	}
	gasLimit := uint64(transferGasLimit)
	if overrides.GasLimit != nil {
		gasLimit = *overrides.GasLimit
	}

	tx := chain.NewTransferTx(s.chain.ChainID(), chain.TransferParams{
		To:        toAddr,
		Value:     valueWei,
		Nonce:     nonce,
		GasLimit:  gasLimit,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
	})

	sig, err := s.custody.SignHash(ctx, link.WalletID, chain.Sighash(s.chain.ChainID(), tx))
	if err != nil {
		return nil, err
	}

	// Reassemble from our own copy of the fields; nothing echoed by the
	// signer is trusted.
	signed, err := chain.AttachSignature(s.chain.ChainID(), tx, sig, fromAddr)
	if err != nil {
		return nil, err
	}

	if err := s.chain.Broadcast(ctx, signed); err != nil {
		return nil, err
	}

	s.log.Info("transaction broadcast",
		zap.String("user_id", userID.String()),
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", toAddr.Hex()),
		zap.Uint64("nonce", nonce),
	)

	return &SendResult{
		TransactionHash: signed.Hash().Hex(),
		From:            fromAddr.Hex(),
		To:              toAddr.Hex(),
		ValueWei:        valueWei,
	}, nil
}

// GetReceipt looks up a mined transaction. "Not yet mined" and "never
// existed" both surface as not found; the node does not distinguish them.
func (s *TransactionService) GetReceipt(ctx context.Context, hashStr string) (*ReceiptResult, error) {
	hash, err := chain.ValidateTxHash(hashStr)
	if err != nil {
		return nil, err
	}

	receipt, err := s.chain.Receipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	tx, _, err := s.chain.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	status := "failed"
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = "success"
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, apperr.Upstream("failed to recover transaction sender", err)
	}

	to := ""
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	gasPrice := receipt.EffectiveGasPrice
	if gasPrice == nil {
		gasPrice = tx.GasPrice()
	}

	return &ReceiptResult{
		TransactionHash: hash.Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		BlockHash:       receipt.BlockHash.Hex(),
		Status:          status,
		GasUsed:         receipt.GasUsed,
		GasPriceWei:     gasPrice,
		From:            from.Hex(),
		To:              to,
		ValueWei:        tx.Value(),
	}, nil
}

func validateOverrides(o GasOverrides) error {
	if o.GasLimit != nil && *o.GasLimit < transferGasLimit {
		return apperr.BadRequest("gasLimit must be at least %d", transferGasLimit)
	}
	if o.MaxFeePerGas != nil && o.MaxFeePerGas.Sign() <= 0 {
		return apperr.BadRequest("maxFeePerGas must be positive")
	}
	if o.MaxPriorityFeePerGas != nil && o.MaxPriorityFeePerGas.Sign() <= 0 {
		return apperr.BadRequest("maxPriorityFeePerGas must be positive")
	}
	if o.MaxFeePerGas != nil && o.MaxPriorityFeePerGas != nil && o.MaxFeePerGas.Cmp(o.MaxPriorityFeePerGas) < 0 {
		return apperr.BadRequest("maxFeePerGas must not be below maxPriorityFeePerGas")
	}
	return nil
}
