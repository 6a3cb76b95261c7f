package services

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/walletflow/backend/internal/chain"
	"github.com/walletflow/backend/internal/models"
)

// ChainClient is the chain read/broadcast surface the services depend on,
// satisfied by chain.Client.
type ChainClient interface {
	ChainID() *big.Int
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	PendingNonce(ctx context.Context, addr common.Address) (uint64, error)
	EstimateFees(ctx context.Context) (*chain.FeeEstimate, error)
	Broadcast(ctx context.Context, tx *types.Transaction) error
	Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// CustodyClient is the wallet-custody surface, satisfied by custody.Client.
type CustodyClient interface {
	CreateWallet(ctx context.Context, externalID string) (*models.RemoteWallet, error)
	GetWallet(ctx context.Context, walletID string) (*models.RemoteWallet, error)
	WaitReady(ctx context.Context, walletID string, maxAttempts int, interval time.Duration) (*models.RemoteWallet, error)
	SignHash(ctx context.Context, walletID string, hash common.Hash) ([]byte, error)
}

// WalletLinkStore is the address book, satisfied by
// repositories.WalletLinkRepo.
type WalletLinkStore interface {
	Create(ctx context.Context, link *models.WalletLink) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.WalletLink, error)
	UpdateAddress(ctx context.Context, userID uuid.UUID, address string) error
	UpdateAddressByWalletID(ctx context.Context, walletID, address string) error
}

// StatusCache remembers wallets already observed ready so the cheap status
// endpoint can skip the custody round-trip. Cache failures are never fatal.
type StatusCache interface {
	GetReady(ctx context.Context, walletID string) (address string, ok bool)
	SetReady(ctx context.Context, walletID, address string)
}
