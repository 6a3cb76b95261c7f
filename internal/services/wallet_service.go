package services

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/chain"
	"github.com/walletflow/backend/internal/models"
)

const walletType = "mpc"

// WalletView is the API-facing wallet state: custody metadata plus, once
// the wallet is ready, its on-chain balance.
type WalletView struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Status    string       `json:"status"`
	Address   *string      `json:"address"`
	PublicKey *string      `json:"publicKey"`
	Balance   *BalanceView `json:"balance,omitempty"`
}

type BalanceView struct {
	Wei string `json:"wei"`
	Eth string `json:"eth"`
}

type WalletService struct {
	links           WalletLinkStore
	custody         CustodyClient
	chain           ChainClient
	cache           StatusCache
	pollMaxAttempts int
	pollInterval    time.Duration
	log             *zap.Logger
}

func NewWalletService(
	links WalletLinkStore,
	custodyClient CustodyClient,
	chainClient ChainClient,
	cache StatusCache,
	pollMaxAttempts int,
	pollInterval time.Duration,
	log *zap.Logger,
) *WalletService {
	return &WalletService{
		links:           links,
		custody:         custodyClient,
		chain:           chainClient,
		cache:           cache,
		pollMaxAttempts: pollMaxAttempts,
		pollInterval:    pollInterval,
		log:             log,
	}
}

// Provision creates exactly one remote wallet keyed by the new identity id
// and persists the mapping. There is no cross-provider rollback: a failed
// wallet creation leaves the identity account in place, and a failed
// mapping insert leaves the remote wallet orphaned at the provider. Both
// are surfaced, not undone.
func (s *WalletService) Provision(ctx context.Context, userID uuid.UUID) (*models.RemoteWallet, error) {
	wallet, err := s.custody.CreateWallet(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	link := &models.WalletLink{
		UserID:   userID,
		WalletID: wallet.ID,
		Address:  wallet.Address,
	}
	if err := s.links.Create(ctx, link); err != nil {
		s.log.Error("wallet link persist failed, remote wallet orphaned",
			zap.String("user_id", userID.String()),
			zap.String("wallet_id", wallet.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("wallet provisioned",
		zap.String("user_id", userID.String()),
		zap.String("wallet_id", wallet.ID),
		zap.String("status", wallet.Status),
	)

	go s.trackActivation(wallet.ID)
	return wallet, nil
}

// trackActivation runs the bounded post-signup poll and records the address
// into the mapping row and the status cache at the first ready observation.
// Failures only mean the address gets cached later, on the first authenticated
// wallet read.
func (s *WalletService) trackActivation(walletID string) {
	budget := time.Duration(s.pollMaxAttempts)*s.pollInterval + time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	wallet, err := s.custody.WaitReady(ctx, walletID, s.pollMaxAttempts, s.pollInterval)
	if err != nil {
		s.log.Warn("wallet still not ready after activation poll",
			zap.String("wallet_id", walletID),
			zap.Error(err),
		)
		return
	}

	if err := s.links.UpdateAddressByWalletID(ctx, walletID, *wallet.Address); err != nil {
		s.log.Warn("failed to cache wallet address", zap.String("wallet_id", walletID), zap.Error(err))
	}
	s.cache.SetReady(ctx, walletID, *wallet.Address)

	s.log.Info("wallet ready",
		zap.String("wallet_id", walletID),
		zap.String("address", *wallet.Address),
	)
}

// Get returns the full wallet view. The balance is read from the chain only
// once the custody provider reports the wallet ready; while creating, the
// balance is omitted.
func (s *WalletService) Get(ctx context.Context, userID uuid.UUID) (*WalletView, error) {
	link, err := s.links.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.custody.GetWallet(ctx, link.WalletID)
	if err != nil {
		return nil, err
	}

	view := &WalletView{
		ID:        wallet.ID,
		Type:      walletType,
		Status:    wallet.Status,
		Address:   wallet.Address,
		PublicKey: wallet.PublicKey,
	}
	if !wallet.Ready() {
		return view, nil
	}

	s.recordReady(ctx, userID, wallet, link)

	balance, err := s.chain.Balance(ctx, common.HexToAddress(*wallet.Address))
	if err != nil {
		return nil, err
	}
	view.Balance = &BalanceView{
		Wei: balance.String(),
		Eth: chain.FormatEther(balance),
	}
	return view, nil
}

// Status is the cheap variant: a cached ready observation answers without
// any provider call, and a miss costs one custody read but never a chain
// read.
func (s *WalletService) Status(ctx context.Context, userID uuid.UUID) (status string, address *string, err error) {
	link, err := s.links.GetByUserID(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	if addr, ok := s.cache.GetReady(ctx, link.WalletID); ok {
		return models.WalletStatusReady, &addr, nil
	}

	wallet, err := s.custody.GetWallet(ctx, link.WalletID)
	if err != nil {
		return "", nil, err
	}
	if wallet.Ready() {
		s.recordReady(ctx, userID, wallet, link)
	}
	return wallet.Status, wallet.Address, nil
}

// recordReady opportunistically persists a ready wallet's address to the
// mapping row and the cache.
func (s *WalletService) recordReady(ctx context.Context, userID uuid.UUID, wallet *models.RemoteWallet, link *models.WalletLink) {
	if link.Address == nil || *link.Address != *wallet.Address {
		if err := s.links.UpdateAddress(ctx, userID, *wallet.Address); err != nil {
			s.log.Warn("failed to cache wallet address", zap.String("wallet_id", wallet.ID), zap.Error(err))
		}
	}
	s.cache.SetReady(ctx, wallet.ID, *wallet.Address)
}
