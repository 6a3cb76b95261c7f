package services

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/walletflow/backend/internal/apperr"
	"github.com/walletflow/backend/internal/chain"
	"github.com/walletflow/backend/internal/models"
)

type mockLinks struct {
	mu        sync.Mutex
	links     map[uuid.UUID]*models.WalletLink
	createErr error

	createCalls     int
	updatedByWallet chan string
}

func newMockLinks() *mockLinks {
	return &mockLinks{
		links:           make(map[uuid.UUID]*models.WalletLink),
		updatedByWallet: make(chan string, 8),
	}
}

func (m *mockLinks) Create(ctx context.Context, link *models.WalletLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.links[link.UserID] = link
	return nil
}

func (m *mockLinks) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.WalletLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[userID]
	if !ok {
		return nil, apperr.NotFound("no wallet for user %s", userID)
	}
	return link, nil
}

func (m *mockLinks) UpdateAddress(ctx context.Context, userID uuid.UUID, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link, ok := m.links[userID]; ok {
		link.Address = &address
	}
	return nil
}

func (m *mockLinks) UpdateAddressByWalletID(ctx context.Context, walletID, address string) error {
	m.mu.Lock()
	for _, link := range m.links {
		if link.WalletID == walletID {
			link.Address = &address
		}
	}
	m.mu.Unlock()
	m.updatedByWallet <- walletID
	return nil
}

// mockCustody signs with a real secp256k1 key so reassembled signatures
// recover to the mock wallet's address.
type mockCustody struct {
	mu      sync.Mutex
	wallets map[string]*models.RemoteWallet
	key     *ecdsa.PrivateKey

	created    *models.RemoteWallet
	createErr  error
	waitResult *models.RemoteWallet
	waitErr    error

	createCalls int
	getCalls    int
	signCalls   int
	waitCalls   int
}

func newMockCustody() *mockCustody {
	key, _ := crypto.GenerateKey()
	return &mockCustody{
		wallets: make(map[string]*models.RemoteWallet),
		key:     key,
		waitErr: apperr.Upstream("wait not configured", nil),
	}
}

func (m *mockCustody) address() common.Address {
	return crypto.PubkeyToAddress(m.key.PublicKey)
}

// addReadyWallet registers a ready wallet backed by the mock signing key.
func (m *mockCustody) addReadyWallet(id string) common.Address {
	addr := m.address()
	hex := addr.Hex()
	m.wallets[id] = &models.RemoteWallet{ID: id, Status: models.WalletStatusReady, Address: &hex}
	return addr
}

func (m *mockCustody) addCreatingWallet(id string) {
	m.wallets[id] = &models.RemoteWallet{ID: id, Status: models.WalletStatusCreating}
}

func (m *mockCustody) CreateWallet(ctx context.Context, externalID string) (*models.RemoteWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.created, nil
}

func (m *mockCustody) GetWallet(ctx context.Context, walletID string) (*models.RemoteWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	wallet, ok := m.wallets[walletID]
	if !ok {
		return nil, apperr.NotFound("custody wallet %s not found", walletID)
	}
	return wallet, nil
}

func (m *mockCustody) WaitReady(ctx context.Context, walletID string, maxAttempts int, interval time.Duration) (*models.RemoteWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitCalls++
	if m.waitErr != nil && m.waitResult == nil {
		return nil, m.waitErr
	}
	return m.waitResult, nil
}

func (m *mockCustody) SignHash(ctx context.Context, walletID string, hash common.Hash) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signCalls++
	return crypto.Sign(hash.Bytes(), m.key)
}

type mockChain struct {
	mu sync.Mutex

	chainID *big.Int
	nonce   uint64
	balance *big.Int
	fees    *chain.FeeEstimate

	receipt    *types.Receipt
	receiptErr error
	tx         *types.Transaction

	broadcastErr  error
	lastBroadcast *types.Transaction

	nonceCalls     int
	feeCalls       int
	balanceCalls   int
	broadcastCalls int
	receiptCalls   int
	txCalls        int
}

func newMockChain() *mockChain {
	return &mockChain{
		chainID: big.NewInt(11155111),
		nonce:   5,
		balance: big.NewInt(2_000_000_000_000_000_000),
		fees: &chain.FeeEstimate{
			GasTipCap: big.NewInt(1_000_000_000),
			GasFeeCap: big.NewInt(30_000_000_000),
		},
	}
}

func (m *mockChain) ChainID() *big.Int { return m.chainID }

func (m *mockChain) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceCalls++
	return m.balance, nil
}

func (m *mockChain) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonceCalls++
	return m.nonce, nil
}

func (m *mockChain) EstimateFees(ctx context.Context) (*chain.FeeEstimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeCalls++
	return m.fees, nil
}

func (m *mockChain) Broadcast(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastCalls++
	m.lastBroadcast = tx
	return m.broadcastErr
}

func (m *mockChain) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptCalls++
	if m.receiptErr != nil {
		return nil, m.receiptErr
	}
	return m.receipt, nil
}

func (m *mockChain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++
	return m.tx, false, nil
}

// totalCalls counts every RPC the mock has seen.
func (m *mockChain) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonceCalls + m.feeCalls + m.balanceCalls + m.broadcastCalls + m.receiptCalls + m.txCalls
}

type fakeCache struct {
	mu sync.Mutex
	m  map[string]string

	gets int
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: make(map[string]string)}
}

func (c *fakeCache) GetReady(ctx context.Context, walletID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	addr, ok := c.m[walletID]
	return addr, ok
}

func (c *fakeCache) SetReady(ctx context.Context, walletID, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.m[walletID] = address
}

func (c *fakeCache) lookup(walletID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.m[walletID]
	return addr, ok
}
