package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/apperr"
	"github.com/walletflow/backend/internal/models"
)

type walletEnv struct {
	links   *mockLinks
	custody *mockCustody
	chain   *mockChain
	cache   *fakeCache
	svc     *WalletService
}

func newWalletEnv(t *testing.T) *walletEnv {
	t.Helper()
	env := &walletEnv{
		links:   newMockLinks(),
		custody: newMockCustody(),
		chain:   newMockChain(),
		cache:   newFakeCache(),
	}
	env.svc = NewWalletService(env.links, env.custody, env.chain, env.cache, 3, time.Millisecond, zap.NewNop())
	return env
}

func TestProvisionPersistsMapping(t *testing.T) {
	env := newWalletEnv(t)
	userID := uuid.New()
	env.custody.created = &models.RemoteWallet{ID: "wlt_new", Status: models.WalletStatusCreating}

	addr := "0x8ba1f109551bd432803012645ac136ddd64dba72"
	env.custody.waitResult = &models.RemoteWallet{ID: "wlt_new", Status: models.WalletStatusReady, Address: &addr}

	wallet, err := env.svc.Provision(context.Background(), userID)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if wallet.Status != models.WalletStatusCreating {
		t.Errorf("status = %q, want creating", wallet.Status)
	}

	link, err := env.links.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("mapping row missing: %v", err)
	}
	if link.WalletID != "wlt_new" {
		t.Errorf("wallet id = %q, want wlt_new", link.WalletID)
	}

	// Background activation poll records the address once ready.
	select {
	case <-env.links.updatedByWallet:
	case <-time.After(2 * time.Second):
		t.Fatal("activation poll never recorded the address")
	}
	if cached, ok := env.cache.lookup("wlt_new"); !ok || cached != addr {
		t.Errorf("cache = %q,%v, want ready address", cached, ok)
	}
}

func TestProvisionCustodyFailureCreatesNoMapping(t *testing.T) {
	env := newWalletEnv(t)
	env.custody.createErr = apperr.Upstream("custody provider returned 500", nil)

	_, err := env.svc.Provision(context.Background(), uuid.New())
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("kind = %s, want upstream_error", apperr.KindOf(err))
	}
	if env.links.createCalls != 0 {
		t.Errorf("mapping insert attempted %d times after custody failure", env.links.createCalls)
	}
}

func TestProvisionMappingConflictSurfaced(t *testing.T) {
	env := newWalletEnv(t)
	env.custody.created = &models.RemoteWallet{ID: "wlt_dup", Status: models.WalletStatusCreating}
	env.links.createErr = apperr.Conflict("wallet already provisioned")

	_, err := env.svc.Provision(context.Background(), uuid.New())
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("kind = %s, want conflict", apperr.KindOf(err))
	}
}

func TestStatusServedFromCache(t *testing.T) {
	env := newWalletEnv(t)
	userID := uuid.New()
	env.links.links[userID] = &models.WalletLink{UserID: userID, WalletID: "wlt_1"}
	env.cache.m["wlt_1"] = "0x8ba1f109551bd432803012645ac136ddd64dba72"

	status, address, err := env.svc.Status(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.WalletStatusReady || address == nil {
		t.Errorf("status = %q address = %v, want ready with address", status, address)
	}
	if env.custody.getCalls != 0 {
		t.Errorf("custody calls = %d, want 0 on cache hit", env.custody.getCalls)
	}
	if env.chain.totalCalls() != 0 {
		t.Errorf("chain calls = %d, want 0", env.chain.totalCalls())
	}
}

func TestStatusCacheMissReadsCustodyOnce(t *testing.T) {
	env := newWalletEnv(t)
	userID := uuid.New()
	env.links.links[userID] = &models.WalletLink{UserID: userID, WalletID: "wlt_1"}
	env.custody.addReadyWallet("wlt_1")

	status, address, err := env.svc.Status(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.WalletStatusReady || address == nil {
		t.Fatalf("status = %q, want ready", status)
	}
	if env.custody.getCalls != 1 {
		t.Errorf("custody calls = %d, want 1", env.custody.getCalls)
	}
	if env.chain.totalCalls() != 0 {
		t.Errorf("chain calls = %d, want 0 for cheap status", env.chain.totalCalls())
	}

	// Ready observation is terminal: next read is a cache hit.
	if _, ok := env.cache.lookup("wlt_1"); !ok {
		t.Error("ready status not cached")
	}
	if _, _, err := env.svc.Status(context.Background(), userID); err != nil {
		t.Fatal(err)
	}
	if env.custody.getCalls != 1 {
		t.Errorf("custody calls = %d after second read, want still 1", env.custody.getCalls)
	}
}

func TestStatusWhileCreating(t *testing.T) {
	env := newWalletEnv(t)
	userID := uuid.New()
	env.links.links[userID] = &models.WalletLink{UserID: userID, WalletID: "wlt_1"}
	env.custody.addCreatingWallet("wlt_1")

	status, address, err := env.svc.Status(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.WalletStatusCreating || address != nil {
		t.Errorf("status = %q address = %v, want creating with nil address", status, address)
	}
	if _, ok := env.cache.lookup("wlt_1"); ok {
		t.Error("creating status must not be cached")
	}

	// Repeated polling is idempotent and keeps asking the provider.
	if _, _, err := env.svc.Status(context.Background(), userID); err != nil {
		t.Fatal(err)
	}
	if env.custody.getCalls != 2 {
		t.Errorf("custody calls = %d, want 2", env.custody.getCalls)
	}
}

func TestGetOmitsBalanceWhileCreating(t *testing.T) {
	env := newWalletEnv(t)
	userID := uuid.New()
	env.links.links[userID] = &models.WalletLink{UserID: userID, WalletID: "wlt_1"}
	env.custody.addCreatingWallet("wlt_1")

	view, err := env.svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Balance != nil {
		t.Error("balance present while creating")
	}
	if env.chain.balanceCalls != 0 {
		t.Errorf("balance RPC calls = %d, want 0", env.chain.balanceCalls)
	}
}

func TestGetIncludesBalanceWhenReady(t *testing.T) {
	env := newWalletEnv(t)
	userID := uuid.New()
	env.links.links[userID] = &models.WalletLink{UserID: userID, WalletID: "wlt_1"}
	env.custody.addReadyWallet("wlt_1")

	view, err := env.svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Type != walletType || view.Status != models.WalletStatusReady {
		t.Errorf("view = %+v", view)
	}
	if view.Balance == nil {
		t.Fatal("balance missing for ready wallet")
	}
	if view.Balance.Wei != "2000000000000000000" || view.Balance.Eth != "2" {
		t.Errorf("balance = %+v", view.Balance)
	}

	// Address lands in the mapping row opportunistically.
	link, _ := env.links.GetByUserID(context.Background(), userID)
	if link.Address == nil {
		t.Error("address not cached on mapping row")
	}
}

func TestGetUnknownUser(t *testing.T) {
	env := newWalletEnv(t)
	if _, err := env.svc.Get(context.Background(), uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("kind = %s, want not_found", apperr.KindOf(err))
	}
}
