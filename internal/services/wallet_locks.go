package services

import "sync"

// walletLocks serializes sends per wallet. Two concurrent sends for one
// wallet would read the same pending nonce and race to broadcast; holding
// the wallet's lock from nonce read through broadcast removes that race.
// Distinct wallets never contend. Locks are never evicted: one mutex per
// active wallet is negligible.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the named wallet and returns the release func.
func (w *walletLocks) acquire(walletID string) func() {
	w.mu.Lock()
	l, ok := w.locks[walletID]
	if !ok {
		l = &sync.Mutex{}
		w.locks[walletID] = l
	}
	w.mu.Unlock()

	l.Lock()
	return l.Unlock
}
