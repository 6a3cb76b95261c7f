package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	WalletStatusCreating = "creating"
	WalletStatusReady    = "ready"
)

// WalletLink is the one persisted row per user: the mapping from the
// identity-provider user id to the custody-provider wallet id, plus an
// opportunistically cached chain address. Never deleted in normal operation.
type WalletLink struct {
	UserID    uuid.UUID `json:"user_id"`
	WalletID  string    `json:"wallet_id"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemoteWallet is the custody provider's view of a wallet, fetched on
// demand. Its Creating→Ready transition happens asynchronously inside the
// provider; this system only observes it by polling.
type RemoteWallet struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Address   *string `json:"address"`
	PublicKey *string `json:"publicKey"`
}

func (w *RemoteWallet) Ready() bool {
	return w.Status == WalletStatusReady && w.Address != nil && *w.Address != ""
}
