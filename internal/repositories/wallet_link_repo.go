package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/walletflow/backend/internal/apperr"
	"github.com/walletflow/backend/internal/models"
)

const pgUniqueViolation = "23505"

// WalletLinkRepo is the address book: one row per user mapping the identity
// id to the custody wallet id.
type WalletLinkRepo struct {
	pool *pgxpool.Pool
}

func NewWalletLinkRepo(pool *pgxpool.Pool) *WalletLinkRepo {
	return &WalletLinkRepo{pool: pool}
}

func (r *WalletLinkRepo) Create(ctx context.Context, link *models.WalletLink) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wallet_links (user_id, wallet_id, address)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, link.UserID, link.WalletID, link.Address).Scan(&link.CreatedAt, &link.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.Conflict("wallet already provisioned for user %s", link.UserID)
	}
	if err != nil {
		return apperr.Upstream("failed to persist wallet link", err)
	}
	return nil
}

func (r *WalletLinkRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.WalletLink, error) {
	var link models.WalletLink
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, wallet_id, address, created_at, updated_at
		FROM wallet_links WHERE user_id = $1
	`, userID).Scan(&link.UserID, &link.WalletID, &link.Address, &link.CreatedAt, &link.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no wallet for user %s", userID)
	}
	if err != nil {
		return nil, apperr.Upstream("failed to load wallet link", err)
	}
	return &link, nil
}

// UpdateAddress caches the chain address once the custody provider reports
// it. Writing the same address twice is harmless.
func (r *WalletLinkRepo) UpdateAddress(ctx context.Context, userID uuid.UUID, address string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE wallet_links SET address = $1, updated_at = now()
		WHERE user_id = $2
	`, address, userID)
	if err != nil {
		return apperr.Upstream("failed to cache wallet address", err)
	}
	return nil
}

// UpdateAddressByWalletID is the variant used by the background activation
// poll, which only knows the custody wallet id.
func (r *WalletLinkRepo) UpdateAddressByWalletID(ctx context.Context, walletID, address string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE wallet_links SET address = $1, updated_at = now()
		WHERE wallet_id = $2
	`, address, walletID)
	if err != nil {
		return apperr.Upstream("failed to cache wallet address", err)
	}
	return nil
}
