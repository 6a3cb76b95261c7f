// Package custody wraps the remote wallet-custody provider's HTTP API.
// Key shares and signing live entirely inside the provider's MPC service;
// this client only ever sees wallet metadata and detached signatures.
package custody

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/apperr"
	"github.com/walletflow/backend/internal/models"
)

// ErrActivationTimeout is returned by WaitReady once the attempt budget is
// exhausted without the wallet reaching ready state.
var ErrActivationTimeout = errors.New("wallet activation timed out")

type providerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e providerError) Error() string {
	return fmt.Sprintf("custody API error (%s): %s", e.Code, e.Message)
}

type Client struct {
	baseURL    string
	apiKey     string
	signingKey *rsa.PrivateKey
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient builds a custody client. signingKeyPEM is the RSA private key
// registered with the provider; every request carries a short-lived JWT
// signed with it in addition to the API key header.
func NewClient(baseURL, apiKey, signingKeyPEM string, log *zap.Logger) (*Client, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(signingKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse custody signing key: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		signingKey: key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}, nil
}

// CreateWallet provisions one MPC wallet keyed by the caller-supplied
// external id. The provider enforces one wallet per external id; the wallet
// comes back in creating state and transitions to ready asynchronously.
func (c *Client) CreateWallet(ctx context.Context, externalID string) (*models.RemoteWallet, error) {
	body := map[string]string{"externalId": externalID, "type": "mpc"}

	var wallet models.RemoteWallet
	if err := c.request(ctx, http.MethodPost, "/v1/wallets", body, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *Client) GetWallet(ctx context.Context, walletID string) (*models.RemoteWallet, error) {
	var wallet models.RemoteWallet
	if err := c.request(ctx, http.MethodGet, "/v1/wallets/"+walletID, nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// SignHash submits an opaque 32-byte digest for threshold signing and
// returns the 65-byte recoverable secp256k1 signature (r || s || v).
func (c *Client) SignHash(ctx context.Context, walletID string, hash common.Hash) ([]byte, error) {
	body := map[string]string{"hash": hash.Hex()}

	var result struct {
		Signature string `json:"signature"`
	}
	if err := c.request(ctx, http.MethodPost, "/v1/wallets/"+walletID+"/sign", body, &result); err != nil {
		return nil, err
	}

	sig, err := hexutil.Decode(result.Signature)
	if err != nil {
		return nil, apperr.Upstream("custody provider returned malformed signature", err)
	}
	if len(sig) != 65 {
		return nil, apperr.Upstream(fmt.Sprintf("custody provider returned %d-byte signature, want 65", len(sig)), nil)
	}
	return sig, nil
}

// WaitReady polls the wallet until the provider reports it ready, up to
// maxAttempts fetches spaced interval apart. The provider offers no push
// notification, so a bounded busy-poll is the only option.
func (c *Client) WaitReady(ctx context.Context, walletID string, maxAttempts int, interval time.Duration) (*models.RemoteWallet, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		wallet, err := c.GetWallet(ctx, walletID)
		if err != nil {
			return nil, err
		}
		if wallet.Ready() {
			return wallet, nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, apperr.Wrap(apperr.KindUpstream,
		fmt.Sprintf("wallet %s not ready after %d attempts", walletID, maxAttempts), ErrActivationTimeout)
}

func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	token, err := c.signRequestJWT(path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to sign custody request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream("custody provider unavailable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Upstream("failed to read custody response", err)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperr.Upstream("custody provider returned malformed response", err)
		}
		return nil
	}

	return c.asError(resp.StatusCode, respBody)
}

func (c *Client) asError(status int, body []byte) error {
	var pe providerError
	if err := json.Unmarshal(body, &pe); err != nil || pe.Message == "" {
		pe = providerError{Code: "UNKNOWN", Message: string(body)}
	}

	c.log.Debug("custody provider error",
		zap.Int("status", status),
		zap.String("code", pe.Code),
	)

	switch {
	case status == http.StatusNotFound:
		return apperr.Wrap(apperr.KindNotFound, "custody wallet not found", pe)
	case pe.Code == "WALLET_NOT_READY":
		return apperr.Wrap(apperr.KindWalletNotReady, pe.Message, nil)
	case status == http.StatusConflict:
		return apperr.Wrap(apperr.KindConflict, "custody wallet already exists", pe)
	default:
		return apperr.Upstream(fmt.Sprintf("custody provider returned %d", status), pe)
	}
}

// signRequestJWT produces the provider's per-request auth token: a
// short-lived RS256 JWT binding the request path and a digest of the body.
func (c *Client) signRequestJWT(uri string, body []byte) (string, error) {
	now := time.Now().Unix()
	digest := sha256.Sum256(body)

	claims := jwt.MapClaims{
		"uri":      uri,
		"nonce":    uuid.New().String(),
		"iat":      now,
		"exp":      now + 30,
		"sub":      c.apiKey,
		"bodyHash": hex.EncodeToString(digest[:]),
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.signingKey)
}
