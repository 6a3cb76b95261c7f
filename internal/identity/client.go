// Package identity wraps the remote identity provider's REST API. Signup
// and password login are delegated entirely to the provider; this system
// never stores credentials.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/apperr"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is the provider's response to both signup and password login:
// the user plus a live session (the provider auto-confirms accounts).
type AuthResult struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, apiKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authRequest(ctx, "/auth/v1/signup", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authRequest(ctx, "/auth/v1/token?grant_type=password", email, password)
}

func (c *Client) authRequest(ctx context.Context, path, email, password string) (*AuthResult, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("identity provider unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	// The provider returns the session at the top level with the user
	// embedded.
	var raw struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		User         User   `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperr.Upstream("identity provider returned malformed response", err)
	}
	if raw.User.ID == uuid.Nil {
		return nil, apperr.Upstream("identity provider response missing user id", nil)
	}

	return &AuthResult{
		User: raw.User,
		Session: Session{
			AccessToken:  raw.AccessToken,
			TokenType:    raw.TokenType,
			ExpiresIn:    raw.ExpiresIn,
			RefreshToken: raw.RefreshToken,
		},
	}, nil
}

// asError translates a provider error response into the local taxonomy,
// keeping the provider's own description in the message.
func (c *Client) asError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var pe struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
	}
	desc := ""
	if err := json.Unmarshal(body, &pe); err == nil {
		desc = pe.ErrorDescription
		if desc == "" {
			desc = pe.Msg
		}
		if desc == "" {
			desc = pe.Error
		}
	}
	if desc == "" {
		desc = string(body)
	}

	c.log.Debug("identity provider error",
		zap.Int("status", resp.StatusCode),
		zap.String("description", desc),
	)

	msg := fmt.Sprintf("identity provider: %s", desc)
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apperr.New(apperr.KindBadRequest, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.New(apperr.KindUnauthorized, msg)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return apperr.New(apperr.KindConflict, msg)
	default:
		return apperr.Upstream(fmt.Sprintf("identity provider returned %d: %s", resp.StatusCode, desc), nil)
	}
}
