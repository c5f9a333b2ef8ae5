// Package auth resolves console bearer tokens. Tokens are issued and
// verified by the external auth service; this package pre-checks them
// locally to avoid a network call for obviously bad tokens, then asks the
// service who the caller is.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ecologiciel/gemini-rag-master/internal/accounts"
)

const defaultTimeout = 10 * time.Second

// RoleSource maps a user ID to its console role.
type RoleSource interface {
	Role(ctx context.Context, userID string) accounts.Role
}

// Gate authenticates bearer tokens against the external auth service.
type Gate struct {
	baseURL    string
	serviceKey string
	roles      RoleSource
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGate(log *slog.Logger, baseURL, serviceKey string, roles RoleSource) *Gate {
	return &Gate{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		roles:      roles,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.With(slog.String("service", "auth")),
	}
}

// Resolve turns an Authorization header value into an Identity. Malformed
// and expired tokens fail locally; everything else is the auth service's
// verdict. The signature is never checked here, only upstream.
func (g *Gate) Resolve(ctx context.Context, header string) (Identity, error) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer"))
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	if err := precheck(token); err != nil {
		return Identity{}, err
	}

	userID, email, err := g.fetchUser(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		UserID: userID,
		Email:  email,
		Role:   g.roles.Role(ctx, userID),
	}, nil
}

// precheck parses the token without verifying it, rejecting garbage and
// expired tokens before any network traffic.
func precheck(token string) error {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("%w: malformed token", ErrUnauthorized)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("%w: bad expiry claim", ErrUnauthorized)
	}
	if exp != nil && exp.Before(time.Now()) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, ErrTokenExpired)
	}
	return nil
}

func (g *Gate) fetchUser(ctx context.Context, token string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", g.serviceKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("call auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		g.logger.Debug("auth service rejected token",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return "", "", fmt.Errorf("%w: auth service returned %d", ErrUnauthorized, resp.StatusCode)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", "", fmt.Errorf("decode auth response: %w", err)
	}
	if user.ID == "" {
		return "", "", fmt.Errorf("%w: auth response missing user id", ErrUnauthorized)
	}
	return user.ID, user.Email, nil
}
