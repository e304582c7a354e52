// Package identity verifica bearer tokens contra el servicio de identidad del
// backend y los traduce a un actor id opaco.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"care-ledger/internal/platform/httpclient"
	"care-ledger/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("identity verifier not configured")
	ErrUnauthorized  = errors.New("identity unauthorized")
	ErrUpstream      = errors.New("identity upstream error")
	ErrTokenEmpty    = errors.New("token is empty")
)

const defaultVerifyPath = "/auth/v1/user"

type Config struct {
	BaseURL string
	APIKey  string // header apikey; opcional

	// Path del endpoint que devuelve el usuario del token (default /auth/v1/user).
	VerifyPath string

	Timeout time.Duration
}

// Verifier implementa auth.AuthVerifier.
type Verifier struct {
	c    *httpclient.Client
	path string
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	headers := map[string]string{}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		headers["apikey"] = key
	}
	c, err := httpclient.New(httpclient.Options{BaseURL: cfg.BaseURL, Timeout: timeout, Headers: headers})
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(cfg.VerifyPath)
	if path == "" {
		path = defaultVerifyPath
	}
	return &Verifier{c: c, path: path}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.c == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var out struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
	}
	err := v.c.Do(ctx, httpclient.Request{
		Path:    v.path,
		Headers: map[string]string{"Authorization": "Bearer " + token},
	}, &out)
	switch {
	case err == nil:
	case httpclient.IsStatus(err, http.StatusUnauthorized, http.StatusForbidden):
		return auth.Claims{}, ErrUnauthorized
	default:
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	actor := strings.TrimSpace(out.ID)
	if actor == "" {
		actor = strings.TrimSpace(out.UserID)
	}
	if actor == "" {
		return auth.Claims{}, fmt.Errorf("%w: response missing user id", ErrUpstream)
	}
	return auth.Claims{ActorID: actor}, nil
}
