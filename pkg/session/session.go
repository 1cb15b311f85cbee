// Package session holds the connection settings and bearer token used to talk
// to a Jamf Pro server, and performs the basic-auth token exchange.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenPath is the endpoint exchanging basic credentials for a bearer token.
const TokenPath = "/api/auth/tokens"

// maxTokenResponse bounds the token payload read from the server.
const maxTokenResponse = 64 << 10

var authRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jamf_auth_requests_total",
	Help: "Token requests by outcome",
}, []string{"outcome"})

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Token is a bearer token with its expiry in seconds since the epoch.
type Token struct {
	Value   string `json:"token"`
	Expires uint64 `json:"expires"`
}

// ValidAt reports whether the token may still be used at now.
func (t Token) ValidAt(now time.Time) bool {
	if t.Value == "" {
		return false
	}
	secs := now.Unix()
	return secs >= 0 && uint64(secs) <= t.Expires
}

// Config holds the settings a session is created from.
type Config struct {
	Server   string
	Port     int // 0 = resolve from address
	Username string
	Password string
	Insecure bool
}

// Session is the authenticated connection context shared by every request of
// a batch. The token is only replaced by Authenticate.
type Session struct {
	address  Address
	username string
	password string
	insecure bool
	logger   zerolog.Logger

	mu    sync.RWMutex
	token *Token
}

// New normalizes the address and validates the credentials.
func New(cfg Config) (*Session, error) {
	addr, err := Normalize(cfg.Server, cfg.Port, cfg.Insecure)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(cfg.Username)
	password := strings.TrimSpace(cfg.Password)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrConfiguration)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrConfiguration)
	}

	return &Session{
		address:  addr,
		username: username,
		password: password,
		insecure: cfg.Insecure,
		logger:   log.With().Str("component", "session").Str("server", addr.BaseURL()).Logger(),
	}, nil
}

// Address returns the normalized server address.
func (s *Session) Address() Address {
	return s.address
}

// BaseURL returns the prefix every request URL is built on.
func (s *Session) BaseURL() string {
	return s.address.BaseURL()
}

// Username returns the API user.
func (s *Session) Username() string {
	return s.username
}

// Insecure reports whether plain HTTP / unverified TLS is allowed.
func (s *Session) Insecure() bool {
	return s.insecure
}

// Token returns a snapshot of the current token.
func (s *Session) Token() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return Token{}, false
	}
	return *s.token, true
}

// SetToken installs a token obtained elsewhere, e.g. in tests.
func (s *Session) SetToken(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &t
}

// TokenValid reports whether a token is present and not past its expiry.
func (s *Session) TokenValid(now time.Time) bool {
	t, ok := s.Token()
	return ok && t.ValidAt(now)
}

// Authenticate requests a new bearer token with basic auth. It makes exactly
// one request and never retries.
func (s *Session) Authenticate(ctx context.Context, doer Doer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.address.BaseURL()+TokenPath, nil)
	if err != nil {
		return &AuthenticationError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.SetBasicAuth(s.username, s.password)
	req.Header.Set("Accept", "application/json")

	s.logger.Debug().Str("path", TokenPath).Msg("Requesting token")

	resp, err := doer.Do(req)
	if err != nil {
		authRequestsTotal.WithLabelValues("network_error").Inc()
		s.logger.Error().Err(err).Msg("Token request failed")
		return &AuthenticationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		authRequestsTotal.WithLabelValues("rejected").Inc()
		s.logger.Error().Int("status", resp.StatusCode).Msg("Token request rejected")
		return &AuthenticationError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		authRequestsTotal.WithLabelValues("invalid_payload").Inc()
		return &AuthenticationError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("read token: %w", err)}
	}

	token, err := parseToken(body)
	if err != nil {
		authRequestsTotal.WithLabelValues("invalid_payload").Inc()
		s.logger.Error().Err(err).Msg("Token payload rejected")
		return &AuthenticationError{StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	s.mu.Lock()
	s.token = &token
	s.mu.Unlock()

	authRequestsTotal.WithLabelValues("success").Inc()
	s.logger.Info().
		Time("expires", time.Unix(int64(token.Expires), 0)).
		Msg("Authenticated")

	return nil
}

func parseToken(body []byte) (Token, error) {
	var t Token
	if err := json.Unmarshal(body, &t); err != nil {
		return Token{}, fmt.Errorf("parse token: %w", err)
	}
	if t.Value == "" {
		return Token{}, fmt.Errorf("parse token: empty token")
	}
	return t, nil
}
