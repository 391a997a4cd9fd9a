// Package auth keeps the stored access token usable: it decides when a token
// is expired, refreshes it against the authorization server and persists the
// result.
package auth

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/singleflight"

	"github.com/go-whoop/whoop-cli/apperr"
	"github.com/go-whoop/whoop-cli/credstore"
)

// RefreshBuffer is how long before expiry a token is treated as expired.
const RefreshBuffer = 5 * time.Minute

// Remediation messages shown to the user.
const (
	MsgNotAuthenticated   = `Not authenticated. Run "whoop auth login" to get started.`
	MsgSessionExpired     = `Session expired. Run "whoop auth login" to re-authenticate.`
	MsgNoRefreshToken     = `No refresh token available. Run "whoop auth login" to re-authenticate.`
	MsgMissingCredentials = `Missing client_id or client_secret. Set WHOOP_CLIENT_ID and WHOOP_CLIENT_SECRET environment variables, or run "whoop config set client_id <value>".`
)

// IsExpired reports whether rec must be refreshed at now.
func IsExpired(rec *credstore.Record, now time.Time) bool {
	if rec.ExpiresAt == credstore.NeverExpires {
		return false
	}
	return now.UnixMilli() >= rec.ExpiresAt-RefreshBuffer.Milliseconds()
}

// Refresher exchanges a refresh token at the token endpoint.
type Refresher interface {
	RefreshExchange(ctx context.Context, refreshToken, clientID, clientSecret string) (*TokenResponse, error)
}

// Store is the credential persistence the manager needs.
type Store interface {
	Load() *credstore.Record
	Save(rec *credstore.Record) error
}

// Manager hands out valid access tokens.
type Manager struct {
	store     Store
	creds     Credentials
	refresher Refresher
	now       func() time.Time
	logger    *log.Logger

	// refreshes collapses concurrent refreshes into one token request, so a
	// rotated refresh token is never spent twice.
	refreshes singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets a logger.
func WithLogger(logger *log.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a token manager. creds is consulted when the stored
// record carries no client credentials of its own.
func NewManager(store Store, creds Credentials, refresher Refresher, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		creds:     creds,
		refresher: refresher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = &log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: io.Discard}}
	}
	return m
}

// Refresh exchanges rec's refresh token and persists the merged record.
// Profile and client credentials survive the merge, and the previous refresh
// token is kept when the server doesn't rotate it.
func (m *Manager) Refresh(ctx context.Context, rec *credstore.Record) (*credstore.Record, error) {
	if rec == nil {
		return nil, apperr.New(apperr.NotAuthenticated, 0, MsgNotAuthenticated)
	}
	if rec.RefreshToken == "" {
		return nil, apperr.New(apperr.NoRefreshToken, 0, MsgNoRefreshToken)
	}

	clientID := firstNonEmpty(rec.ClientID, m.creds.ClientID())
	clientSecret := firstNonEmpty(rec.ClientSecret, m.creds.ClientSecret())
	if clientID == "" || clientSecret == "" {
		return nil, apperr.New(apperr.MissingCredentials, 0, MsgMissingCredentials)
	}

	m.logger.Debug().Msg("refreshing access token")

	tok, err := m.refresher.RefreshExchange(ctx, rec.RefreshToken, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	merged := rec.Clone()
	merged.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		merged.RefreshToken = tok.RefreshToken
	}
	merged.ExpiresAt = credstore.ExpiresAtFrom(m.now(), tok.ExpiresIn)
	if len(tok.Scopes) > 0 {
		merged.Scopes = tok.Scopes
	}

	if err := m.store.Save(merged); err != nil {
		return nil, err
	}

	m.logger.Debug().
		Int64("expires_at", merged.ExpiresAt).
		Bool("rotated", tok.RefreshToken != "").
		Msg("access token refreshed")
	return merged, nil
}

// ValidToken returns an access token that is usable now. forceRefresh skips
// the expiry check, which the API client uses after a 401. Tokens from
// WHOOP_ACCESS_TOKEN are returned as-is.
func (m *Manager) ValidToken(ctx context.Context, forceRefresh bool) (string, error) {
	rec := m.store.Load()
	if rec == nil {
		return "", apperr.New(apperr.NotAuthenticated, 0, MsgNotAuthenticated)
	}
	if rec.FromEnv {
		return rec.AccessToken, nil
	}

	if !forceRefresh && !IsExpired(rec, m.now()) {
		return rec.AccessToken, nil
	}

	v, err, shared := m.refreshes.Do("refresh", func() (any, error) {
		// a refresh that finished after rec was loaded already replaced it
		if cur := m.store.Load(); cur != nil && cur.AccessToken != rec.AccessToken && !IsExpired(cur, m.now()) {
			return cur, nil
		}
		return m.Refresh(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		m.logger.Debug().Err(err).Bool("forced", forceRefresh).Bool("shared", shared).Msg("token refresh failed")
		return "", apperr.Wrap(apperr.SessionExpired, 0, MsgSessionExpired, err)
	}
	return v.(*credstore.Record).AccessToken, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
