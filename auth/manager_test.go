package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-whoop/whoop-cli/apperr"
	"github.com/go-whoop/whoop-cli/config"
	"github.com/go-whoop/whoop-cli/credstore"
)

type fakeRefresher struct {
	mu    sync.Mutex
	delay time.Duration
	calls int
	got   struct{ refreshToken, clientID, clientSecret string }
	resp  *TokenResponse
	err   error
}

func (f *fakeRefresher) RefreshExchange(
	_ context.Context,
	refreshToken, clientID, clientSecret string,
) (*TokenResponse, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got.refreshToken = refreshToken
	f.got.clientID = clientID
	f.got.clientSecret = clientSecret
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, rec *credstore.Record, r *fakeRefresher) (*Manager, *credstore.Store) {
	t.Helper()
	t.Setenv(config.EnvAccessToken, "")
	store := credstore.New(filepath.Join(t.TempDir(), "cfg"))
	if rec != nil {
		require.NoError(t, store.Save(rec))
	}
	m := NewManager(store, staticCreds{"cfg-id", "cfg-secret"}, r, WithClock(func() time.Time { return fixedNow }))
	return m, store
}

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"one hour left", fixedNow.Add(time.Hour), false},
		{"just outside buffer", fixedNow.Add(RefreshBuffer + time.Second), false},
		{"exactly at buffer", fixedNow.Add(RefreshBuffer), true},
		{"inside buffer", fixedNow.Add(RefreshBuffer - time.Second), true},
		{"already expired", fixedNow.Add(-time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &credstore.Record{ExpiresAt: tt.expiresAt.UnixMilli()}
			assert.Equal(t, tt.want, IsExpired(rec, fixedNow))
		})
	}

	assert.False(t, IsExpired(&credstore.Record{ExpiresAt: credstore.NeverExpires}, fixedNow))
}

func TestValidToken_NotAuthenticated(t *testing.T) {
	m, _ := newTestManager(t, nil, &fakeRefresher{})
	_, err := m.ValidToken(context.Background(), false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotAuthenticated))
}

func TestValidToken_FreshTokenNoRefresh(t *testing.T) {
	r := &fakeRefresher{}
	m, _ := newTestManager(t, &credstore.Record{
		AccessToken:  "current",
		RefreshToken: "rt",
		ExpiresAt:    fixedNow.Add(time.Hour).UnixMilli(),
	}, r)

	tok, err := m.ValidToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "current", tok)
	assert.Zero(t, r.calls)
}

func TestValidToken_ExpiredRefreshesAndMerges(t *testing.T) {
	r := &fakeRefresher{resp: &TokenResponse{AccessToken: "fresh", ExpiresIn: time.Hour}}
	profile := &credstore.Profile{UserID: 7, FirstName: "Sam"}
	m, store := newTestManager(t, &credstore.Record{
		AccessToken:  "stale",
		RefreshToken: "old-rt",
		ExpiresAt:    fixedNow.Add(time.Minute).UnixMilli(),
		ClientID:     "rec-id",
		ClientSecret: "rec-secret",
		Scopes:       []string{"offline"},
		Profile:      profile,
	}, r)

	tok, err := m.ValidToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Equal(t, 1, r.calls)

	// stored client credentials take priority over configured ones
	assert.Equal(t, "old-rt", r.got.refreshToken)
	assert.Equal(t, "rec-id", r.got.clientID)
	assert.Equal(t, "rec-secret", r.got.clientSecret)

	store.ResetCache()
	saved := store.Load()
	require.NotNil(t, saved)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "old-rt", saved.RefreshToken)
	assert.Equal(t, fixedNow.Add(time.Hour).UnixMilli(), saved.ExpiresAt)
	assert.Equal(t, []string{"offline"}, saved.Scopes)
	assert.Equal(t, profile, saved.Profile)
	assert.Equal(t, "rec-id", saved.ClientID)
}

func TestRefresh_RotatesRefreshTokenAndScopes(t *testing.T) {
	r := &fakeRefresher{resp: &TokenResponse{
		AccessToken:  "fresh",
		RefreshToken: "new-rt",
		ExpiresIn:    30 * time.Minute,
		Scopes:       []string{"offline", "read:sleep"},
	}}
	m, _ := newTestManager(t, nil, r)

	out, err := m.Refresh(context.Background(), &credstore.Record{AccessToken: "a", RefreshToken: "old"})
	require.NoError(t, err)
	assert.Equal(t, "new-rt", out.RefreshToken)
	assert.Equal(t, []string{"offline", "read:sleep"}, out.Scopes)

	// configured credentials fill in when the record has none
	assert.Equal(t, "cfg-id", r.got.clientID)
	assert.Equal(t, "cfg-secret", r.got.clientSecret)
}

func TestValidToken_ForceRefresh(t *testing.T) {
	r := &fakeRefresher{resp: &TokenResponse{AccessToken: "forced", ExpiresIn: time.Hour}}
	m, _ := newTestManager(t, &credstore.Record{
		AccessToken:  "still-valid",
		RefreshToken: "rt",
		ExpiresAt:    fixedNow.Add(time.Hour).UnixMilli(),
	}, r)

	tok, err := m.ValidToken(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "forced", tok)
	assert.Equal(t, 1, r.calls)
}

func TestValidToken_ConcurrentForcedRefreshShareOneRequest(t *testing.T) {
	r := &fakeRefresher{
		delay: 200 * time.Millisecond,
		resp:  &TokenResponse{AccessToken: "fresh", RefreshToken: "rotated", ExpiresIn: time.Hour},
	}
	m, store := newTestManager(t, &credstore.Record{
		AccessToken:  "rejected",
		RefreshToken: "rt",
		ExpiresAt:    fixedNow.Add(time.Hour).UnixMilli(),
	}, r)

	const callers = 6
	var (
		wg     sync.WaitGroup
		start  = make(chan struct{})
		tokens = make([]string, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			tok, err := m.ValidToken(context.Background(), true)
			assert.NoError(t, err)
			tokens[i] = tok
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, r.calls)
	assert.Equal(t, "rt", r.got.refreshToken)
	for _, tok := range tokens {
		assert.Equal(t, "fresh", tok)
	}
	assert.Equal(t, "rotated", store.Load().RefreshToken)
}

func TestValidToken_EnvTokenBypassesRefresh(t *testing.T) {
	r := &fakeRefresher{}
	m, _ := newTestManager(t, nil, r)
	t.Setenv(config.EnvAccessToken, "env-token")

	for _, force := range []bool{false, true} {
		tok, err := m.ValidToken(context.Background(), force)
		require.NoError(t, err)
		assert.Equal(t, "env-token", tok)
	}
	assert.Zero(t, r.calls)
}

func TestValidToken_RefreshFailuresBecomeSessionExpired(t *testing.T) {
	tests := []struct {
		name      string
		rec       *credstore.Record
		creds     staticCreds
		err       error
		wantCause apperr.Kind
	}{
		{
			name:      "no refresh token",
			rec:       &credstore.Record{AccessToken: "a"},
			creds:     staticCreds{"id", "secret"},
			wantCause: apperr.NoRefreshToken,
		},
		{
			name:      "missing client credentials",
			rec:       &credstore.Record{AccessToken: "a", RefreshToken: "rt"},
			wantCause: apperr.MissingCredentials,
		},
		{
			name:  "token endpoint rejects",
			rec:   &credstore.Record{AccessToken: "a", RefreshToken: "rt"},
			creds: staticCreds{"id", "secret"},
			err:   ErrRefreshTokenExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvAccessToken, "")
			store := credstore.New(t.TempDir())
			require.NoError(t, store.Save(tt.rec))
			r := &fakeRefresher{err: tt.err}
			m := NewManager(store, tt.creds, r, WithClock(func() time.Time { return fixedNow }))

			_, err := m.ValidToken(context.Background(), false)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.SessionExpired))

			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.Equal(t, tt.wantCause, apperr.KindOf(appErr.Err))
			}

			// a failed refresh leaves the stored record untouched
			store.ResetCache()
			assert.Equal(t, "a", store.Load().AccessToken)
		})
	}
}
