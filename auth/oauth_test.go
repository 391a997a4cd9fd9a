package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticCreds struct {
	id, secret string
}

func (c staticCreds) ClientID() string     { return c.id }
func (c staticCreds) ClientSecret() string { return c.secret }

func newTestOAuthClient(t *testing.T, handler http.HandlerFunc) *OAuthClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOAuthClient(staticCreds{"cid", "csecret"}, WithOAuthBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestAuthCodeURL(t *testing.T) {
	c, err := NewOAuthClient(staticCreds{"cid", "csecret"})
	require.NoError(t, err)

	raw := c.AuthCodeURL("http://localhost:8080/callback", "abc123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "https://api.prod.whoop.com/oauth/oauth2/auth", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/callback", q.Get("redirect_uri"))
	assert.Equal(t, "abc123", q.Get("state"))
	assert.Equal(t, ScopeString(), q.Get("scope"))
	assert.Empty(t, q.Get("client_secret"))
}

func TestExchange(t *testing.T) {
	var form url.Values
	c := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access-token",
			"refresh_token": "new-refresh-token",
			"token_type":    "bearer",
			"expires_in":    3600,
			"scope":         "offline read:sleep",
		})
	})

	tok, err := c.Exchange(context.Background(), "the-code", "http://localhost:9/callback")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "http://localhost:9/callback", form.Get("redirect_uri"))
	assert.Equal(t, "cid", form.Get("client_id"))
	assert.Equal(t, "csecret", form.Get("client_secret"))

	assert.Equal(t, "new-access-token", tok.AccessToken)
	assert.Equal(t, "new-refresh-token", tok.RefreshToken)
	assert.Equal(t, time.Hour, tok.ExpiresIn)
	assert.Equal(t, []string{"offline", "read:sleep"}, tok.Scopes)
}

func TestRefreshExchange(t *testing.T) {
	var form url.Values
	c := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "refreshed-access",
			"expires_in":   1800,
		})
	})

	tok, err := c.RefreshExchange(context.Background(), "rt", "id2", "secret2")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "rt", form.Get("refresh_token"))
	assert.Equal(t, "id2", form.Get("client_id"))
	assert.Equal(t, "secret2", form.Get("client_secret"))
	assert.Equal(t, ScopeString(), form.Get("scope"))

	assert.Equal(t, "refreshed-access", tok.AccessToken)
	assert.Empty(t, tok.RefreshToken)
	assert.Nil(t, tok.Scopes)
}

func TestRefreshExchange_InvalidGrant(t *testing.T) {
	c := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:            "invalid_grant",
			ErrorDescription: "refresh token revoked",
		})
	})

	_, err := c.RefreshExchange(context.Background(), "rt", "id", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestTokenRequest_ErrorStatus(t *testing.T) {
	c := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"bad secret"}`))
	})

	_, err := c.Exchange(context.Background(), "code", "http://localhost:1/callback")
	require.Error(t, err)

	var rErr *oauth2.RetrieveError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "invalid_client", rErr.ErrorCode)
	assert.Equal(t, "bad secret", rErr.ErrorDescription)
	assert.Equal(t, http.StatusUnauthorized, rErr.Response.StatusCode)
	assert.NotErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestTokenRequest_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"temporarily_unavailable"}`))
	}))
	t.Cleanup(srv.Close)

	rc, err := retry.NewClient(
		retry.WithMaxRetries(1),
		retry.WithInitialRetryDelay(time.Millisecond),
		retry.WithJitter(false),
		retry.WithNoLogging(),
	)
	require.NoError(t, err)
	c, err := NewOAuthClient(staticCreds{"cid", "csecret"},
		WithOAuthBaseURL(srv.URL), WithRetryClient(rc))
	require.NoError(t, err)

	_, err = c.RefreshExchange(context.Background(), "rt", "", "")
	require.Error(t, err)

	var rErr *oauth2.RetrieveError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, http.StatusServiceUnavailable, rErr.Response.StatusCode)
	assert.Equal(t, "temporarily_unavailable", rErr.ErrorCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTokenRequest_InvalidResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"empty access token", `{"access_token":"","expires_in":3600}`},
		{"zero expiry", `{"access_token":"abcdefghijkl","expires_in":0}`},
		{"wrong token type", `{"access_token":"abcdefghijkl","expires_in":60,"token_type":"mac"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Exchange(context.Background(), "code", "http://localhost:1/callback")
			assert.Error(t, err)
		})
	}
}

func TestValidateTokenResponse(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		tokenType string
		expiresIn int
		wantErr   bool
	}{
		{"valid bearer", "token", "Bearer", 3600, false},
		{"lowercase bearer", "token", "bearer", 3600, false},
		{"no token type", "token", "", 3600, false},
		{"empty token", "", "Bearer", 3600, true},
		{"negative expiry", "token", "Bearer", -1, true},
		{"mac token", "token", "MAC", 3600, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTokenResponse(tt.token, tt.tokenType, tt.expiresIn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
