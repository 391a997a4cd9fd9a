package auth

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/phuslu/log"
	"golang.org/x/oauth2"
)

// OAuth endpoints.
const (
	DefaultOAuthBaseURL = "https://api.prod.whoop.com/oauth/oauth2"
	authorizePath       = "/auth"
	tokenPath           = "/token"
)

// Scopes is the full scope set requested at login and on every refresh.
var Scopes = []string{
	"offline",
	"read:recovery",
	"read:cycles",
	"read:workout",
	"read:sleep",
	"read:profile",
	"read:body_measurement",
}

// ScopeString joins Scopes the way the token endpoint expects.
func ScopeString() string {
	return strings.Join(Scopes, " ")
}

const tokenExchangeTimeout = 30 * time.Second

// ErrRefreshTokenExpired indicates that the refresh token has expired or is invalid
var ErrRefreshTokenExpired = errors.New("refresh token expired or invalid")

// ErrorResponse is the OAuth error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Credentials supplies the OAuth client id and secret.
type Credentials interface {
	ClientID() string
	ClientSecret() string
}

// TokenResponse is a validated token-endpoint response.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	Scopes       []string
}

// OAuthClient talks to the authorization server. It never goes through the
// API client, so a failing refresh can't recurse into another refresh.
type OAuthClient struct {
	baseURL string
	creds   Credentials
	http    *retry.Client
	logger  *log.Logger
}

// OAuthOption configures an OAuthClient.
type OAuthOption func(*OAuthClient)

// WithOAuthBaseURL overrides the authorization server base URL.
func WithOAuthBaseURL(baseURL string) OAuthOption {
	return func(c *OAuthClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRetryClient sets the HTTP client used for token requests.
func WithRetryClient(client *retry.Client) OAuthOption {
	return func(c *OAuthClient) {
		c.http = client
	}
}

// WithOAuthLogger sets a logger.
func WithOAuthLogger(logger *log.Logger) OAuthOption {
	return func(c *OAuthClient) {
		c.logger = logger
	}
}

// NewOAuthClient creates an OAuth client. Token requests retry transient
// failures with backoff.
func NewOAuthClient(creds Credentials, opts ...OAuthOption) (*OAuthClient, error) {
	c := &OAuthClient{
		baseURL: DefaultOAuthBaseURL,
		creds:   creds,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = &log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: io.Discard}}
	}
	if c.http == nil {
		baseHTTPClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
		client, err := retry.NewBackgroundClient(
			retry.WithHTTPClient(baseHTTPClient),
			retry.WithLogger(NewRetryLogger(c.logger)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create retry client: %w", err)
		}
		c.http = client
	}
	return c, nil
}

func (c *OAuthClient) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.creds.ClientID(),
		ClientSecret: c.creds.ClientSecret(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.baseURL + authorizePath,
			TokenURL:  c.baseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      Scopes,
	}
}

// AuthCodeURL builds the authorization URL the user opens in a browser.
func (c *OAuthClient) AuthCodeURL(redirectURI, state string) string {
	return c.config(redirectURI).AuthCodeURL(state)
}

// TokenURL returns the token endpoint.
func (c *OAuthClient) TokenURL() string {
	return c.baseURL + tokenPath
}

// Exchange trades an authorization code for tokens.
func (c *OAuthClient) Exchange(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)
	data.Set("client_id", c.creds.ClientID())
	data.Set("client_secret", c.creds.ClientSecret())

	return c.postToken(ctx, data)
}

// RefreshExchange trades a refresh token for a new access token. A rejected
// refresh token yields ErrRefreshTokenExpired.
func (c *OAuthClient) RefreshExchange(
	ctx context.Context,
	refreshToken, clientID, clientSecret string,
) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)
	data.Set("scope", ScopeString())

	tok, err := c.postToken(ctx, data)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) &&
			(rErr.ErrorCode == "invalid_grant" || rErr.ErrorCode == "invalid_token") {
			return nil, fmt.Errorf("%w: %s", ErrRefreshTokenExpired, rErr.ErrorDescription)
		}
		return nil, err
	}
	return tok, nil
}

func (c *OAuthClient) postToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx,
		http.MethodPost,
		c.TokenURL(),
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.DoWithContext(reqCtx, req)
	if err != nil && resp == nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	// Exhausted retries still hand back the last response; its status is
	// reported through RetrieveError below.
	defer resp.Body.Close()
	if err != nil {
		c.logger.Debug().Err(err).Msg("token request retries exhausted")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("grant_type", data.Get("grant_type")).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("token request")

	if resp.StatusCode != http.StatusOK {
		rErr := &oauth2.RetrieveError{
			Response: resp,
			Body:     body,
		}
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			rErr.ErrorCode = errResp.Error
			rErr.ErrorDescription = errResp.ErrorDescription
		}
		return nil, rErr
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if err := validateTokenResponse(
		tokenResp.AccessToken,
		tokenResp.TokenType,
		tokenResp.ExpiresIn,
	); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}

	tok := &TokenResponse{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    time.Duration(tokenResp.ExpiresIn) * time.Second,
	}
	if tokenResp.Scope != "" {
		tok.Scopes = strings.Fields(tokenResp.Scope)
	}
	return tok, nil
}

// validateTokenResponse validates the OAuth token response
func validateTokenResponse(accessToken, tokenType string, expiresIn int) error {
	if accessToken == "" {
		return errors.New("access_token is empty")
	}

	if expiresIn <= 0 {
		return fmt.Errorf("expires_in must be positive, got: %d", expiresIn)
	}

	// Token type is optional in OAuth 2.0, but if present, should be "Bearer"
	if tokenType != "" && !strings.EqualFold(tokenType, "Bearer") {
		return fmt.Errorf("unexpected token_type: %s (expected Bearer)", tokenType)
	}

	return nil
}
