package tui

import (
	"time"
)

// MsgBanner signals that the banner/title should be displayed.
type MsgBanner struct{}

// MsgAuthURLReady signals that the callback listener is up and the user must
// visit the authorization URL.
type MsgAuthURLReady struct {
	AuthURL       string
	Port          int
	BrowserOpened bool
	PasteEnabled  bool
	Expiry        time.Time
}

// MsgPasteRejected signals that pasted input could not be used.
type MsgPasteRejected struct{ Reason string }

// MsgCodeReceived signals that an authorization code arrived.
type MsgCodeReceived struct{ Source string }

// MsgExchanging signals that the code is being exchanged for tokens.
type MsgExchanging struct{}

// MsgTokenSaved signals that tokens were saved to disk.
type MsgTokenSaved struct{ Path string }

// MsgProfileFetched signals that the user profile was loaded.
type MsgProfileFetched struct {
	Name  string
	Email string
}

// MsgProfileUnavailable signals that the profile could not be fetched.
type MsgProfileUnavailable struct{ Err error }

// MsgRefreshing signals that a token refresh is in progress.
type MsgRefreshing struct{}

// MsgRefreshOK signals that the token was refreshed successfully.
type MsgRefreshOK struct{ ExpiresIn time.Duration }

// MsgRefreshFailed signals that token refresh failed.
type MsgRefreshFailed struct{ Err error }

// MsgDone signals successful completion of the flow.
type MsgDone struct {
	Identity  string
	ExpiresIn time.Duration
	Scopes    []string
}

// MsgFatal signals a fatal error that should terminate the flow.
type MsgFatal struct{ Err error }
