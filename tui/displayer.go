package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
)

// Displayer abstracts all progress output of the login and refresh flows.
type Displayer interface {
	Banner()
	AuthURLReady(authURL string, port int, browserOpened, pasteEnabled bool, expiry time.Time)
	PasteRejected(reason string)
	CodeReceived(source string)
	Exchanging()
	TokenSaved(path string)
	ProfileFetched(name, email string)
	ProfileUnavailable(err error)
	Refreshing()
	RefreshOK(expiresIn time.Duration)
	RefreshFailed(err error)
	Done(identity string, expiresIn time.Duration, scopes []string)
	Fatal(err error)
}

// PlainDisplayer writes plain text output to w.
// Used when stderr is not a TTY (pipes, CI, SSH without pty) and for --no-browser.
type PlainDisplayer struct {
	w io.Writer
}

// NewPlainDisplayer creates a PlainDisplayer that writes to w.
func NewPlainDisplayer(w io.Writer) *PlainDisplayer {
	return &PlainDisplayer{w: w}
}

func (p *PlainDisplayer) Banner() {}

func (p *PlainDisplayer) AuthURLReady(
	authURL string,
	_ int,
	browserOpened, pasteEnabled bool,
	_ time.Time,
) {
	if browserOpened {
		fmt.Fprintln(p.w, "Opening browser for authentication...")
		fmt.Fprintln(p.w, "Waiting for callback...")
		return
	}
	fmt.Fprintln(p.w, "Open this URL in your browser to authenticate:")
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, authURL)
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "Waiting for callback...")
	if pasteEnabled {
		fmt.Fprintln(p.w, "(Or paste the redirect URL here if running on a remote machine)")
	}
}

func (p *PlainDisplayer) PasteRejected(reason string) {
	fmt.Fprintf(p.w, "%s. Try again.\n", capitalize(reason))
}

func (p *PlainDisplayer) CodeReceived(_ string) {}

func (p *PlainDisplayer) Exchanging() {
	fmt.Fprintln(p.w, "Exchanging authorization code for tokens...")
}

func (p *PlainDisplayer) TokenSaved(_ string) {}

func (p *PlainDisplayer) ProfileFetched(_, _ string) {}

func (p *PlainDisplayer) ProfileUnavailable(_ error) {}

func (p *PlainDisplayer) Refreshing() {
	fmt.Fprintln(p.w, "Refreshing access token...")
}

// RefreshOK is silent; the caller reports the new expiry on stdout.
func (p *PlainDisplayer) RefreshOK(_ time.Duration) {}

func (p *PlainDisplayer) RefreshFailed(err error) {
	fmt.Fprintf(p.w, "Refresh failed: %v\n", err)
}

func (p *PlainDisplayer) Done(identity string, _ time.Duration, _ []string) {
	if identity == "" {
		fmt.Fprintln(p.w, "\nAuthenticated successfully! (Could not fetch profile details)")
		return
	}
	fmt.Fprintf(p.w, "\nAuthenticated as %s\n", identity)
}

func (p *PlainDisplayer) Fatal(err error) {
	fmt.Fprintf(p.w, "Error: %v\n", err)
}

// NoopDisplayer is a no-op implementation used in tests.
type NoopDisplayer struct{}

func (NoopDisplayer) Banner()                                              {}
func (NoopDisplayer) AuthURLReady(_ string, _ int, _, _ bool, _ time.Time) {}
func (NoopDisplayer) PasteRejected(_ string)                               {}
func (NoopDisplayer) CodeReceived(_ string)                                {}
func (NoopDisplayer) Exchanging()                                          {}
func (NoopDisplayer) TokenSaved(_ string)                                  {}
func (NoopDisplayer) ProfileFetched(_, _ string)                           {}
func (NoopDisplayer) ProfileUnavailable(_ error)                           {}
func (NoopDisplayer) Refreshing()                                          {}
func (NoopDisplayer) RefreshOK(_ time.Duration)                            {}
func (NoopDisplayer) RefreshFailed(_ error)                                {}
func (NoopDisplayer) Done(_ string, _ time.Duration, _ []string)           {}
func (NoopDisplayer) Fatal(_ error)                                        {}

// ProgramDisplayer sends BubbleTea messages to a running tea.Program.
type ProgramDisplayer struct {
	p *tea.Program
}

// NewProgramDisplayer creates a ProgramDisplayer that sends messages to p.
func NewProgramDisplayer(p *tea.Program) *ProgramDisplayer {
	return &ProgramDisplayer{p: p}
}

func (t *ProgramDisplayer) Banner() {
	t.p.Send(MsgBanner{})
}

func (t *ProgramDisplayer) AuthURLReady(
	authURL string,
	port int,
	browserOpened, pasteEnabled bool,
	expiry time.Time,
) {
	t.p.Send(MsgAuthURLReady{
		AuthURL:       authURL,
		Port:          port,
		BrowserOpened: browserOpened,
		PasteEnabled:  pasteEnabled,
		Expiry:        expiry,
	})
}

func (t *ProgramDisplayer) PasteRejected(reason string) {
	t.p.Send(MsgPasteRejected{Reason: reason})
}

func (t *ProgramDisplayer) CodeReceived(source string) {
	t.p.Send(MsgCodeReceived{Source: source})
}

func (t *ProgramDisplayer) Exchanging() {
	t.p.Send(MsgExchanging{})
}

func (t *ProgramDisplayer) TokenSaved(path string) {
	t.p.Send(MsgTokenSaved{Path: path})
}

func (t *ProgramDisplayer) ProfileFetched(name, email string) {
	t.p.Send(MsgProfileFetched{Name: name, Email: email})
}

func (t *ProgramDisplayer) ProfileUnavailable(err error) {
	t.p.Send(MsgProfileUnavailable{Err: err})
}

func (t *ProgramDisplayer) Refreshing() {
	t.p.Send(MsgRefreshing{})
}

func (t *ProgramDisplayer) RefreshOK(expiresIn time.Duration) {
	t.p.Send(MsgRefreshOK{ExpiresIn: expiresIn})
}

func (t *ProgramDisplayer) RefreshFailed(err error) {
	t.p.Send(MsgRefreshFailed{Err: err})
}

func (t *ProgramDisplayer) Done(identity string, expiresIn time.Duration, scopes []string) {
	t.p.Send(MsgDone{Identity: identity, ExpiresIn: expiresIn, Scopes: scopes})
}

func (t *ProgramDisplayer) Fatal(err error) {
	t.p.Send(MsgFatal{Err: err})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
