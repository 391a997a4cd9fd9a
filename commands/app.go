// Package commands wires the stores, token manager and API client into the
// whoop command tree.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/pkg/browser"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/auth"
	"github.com/go-whoop/whoop-cli/config"
	"github.com/go-whoop/whoop-cli/credstore"
	"github.com/go-whoop/whoop-cli/tui"
)

// App holds everything a command needs. Clients are built on first use.
type App struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader

	configDir      string
	apiBaseURL     string
	oauthBaseURL   string
	interactive    bool
	openBrowser    func(url string) error
	interPageDelay time.Duration
	now            func() time.Time

	flags    config.Flags
	quiet    bool
	debug    bool
	settings config.Settings

	logger *log.Logger
	config *config.Store
	creds  *credstore.Store

	mu      sync.Mutex
	oauth   *auth.OAuthClient
	manager *auth.Manager
	api     *api.Client
}

// Option configures an App.
type Option func(*App)

// WithOutput redirects stdout and stderr.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) {
		a.Out = out
		a.Err = errOut
	}
}

// WithInput sets stdin. interactive enables reading a pasted redirect URL.
func WithInput(in io.Reader, interactive bool) Option {
	return func(a *App) {
		a.In = in
		a.interactive = interactive
	}
}

// WithConfigDir pins the configuration directory.
func WithConfigDir(dir string) Option {
	return func(a *App) {
		a.configDir = dir
	}
}

// WithAPIBaseURL overrides the API origin.
func WithAPIBaseURL(u string) Option {
	return func(a *App) {
		a.apiBaseURL = u
	}
}

// WithOAuthBaseURL overrides the authorization server.
func WithOAuthBaseURL(u string) Option {
	return func(a *App) {
		a.oauthBaseURL = u
	}
}

// WithBrowser replaces the function that opens the authorization URL.
func WithBrowser(open func(url string) error) Option {
	return func(a *App) {
		a.openBrowser = open
	}
}

// WithInterPageDelay sets the pause between page requests. Negative disables it.
func WithInterPageDelay(d time.Duration) Option {
	return func(a *App) {
		a.interPageDelay = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// NewApp creates an App bound to the process stdio.
func NewApp(opts ...Option) *App {
	a := &App{
		Out:         os.Stdout,
		Err:         os.Stderr,
		In:          os.Stdin,
		interactive: isTerminal(os.Stdin),
		openBrowser: browser.OpenURL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// init resolves settings once the flags are parsed.
func (a *App) init() error {
	if a.configDir == "" {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		a.configDir = dir
	}

	if a.apiBaseURL == "" {
		u, err := config.ServerURL(config.EnvAPIURL, api.DefaultBaseURL)
		if err != nil {
			return err
		}
		a.apiBaseURL = u
	}
	if a.oauthBaseURL == "" {
		u, err := config.ServerURL(config.EnvOAuthURL, auth.DefaultOAuthBaseURL)
		if err != nil {
			return err
		}
		a.oauthBaseURL = u
	}
	if strings.HasPrefix(strings.ToLower(a.oauthBaseURL), "http://") &&
		!strings.Contains(a.oauthBaseURL, "127.0.0.1") && !strings.Contains(a.oauthBaseURL, "localhost") {
		fmt.Fprintln(a.Err, "⚠️  WARNING: Using HTTP instead of HTTPS. Tokens will be transmitted in plaintext!")
	}

	a.logger = newLogger(a.Err, a.debug || os.Getenv(config.EnvDebug) != "")
	a.config = config.NewStoreWithPath(a.configDir)
	a.creds = credstore.New(a.configDir, credstore.WithLogger(a.logger))
	a.settings = config.Resolve(a.flags, a.config.Load())
	return nil
}

func newLogger(w io.Writer, debug bool) *log.Logger {
	level := log.WarnLevel
	if debug {
		level = log.DebugLevel
	}
	return &log.Logger{
		Level:      level,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:      w,
			ColorOutput: isTerminal(w),
		},
	}
}

// OAuth returns the authorization-server client.
func (a *App) OAuth() (*auth.OAuthClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.oauthLocked()
}

func (a *App) oauthLocked() (*auth.OAuthClient, error) {
	if a.oauth != nil {
		return a.oauth, nil
	}
	c, err := auth.NewOAuthClient(
		a.config,
		auth.WithOAuthBaseURL(a.oauthBaseURL),
		auth.WithOAuthLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.oauth = c
	return c, nil
}

// Tokens returns the token lifecycle manager.
func (a *App) Tokens() (*auth.Manager, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokensLocked()
}

func (a *App) tokensLocked() (*auth.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}
	oc, err := a.oauthLocked()
	if err != nil {
		return nil, err
	}
	a.manager = auth.NewManager(a.creds, a.config, oc,
		auth.WithClock(a.now),
		auth.WithLogger(a.logger),
	)
	return a.manager, nil
}

// API returns the shared API client, creating it on first use.
func (a *App) API() (*api.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.api != nil {
		return a.api, nil
	}
	m, err := a.tokensLocked()
	if err != nil {
		return nil, err
	}
	c, err := api.NewClient(m,
		api.WithBaseURL(a.apiBaseURL),
		api.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.api = c
	return c, nil
}

// ResetAPI drops the cached clients and credential cache so the next call
// sees freshly saved tokens.
func (a *App) ResetAPI() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.api = nil
	a.manager = nil
	a.creds.ResetCache()
}

// requireAuth fails fast when no credentials exist.
func (a *App) requireAuth() error {
	if a.creds.Load() == nil {
		return errNotAuthenticated()
	}
	return nil
}

// authedAPI is API behind the authentication check.
func (a *App) authedAPI() (*api.Client, error) {
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	return a.API()
}

// warnClientID prints the UUID-format warning for suspicious client ids.
func (a *App) warnClientID(clientID string) {
	if _, err := uuid.Parse(clientID); err != nil {
		fmt.Fprintf(a.Err, "⚠️  Warning: client_id doesn't appear to be a valid UUID: %s\n", clientID)
		fmt.Fprintln(a.Err, "⚠️  This may cause authentication issues if WHOOP expects UUID format.")
		fmt.Fprintln(a.Err)
	}
}

// displayer picks the BubbleTea view on an interactive stderr and plain text
// otherwise. The returned func stops the program.
func (a *App) displayer(plain bool) (tui.Displayer, func()) {
	f, ok := a.Err.(*os.File)
	if plain || !ok || !isTerminal(f) {
		return tui.NewPlainDisplayer(a.Err), func() {}
	}

	// WithInput(nil): stdin stays free for the paste reader and BubbleTea skips
	// terminal capability queries. Ctrl+C is handled by signal.NotifyContext.
	p := tea.NewProgram(tui.NewModel(), tea.WithOutput(f), tea.WithInput(nil))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(a.Err, "TUI error: %v\n", err)
		}
	}()

	return tui.NewProgramDisplayer(p), func() {
		p.Quit()
		wg.Wait()
	}
}

// isTerminal reports whether v is a character device (interactive terminal).
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
