package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// tickMsg is fired every second to update the countdown timer.
type tickMsg time.Time

// state represents the current phase of the login flow.
type state int

const (
	stateInit       state = iota
	stateWaiting          // waiting for the browser redirect or a paste
	stateExchanging       // trading the code for tokens
	stateRefreshing       // refreshing an existing token
	stateSuccess          // all done
	stateError            // fatal error
)

// statusKind distinguishes line types in the status log.
type statusKind int

const (
	statusOK   statusKind = iota
	statusWarn            // warning / non-fatal
	statusInfo            // neutral info
)

// statusLine is one row in the scrolling status log.
type statusLine struct {
	kind statusKind
	text string
}

// Model is the BubbleTea model for the login TUI.
type Model struct {
	state   state
	spinner spinner.Model
	width   int
	height  int

	// Authorization URL info
	authURL       string
	port          int
	browserOpened bool
	pasteEnabled  bool
	expiry        time.Time
	remaining     time.Duration

	// Success / error display
	identity  string
	expiresIn time.Duration
	scopes    []string
	errMsg    string

	// Scrolling status log shown below the main panel
	statusLines []statusLine
}

var (
	styleTitleBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 2)

	styleURL = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Underline(true)

	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleBold = lipgloss.NewStyle().Bold(true)
)

// NewModel creates the initial TUI model.
func NewModel() Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))),
	)
	return Model{
		state:   stateInit,
		spinner: s,
	}
}

// Init starts the spinner animation.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.state != stateWaiting {
			return m, nil
		}
		m.remaining = max(time.Until(m.expiry), 0)
		if m.remaining > 0 {
			return m, tickAfterSecond()
		}
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	// ── Login flow messages ──────────────────────────────────────────────────

	case MsgBanner:
		return m, nil

	case MsgAuthURLReady:
		m.authURL = msg.AuthURL
		m.port = msg.Port
		m.browserOpened = msg.BrowserOpened
		m.pasteEnabled = msg.PasteEnabled
		m.expiry = msg.Expiry
		m.remaining = time.Until(msg.Expiry)
		m.state = stateWaiting
		m.addStatus(statusInfo, fmt.Sprintf("Callback listener on port %d", msg.Port))
		if msg.BrowserOpened {
			m.addStatus(statusOK, "Browser opened")
		}
		return m, tickAfterSecond()

	case MsgPasteRejected:
		m.addStatus(statusWarn, capitalize(msg.Reason))
		return m, nil

	case MsgCodeReceived:
		m.addStatus(statusOK, "Authorization code received via "+msg.Source)
		return m, nil

	case MsgExchanging:
		m.state = stateExchanging
		return m, nil

	case MsgTokenSaved:
		m.addStatus(statusOK, "Tokens saved to "+msg.Path)
		return m, nil

	case MsgProfileFetched:
		m.addStatus(statusOK, "Profile loaded")
		return m, nil

	case MsgProfileUnavailable:
		m.addStatus(statusWarn, fmt.Sprintf("Could not fetch profile: %v", msg.Err))
		return m, nil

	case MsgRefreshing:
		m.state = stateRefreshing
		return m, nil

	case MsgRefreshOK:
		m.expiresIn = msg.ExpiresIn
		m.addStatus(statusOK, "Token refreshed successfully")
		return m, nil

	case MsgRefreshFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Refresh failed: %v", msg.Err))
		return m, nil

	case MsgDone:
		m.identity = msg.Identity
		m.expiresIn = msg.ExpiresIn
		m.scopes = msg.Scopes
		m.state = stateSuccess
		return m, nil

	case MsgFatal:
		m.errMsg = msg.Err.Error()
		m.state = stateError
		return m, nil
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() tea.View {
	switch m.state {
	case stateSuccess:
		return tea.NewView(m.viewSuccess())
	case stateError:
		return tea.NewView(m.viewError())
	default:
		return tea.NewView(m.viewMain())
	}
}

// viewMain is shown while waiting, exchanging and refreshing.
func (m Model) viewMain() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleTitleBox.Render("  WHOOP Authorization  "))
	b.WriteString("\n\n")

	switch m.state {
	case stateWaiting:
		if m.browserOpened {
			b.WriteString(styleDim.Render("If the browser did not open, visit:"))
		} else {
			b.WriteString(styleBold.Render("Open this URL in your browser to authenticate:"))
		}
		b.WriteString("\n")
		b.WriteString(styleURL.Render(m.authURL))
		b.WriteString("\n\n")

		b.WriteString(m.spinner.View())
		b.WriteString(" Waiting for callback...  ")
		if m.remaining > 0 {
			b.WriteString(styleDim.Render(formatDuration(m.remaining) + " remaining"))
		}
		b.WriteString("\n")
		if m.pasteEnabled {
			b.WriteString(styleDim.Render("(Or paste the redirect URL here)"))
			b.WriteString("\n")
		}

	case stateExchanging:
		b.WriteString(m.spinner.View())
		b.WriteString(" Exchanging authorization code for tokens...\n")

	case stateRefreshing:
		b.WriteString(m.spinner.View())
		b.WriteString(" Refreshing access token...\n")

	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" Starting callback listener...\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewSuccess is shown after a successful login or refresh.
func (m Model) viewSuccess() string {
	var b strings.Builder

	b.WriteString("\n")
	if m.identity != "" {
		b.WriteString(styleOK.Render("  ✓ Authenticated as " + m.identity))
	} else {
		b.WriteString(styleOK.Render("  ✓ Authenticated successfully!"))
	}
	b.WriteString("\n\n")

	if m.expiresIn > 0 {
		b.WriteString(styleBold.Render("Expires In: "))
		b.WriteString(formatDuration(m.expiresIn) + "\n")
	}
	if len(m.scopes) > 0 {
		b.WriteString(styleBold.Render("Scopes:     "))
		b.WriteString(strings.Join(m.scopes, " ") + "\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewError is shown when a fatal error occurs.
func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleErr.Render("  ✗ Authentication failed"))
	b.WriteString("\n\n")
	b.WriteString(styleDim.Render("  " + m.errMsg))
	b.WriteString("\n")

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewStatusLog renders the scrolling status log.
func (m Model) viewStatusLog() string {
	if len(m.statusLines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")

	for _, line := range m.statusLines {
		switch line.kind {
		case statusOK:
			b.WriteString(styleOK.Render("  ✓ " + line.text))
		case statusWarn:
			b.WriteString(styleWarn.Render("  ⚠ " + line.text))
		default:
			b.WriteString(styleDim.Render("  · " + line.text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// addStatus appends a line to the status log.
func (m *Model) addStatus(kind statusKind, text string) {
	m.statusLines = append(m.statusLines, statusLine{kind: kind, text: text})
}

// tickAfterSecond returns a command that fires tickMsg after one second.
func tickAfterSecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// formatDuration formats a duration as "Xm Ys" or "Xs".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
