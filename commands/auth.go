package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/apperr"
	"github.com/go-whoop/whoop-cli/auth"
	"github.com/go-whoop/whoop-cli/authflow"
	"github.com/go-whoop/whoop-cli/credstore"
	"github.com/go-whoop/whoop-cli/output"
)

// pastedTokenTTL is assumed for tokens entered by hand, whose real lifetime
// is unknown.
const pastedTokenTTL = 30 * time.Minute

const expiryLayout = "2006-01-02 15:04:05"

const (
	msgLoginMissingCredentials = "Missing WHOOP OAuth credentials.\n" +
		"Set WHOOP_CLIENT_ID and WHOOP_CLIENT_SECRET environment variables,\n" +
		"or run: whoop config set client_id <value> && whoop config set client_secret <value>"
	msgRefreshNoToken = `No refresh token available. Run "whoop auth login" to re-authenticate with full OAuth flow.`
	msgRefreshFailed  = `Token refresh failed. Run "whoop auth login" to re-authenticate.`
)

func newAuthCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage WHOOP authentication",
	}

	cmd.AddCommand(newAuthLoginCommand(a))
	cmd.AddCommand(newAuthLogoutCommand(a))
	cmd.AddCommand(newAuthStatusCommand(a))
	cmd.AddCommand(newAuthTokenCommand(a))
	cmd.AddCommand(newAuthRefreshCommand(a))
	return cmd
}

func newAuthLoginCommand(a *App) *cobra.Command {
	var (
		port      int
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with WHOOP via browser OAuth flow",
		Example: `  whoop auth login
  whoop auth login --no-browser
  whoop auth login --port 9876`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port < 0 || port > 65535 {
				return fmt.Errorf("invalid value for --port: %d. Must be between 0 and 65535", port)
			}
			return a.login(cmd.Context(), port, noBrowser)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Override callback port (0 picks a free port)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the auth URL instead of opening browser")
	return cmd
}

// login runs the authorization-code flow, stores the tokens and caches the
// profile when it can be fetched.
func (a *App) login(ctx context.Context, port int, noBrowser bool) error {
	clientID, clientSecret := a.config.ClientID(), a.config.ClientSecret()
	if clientID == "" || clientSecret == "" {
		return apperr.New(apperr.MissingCredentials, 0, msgLoginMissingCredentials)
	}
	a.warnClientID(clientID)

	oc, err := a.OAuth()
	if err != nil {
		return err
	}

	d, stop := a.displayer(noBrowser)
	defer stop()
	d.Banner()

	pasteEnabled := noBrowser && a.interactive
	var input io.Reader
	if pasteEnabled {
		input = a.In
	}

	res, err := authflow.Run(ctx, authflow.Options{
		Port:    port,
		AuthURL: oc.AuthCodeURL,
		Present: func(authURL string, boundPort int) {
			opened := false
			if !noBrowser {
				if err := a.openBrowser(authURL); err != nil {
					a.logger.Debug().Err(err).Msg("could not open browser")
				} else {
					opened = true
				}
			}
			d.AuthURLReady(authURL, boundPort, opened, pasteEnabled, a.now().Add(authflow.DefaultTimeout))
		},
		Input:           input,
		OnPasteRejected: d.PasteRejected,
		Logger:          a.logger,
	})
	if err != nil {
		d.Fatal(err)
		return reportedError{err}
	}
	d.CodeReceived(string(res.Source))

	d.Exchanging()
	tok, err := oc.Exchange(ctx, res.Code, res.RedirectURI)
	if err != nil {
		d.Fatal(err)
		return reportedError{err}
	}

	rec := &credstore.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    credstore.ExpiresAtFrom(a.now(), tok.ExpiresIn),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       tok.Scopes,
	}
	if err := a.creds.Save(rec); err != nil {
		d.Fatal(err)
		return reportedError{err}
	}
	d.TokenSaved(a.creds.Path())
	a.ResetAPI()

	who := ""
	if p, err := a.cacheProfile(ctx); err != nil {
		d.ProfileUnavailable(err)
	} else {
		d.ProfileFetched(p.FirstName+" "+p.LastName, p.Email)
		who = identity(p.FirstName, p.LastName, p.Email)
	}
	d.Done(who, tok.ExpiresIn, tok.Scopes)
	return nil
}

// cacheProfile fetches the profile with the stored token and saves it onto
// the credential record.
func (a *App) cacheProfile(ctx context.Context) (*credstore.Profile, error) {
	client, err := a.API()
	if err != nil {
		return nil, err
	}
	p, err := client.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	profile := &credstore.Profile{
		UserID:    p.UserID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
	}
	if rec := a.creds.Load(); rec != nil && !rec.FromEnv {
		rec.Profile = profile
		if err := a.creds.Save(rec); err != nil {
			a.logger.Debug().Err(err).Msg("failed to save profile")
		}
	}
	return profile, nil
}

func newAuthLogoutCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke WHOOP access and clear local tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.creds.Load() == nil {
				fmt.Fprintln(a.Out, "Not currently authenticated.")
				return nil
			}

			client, err := a.API()
			if err == nil {
				err = client.RevokeAccess(cmd.Context())
			}
			if err != nil {
				a.logger.Debug().Err(err).Int("status", apperr.StatusOf(err)).Msg("revoke failed")
				fmt.Fprintln(a.Out, "Could not revoke token on server (may already be expired).")
			} else {
				fmt.Fprintln(a.Out, "Revoked WHOOP access token on server.")
			}

			if err := a.creds.Clear(); err != nil {
				return err
			}
			a.ResetAPI()
			color := a.settings.Color
			return output.Println(a.Out, color, output.Green("Logged out successfully.", color))
		},
	}
}

func newAuthStatusCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current authentication status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			color := a.settings.Color
			rec := a.creds.Load()
			if rec == nil {
				return output.Println(a.Out, color, output.Yellow(auth.MsgNotAuthenticated, color))
			}
			return output.Lines(a.Out, color, statusLines(rec, a.now(), color)...)
		},
	}
}

func statusLines(rec *credstore.Record, now time.Time, color bool) []string {
	lines := []string{output.Green("Authenticated", color), ""}

	if p := rec.Profile; p != nil {
		lines = append(lines,
			fmt.Sprintf("  Name:    %s %s", p.FirstName, p.LastName),
			"  Email:   "+p.Email,
			fmt.Sprintf("  User ID: %d", p.UserID),
			"",
		)
	}

	if rec.FromEnv {
		lines = append(lines, "  Source:  WHOOP_ACCESS_TOKEN environment variable")
	} else {
		expiresAt := rec.ExpiresAtTime()
		lines = append(lines, "  Token expires: "+expiresAt.Local().Format(expiryLayout))
		if !now.Before(expiresAt) {
			lines = append(lines, "  Status: "+output.Red("EXPIRED", color))
		} else {
			remaining := int(math.Round(expiresAt.Sub(now).Minutes()))
			lines = append(lines, "  Status: "+output.Green(fmt.Sprintf("Valid (%dm remaining)", remaining), color))
		}
		lines = append(lines, "  Refresh token: "+yesNo(rec.RefreshToken != ""))
	}

	if len(rec.Scopes) > 0 {
		lines = append(lines, "  Scopes:  "+strings.Join(rec.Scopes, ", "))
	}
	return lines
}

func newAuthTokenCommand(a *App) *cobra.Command {
	var accessToken, refreshToken string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Authenticate by pasting an access token directly",
		Example: `  whoop auth token
  whoop auth token --access-token <token>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if accessToken == "" {
				r := bufio.NewReader(a.In)
				accessToken = prompt(a.Err, r, "Paste your access token: ")
				if refreshToken == "" {
					refreshToken = prompt(a.Err, r, "Paste your refresh token (or press Enter to skip): ")
				}
			}
			if accessToken == "" {
				return apperr.New(apperr.NotAuthenticated, 0, "No access token provided.")
			}
			return a.saveAndValidateToken(cmd.Context(), accessToken, refreshToken)
		},
	}
	cmd.Flags().StringVar(&accessToken, "access-token", "", "Access token to use")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Optional refresh token")
	return cmd
}

// saveAndValidateToken stores a hand-entered token and checks it with a
// profile fetch. A rejected token is removed again; an unreachable API
// leaves it in place.
func (a *App) saveAndValidateToken(ctx context.Context, accessToken, refreshToken string) error {
	fmt.Fprintln(a.Out, "Validating token...")

	rec := &credstore.Record{
		AccessToken:  strings.TrimSpace(accessToken),
		RefreshToken: strings.TrimSpace(refreshToken),
		ExpiresAt:    credstore.ExpiresAtFrom(a.now(), pastedTokenTTL),
	}
	if err := a.creds.Save(rec); err != nil {
		return err
	}
	a.ResetAPI()

	p, err := a.cacheProfile(ctx)
	if err == nil {
		fmt.Fprintln(a.Out, "Authenticated as "+identity(p.FirstName, p.LastName, p.Email))
		return nil
	}

	if apperr.StatusOf(err) == 401 {
		if clearErr := a.creds.Clear(); clearErr != nil {
			a.logger.Debug().Err(clearErr).Msg("failed to clear rejected token")
		}
		a.ResetAPI()
		return apperr.Wrap(apperr.SessionExpired, 401,
			"Token validation failed. The token is invalid or expired.", err)
	}
	return apperr.Wrap(apperr.NetworkError, apperr.StatusOf(err),
		"Token validation failed: could not reach WHOOP API. "+
			"The token has been saved and will be used for future requests.", err)
}

func prompt(w io.Writer, r *bufio.Reader, label string) string {
	fmt.Fprint(w, label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

func newAuthRefreshCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force an immediate token refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec := a.creds.Load()
			if rec == nil {
				return errNotAuthenticated()
			}
			if rec.RefreshToken == "" {
				return apperr.New(apperr.NoRefreshToken, 0, msgRefreshNoToken)
			}

			m, err := a.Tokens()
			if err != nil {
				return err
			}

			d, stop := a.displayer(true)
			d.Refreshing()
			refreshed, err := m.Refresh(cmd.Context(), rec)
			if err != nil {
				d.RefreshFailed(err)
				stop()
				return apperr.Wrap(apperr.SessionExpired, apperr.StatusOf(err), msgRefreshFailed, err)
			}
			expiresAt := refreshed.ExpiresAtTime()
			d.RefreshOK(expiresAt.Sub(a.now()))
			stop()

			color := a.settings.Color
			msg := "Token refreshed. New expiry: " + expiresAt.Local().Format(expiryLayout)
			return output.Println(a.Out, color, output.Green(msg, color))
		},
	}
}
