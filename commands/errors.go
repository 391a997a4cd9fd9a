package commands

import (
	"errors"
	"fmt"

	"github.com/go-whoop/whoop-cli/apperr"
	"github.com/go-whoop/whoop-cli/auth"
	"github.com/go-whoop/whoop-cli/output"
)

// reportedError has already been shown by a displayer. Only its remediation
// hint is printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func errNotAuthenticated() error {
	return apperr.New(apperr.NotAuthenticated, 0, auth.MsgNotAuthenticated)
}

// printError writes err with a remediation hint where one applies.
func (a *App) printError(err error) {
	color := a.settings.Color && a.config != nil

	var reported reportedError
	if !errors.As(err, &reported) {
		_ = output.Println(a.Err, color, output.Red("Error: "+err.Error(), color))
	}

	if hint := remediation(err); hint != "" {
		_ = output.Println(a.Err, color, output.Dim(hint, color))
	}
	if a.logger != nil {
		if detail := apperr.Detail(err); detail != "" {
			a.logger.Debug().Str("kind", apperr.KindOf(err).String()).Str("cause", detail).Msg("command failed")
		}
	}
}

// remediation returns a follow-up hint for kinds whose message doesn't
// already say what to do.
func remediation(err error) string {
	switch apperr.KindOf(err) {
	case apperr.AuthFlowFailed:
		return `Run "whoop auth login --no-browser" to paste the redirect URL manually.`
	case apperr.RequestFailed:
		if apperr.StatusOf(err) == 403 {
			return `The token may lack a required scope. Run "whoop auth login" to grant access again.`
		}
	}
	return ""
}

// identity renders "First Last (email)".
func identity(first, last, email string) string {
	return fmt.Sprintf("%s %s (%s)", first, last, email)
}
