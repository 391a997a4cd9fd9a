package authflow

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-whoop/whoop-cli/apperr"
)

// Minimum length for a pasted line to be taken as a bare authorization code.
const minRawCodeLen = 11

// ErrStateMismatch is reported for a pasted redirect URL carrying another state.
var ErrStateMismatch = errors.New("state mismatch in pasted URL")

const pageTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>WHOOP CLI</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:4em">
<h1>%TITLE%</h1><p>%BODY%</p>
</body></html>
`

func page(title, body string) string {
	return strings.NewReplacer("%TITLE%", title, "%BODY%", body).Replace(pageTemplate)
}

var (
	pageSuccess       = page("Success!", "You can close this window and return to the terminal.")
	pageDenied        = page("Authorization Failed", "You can close this window.")
	pageMissingCode   = page("Missing Code", "No authorization code received.")
	pageStateMismatch = page("State Mismatch", "CSRF verification failed.")
)

type callbackHandler struct {
	state       string
	port        int
	redirectURI string
	settler     *settler
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		msg := "Authorization failed: " + reason
		if desc := q.Get("error_description"); desc != "" {
			msg += " (" + desc + ")"
		}
		writePage(w, http.StatusBadRequest, pageDenied)
		h.settler.settle(nil, apperr.New(apperr.AuthFlowFailed, 0, msg))
		return
	}

	code := q.Get("code")
	if code == "" {
		writePage(w, http.StatusBadRequest, pageMissingCode)
		h.settler.settle(nil, apperr.New(apperr.AuthFlowFailed, 0, "No authorization code received"))
		return
	}

	if q.Get("state") != h.state {
		writePage(w, http.StatusBadRequest, pageStateMismatch)
		h.settler.settle(nil, apperr.New(apperr.AuthFlowFailed, 0, "State mismatch: possible CSRF attack"))
		return
	}

	writePage(w, http.StatusOK, pageSuccess)
	h.settler.settle(&Result{
		Port:        h.port,
		Code:        code,
		RedirectURI: h.redirectURI,
		Source:      SourceCallback,
	}, nil)
}

func writePage(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// ParsePastedInput extracts an authorization code from a pasted line: either
// a full redirect URL or the bare code. An empty code with a nil error means
// the line isn't usable and should be ignored.
func ParsePastedInput(input, expectedState string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	if u, err := url.Parse(input); err == nil && u.Scheme != "" && u.Host != "" {
		q := u.Query()
		code := q.Get("code")
		if code == "" {
			return "", nil
		}
		if state := q.Get("state"); state != "" && state != expectedState {
			return "", ErrStateMismatch
		}
		return code, nil
	}

	if len(input) >= minRawCodeLen && !strings.ContainsAny(input, " \t") {
		return input, nil
	}
	return "", nil
}
