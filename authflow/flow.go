// Package authflow runs the browser side of the OAuth authorization-code
// login: a one-shot loopback callback listener racing an optional pasted
// redirect URL, under a wall-clock timeout.
package authflow

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/muesli/cancelreader"
	"github.com/phuslu/log"

	"github.com/go-whoop/whoop-cli/apperr"
)

const (
	// DefaultTimeout bounds the whole login attempt.
	DefaultTimeout = 5 * time.Minute

	callbackPath    = "/callback"
	stateBytes      = 16
	shutdownTimeout = 2 * time.Second
)

// Source tells which path delivered the authorization code.
type Source string

const (
	SourceCallback Source = "callback"
	SourcePaste    Source = "paste"
)

// Options configures a login attempt.
type Options struct {
	// Port to listen on. 0 lets the OS pick one.
	Port int
	// State is the CSRF token. Generated when empty.
	State string
	// AuthURL builds the authorization URL for the bound redirect URI.
	AuthURL func(redirectURI, state string) string
	// Present shows the URL to the user once the listener is bound.
	Present func(authURL string, port int)
	// Input, when set, is read line by line for a pasted redirect URL or code.
	Input io.Reader
	// OnPasteRejected is told why a pasted line was ignored.
	OnPasteRejected func(reason string)
	Timeout         time.Duration
	Logger          *log.Logger
}

// Result is a successful login attempt.
type Result struct {
	Port        int
	Code        string
	RedirectURI string
	Source      Source
}

// RedirectURI is the callback address registered for port.
func RedirectURI(port int) string {
	return "http://localhost:" + strconv.Itoa(port) + callbackPath
}

// GenerateState returns 16 random bytes, hex encoded.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type outcome struct {
	res *Result
	err error
}

// settler resolves a flow exactly once. Later settle calls are no-ops.
type settler struct {
	once sync.Once
	done chan outcome
}

func newSettler() *settler {
	return &settler{done: make(chan outcome, 1)}
}

func (s *settler) settle(res *Result, err error) bool {
	won := false
	s.once.Do(func() {
		s.done <- outcome{res: res, err: err}
		won = true
	})
	return won
}

// Run binds the callback listener, presents the authorization URL and waits
// for the first of: a callback, a pasted code, the timeout, a listener
// failure or ctx cancellation. Everything it started is torn down before it
// returns.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.AuthURL == nil {
		return nil, errors.New("authflow: AuthURL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: io.Discard}}
	}

	state := opts.State
	if state == "" {
		var err error
		if state, err = GenerateState(); err != nil {
			return nil, apperr.Wrap(apperr.AuthFlowFailed, 0, err.Error(), err)
		}
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, apperr.Wrap(apperr.AuthFlowFailed, 0,
			fmt.Sprintf("Failed to start callback server: %v", err), err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	redirectURI := RedirectURI(port)

	logger.Debug().Int("port", port).Str("redirect_uri", redirectURI).Msg("callback listener bound")

	s := newSettler()

	mux := http.NewServeMux()
	mux.Handle(callbackPath, &callbackHandler{
		state:       state,
		port:        port,
		redirectURI: redirectURI,
		settler:     s,
	})
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.settle(nil, apperr.Wrap(apperr.AuthFlowFailed, 0,
				fmt.Sprintf("Callback server failed: %v", err), err))
		}
	}()

	var input cancelreader.CancelReader
	if opts.Input != nil {
		input, err = cancelreader.NewReader(opts.Input)
		if err != nil {
			logger.Debug().Err(err).Msg("paste input unavailable")
			input = nil
		}
	}

	timer := time.NewTimer(opts.Timeout)

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			timer.Stop()
			if input != nil {
				input.Cancel()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Debug().Err(err).Msg("callback server shutdown")
				_ = srv.Close()
			}
		})
	}
	defer cleanup()

	if opts.Present != nil {
		opts.Present(opts.AuthURL(redirectURI, state), port)
	}

	if input != nil {
		go readPasted(input, state, port, redirectURI, s, opts.OnPasteRejected, logger)
	}

	var out outcome
	select {
	case out = <-s.done:
	case <-timer.C:
		s.settle(nil, apperr.New(apperr.AuthFlowTimedOut, 0,
			fmt.Sprintf("Authentication timed out (%s). Try again.", describeTimeout(opts.Timeout))))
		out = <-s.done
	case <-ctx.Done():
		s.settle(nil, apperr.Wrap(apperr.AuthFlowFailed, 0, "Authentication cancelled", ctx.Err()))
		out = <-s.done
	}

	cleanup()

	if out.err != nil {
		logger.Debug().Err(out.err).Msg("login flow failed")
		return nil, out.err
	}
	logger.Debug().Str("source", string(out.res.Source)).Msg("authorization code received")
	return out.res, nil
}

func readPasted(
	input io.Reader,
	state string,
	port int,
	redirectURI string,
	s *settler,
	onRejected func(string),
	logger *log.Logger,
) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		code, err := ParsePastedInput(scanner.Text(), state)
		if err != nil {
			if onRejected != nil {
				onRejected(err.Error())
			}
			continue
		}
		if code == "" {
			continue
		}
		s.settle(&Result{
			Port:        port,
			Code:        code,
			RedirectURI: redirectURI,
			Source:      SourcePaste,
		}, nil)
		return
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, cancelreader.ErrCanceled) {
		logger.Debug().Err(err).Msg("paste input closed")
	}
}

func describeTimeout(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return strconv.Itoa(m) + " minutes"
	}
	return d.String()
}
