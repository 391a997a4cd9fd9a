package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-whoop/whoop-cli/apperr"
)

type fakeTokens struct {
	mu          sync.Mutex
	calls       []bool
	token       string
	forcedToken string
	forceErr    error
	err         error
}

func (f *fakeTokens) ValidToken(_ context.Context, force bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, force)
	if f.err != nil {
		return "", f.err
	}
	if force {
		if f.forceErr != nil {
			return "", f.forceErr
		}
		return f.forcedToken, nil
	}
	return f.token, nil
}

func (f *fakeTokens) forcedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, forced := range f.calls {
		if forced {
			n++
		}
	}
	return n
}

func newTestClient(t *testing.T, tokens TokenSource, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(tokens, WithBaseURL(srv.URL), WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestClient_InjectsBearerToken(t *testing.T) {
	tokens := &fakeTokens{token: "tok-1"}
	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/v2/user/profile/basic", r.URL.Path)
		_, _ = w.Write([]byte(`{"user_id":10129,"email":"jane@example.com","first_name":"Jane","last_name":"Doe"}`))
	})

	p, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10129), p.UserID)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, []bool{false}, tokens.calls)
}

func TestClient_RetriesOnceAfter401(t *testing.T) {
	tokens := &fakeTokens{token: "stale", forcedToken: "fresh"}
	var hits atomic.Int32
	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"height_meter":1.8,"weight_kilogram":80,"max_heart_rate":190}`))
	})

	b, err := c.GetBodyMeasurement(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.8, b.HeightMeter, 0.001)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, tokens.forcedCalls())
}

func TestClient_Second401IsSessionExpired(t *testing.T) {
	tokens := &fakeTokens{token: "stale", forcedToken: "also-stale"}
	var hits atomic.Int32
	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.SessionExpired))
	assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(err))
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, tokens.forcedCalls())
}

func TestClient_RefreshFailureAfter401(t *testing.T) {
	cause := errors.New("refresh rejected")
	tokens := &fakeTokens{token: "stale", forceErr: cause}
	var hits atomic.Int32
	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ListCycles(context.Background(), ListParams{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.SessionExpired))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_RetryClassifiesOtherStatuses(t *testing.T) {
	tokens := &fakeTokens{token: "stale", forcedToken: "fresh"}
	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetSleep(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestClient_RefreshCancelledAfter401(t *testing.T) {
	tokens := &fakeTokens{token: "stale", forceErr: fmt.Errorf("refresh: %w", context.Canceled)}
	c := newTestClient(t, tokens, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apperr.Is(err, apperr.SessionExpired))
}

func TestClient_PreStepErrorPassesThrough(t *testing.T) {
	notAuth := apperr.New(apperr.NotAuthenticated, 0, "not authenticated")
	var hits atomic.Int32
	c := newTestClient(t, &fakeTokens{err: notAuth}, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := c.GetProfile(context.Background())
	assert.True(t, apperr.Is(err, apperr.NotAuthenticated))
	assert.Zero(t, hits.Load())
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		header         map[string]string
		body           string
		wantKind       apperr.Kind
		wantMsg        string
		wantRetryAfter int
	}{
		{
			name:           "rate limited with header",
			status:         http.StatusTooManyRequests,
			header:         map[string]string{"Retry-After": "30"},
			wantKind:       apperr.RateLimited,
			wantMsg:        "Retry after 30s",
			wantRetryAfter: 30,
		},
		{
			name:           "rate limited without header",
			status:         http.StatusTooManyRequests,
			wantKind:       apperr.RateLimited,
			wantRetryAfter: 60,
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			wantKind: apperr.NotFound,
			wantMsg:  "Resource not found",
		},
		{
			name:     "bad request with message",
			status:   http.StatusBadRequest,
			body:     `{"message":"start must be before end"}`,
			wantKind: apperr.RequestFailed,
			wantMsg:  "start must be before end",
		},
		{
			name:     "forbidden with error field",
			status:   http.StatusForbidden,
			body:     `{"error":"insufficient_scope"}`,
			wantKind: apperr.RequestFailed,
			wantMsg:  "insufficient_scope",
		},
		{
			name:     "unprocessable without body",
			status:   http.StatusUnprocessableEntity,
			wantKind: apperr.RequestFailed,
			wantMsg:  "Request failed with status 422",
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			wantKind: apperr.ServerError,
			wantMsg:  "server error",
		},
		{
			name:     "internal server error",
			status:   http.StatusInternalServerError,
			wantKind: apperr.ServerError,
			wantMsg:  "server error",
		},
		{
			name:     "service unavailable",
			status:   http.StatusServiceUnavailable,
			header:   map[string]string{"Retry-After": "5"},
			wantKind: apperr.ServerError,
			wantMsg:  "server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			c := newTestClient(t, &fakeTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.ListWorkouts(context.Background(), ListParams{})
			require.Error(t, err)

			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantKind, appErr.Kind)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Contains(t, appErr.Error(), tt.wantMsg)
			if tt.wantRetryAfter != 0 {
				assert.Equal(t, tt.wantRetryAfter, appErr.RetryAfter)
			}
			// no automatic retries besides the 401 path
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestClient_TransportEventsUseInjectedLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := &log.Logger{Level: log.DebugLevel, Writer: &log.IOWriter{Writer: &buf}}
	c, err := NewClient(&fakeTokens{token: "t"}, WithBaseURL(srv.URL), WithLogger(logger))
	require.NoError(t, err)

	_, err = c.GetProfile(context.Background())
	assert.True(t, apperr.Is(err, apperr.ServerError))
	assert.Contains(t, buf.String(), `"component":"httpretry"`)
	assert.Contains(t, buf.String(), `"status":503`)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(&fakeTokens{token: "t"}, WithBaseURL(url), WithTimeout(2*time.Second))
	require.NoError(t, err)

	_, err = c.GetProfile(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NetworkError))
	assert.Equal(t, 0, apperr.StatusOf(err))
	assert.Contains(t, err.Error(), "internet connection")
}

func TestClient_ListQueryAndDecode(t *testing.T) {
	c := newTestClient(t, &fakeTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/recovery", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, "2026-01-01T00:00:00.000Z", q.Get("start"))
		assert.Equal(t, "abc", q.Get("nextToken"))
		assert.False(t, q.Has("end"))
		_, _ = w.Write([]byte(`{
			"records": [{"cycle_id": 93845, "sleep_id": "s-1", "score_state": "SCORED",
				"score": {"recovery_score": 44, "resting_heart_rate": 64, "hrv_rmssd_milli": 31.8}}],
			"next_token": "def"
		}`))
	})

	page, err := c.ListRecoveries(context.Background(), ListParams{
		Limit:     25,
		Start:     "2026-01-01T00:00:00.000Z",
		NextToken: "abc",
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, int64(93845), page.Records[0].CycleID)
	assert.Equal(t, ScoreStateScored, page.Records[0].ScoreState)
	assert.InDelta(t, 44, page.Records[0].Score.RecoveryScore, 0)
	assert.Nil(t, page.Records[0].Score.SpO2Percentage)
	assert.Equal(t, "def", page.NextToken)
}

func TestClient_EndpointPaths(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := newTestClient(t, &fakeTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	ctx := context.Background()

	_, err := c.GetCycle(ctx, 42)
	require.NoError(t, err)
	_, err = c.GetCycleSleep(ctx, 42)
	require.NoError(t, err)
	_, err = c.GetCycleRecovery(ctx, 42)
	require.NoError(t, err)
	_, err = c.ListSleeps(ctx, ListParams{})
	require.NoError(t, err)
	_, err = c.GetWorkout(ctx, "w-1")
	require.NoError(t, err)
	require.NoError(t, c.RevokeAccess(ctx))

	assert.Equal(t, []string{
		"GET /v2/cycle/42",
		"GET /v2/cycle/42/sleep",
		"GET /v2/cycle/42/recovery",
		"GET /v2/activity/sleep",
		"GET /v2/activity/workout/w-1",
		"DELETE /v2/user/access",
	}, paths)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, parseRetryAfter("30", now))
	assert.Equal(t, 0, parseRetryAfter("0", now))
	assert.Equal(t, 60, parseRetryAfter("", now))
	assert.Equal(t, 60, parseRetryAfter("soon", now))
	assert.Equal(t, 60, parseRetryAfter("-5", now))
	assert.Equal(t, 90, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, 0, parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}
