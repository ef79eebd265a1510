package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerStub struct {
	err   error
	calls int
}

func (p *pingerStub) Ping(context.Context) error {
	p.calls++
	return p.err
}

func probe(t *testing.T, h http.HandlerFunc, path string) (int, HealthResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLive_IgnoresDependencies(t *testing.T) {
	t.Parallel()

	db := &pingerStub{err: errors.New("connection refused")}
	h := NewHealthHandler("test", HealthCheck{Name: "storage", Pinger: db})

	code, resp := probe(t, h.Live, "/live")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Zero(t, db.calls)
}

func TestReady(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	tests := []struct {
		name       string
		storage    error
		locks      error
		events     error
		wantCode   int
		wantStatus string
	}{
		{name: "all up", wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "storage down", storage: boom, wantCode: http.StatusServiceUnavailable, wantStatus: "down"},
		{name: "locks down", locks: boom, wantCode: http.StatusServiceUnavailable, wantStatus: "down"},
		{name: "optional events down", events: boom, wantCode: http.StatusOK, wantStatus: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			events := &pingerStub{err: tt.events}
			h := NewHealthHandler("test",
				HealthCheck{Name: "storage", Pinger: &pingerStub{err: tt.storage}},
				HealthCheck{Name: "locks", Pinger: &pingerStub{err: tt.locks}},
				HealthCheck{Name: "events", Pinger: events, Optional: true},
			)

			code, resp := probe(t, h.Ready, "/ready")

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Zero(t, events.calls, "ready skips optional checks")
		})
	}
}

func TestHealth_AllOK(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler("v1.0.0",
		HealthCheck{Name: "storage", Pinger: &pingerStub{}},
		HealthCheck{Name: "events", Pinger: &pingerStub{}, Optional: true},
	)

	code, resp := probe(t, h.Health, "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	require.Contains(t, resp.Components, "storage")
	assert.Equal(t, "ok", resp.Components["storage"].Status)
	assert.NotEmpty(t, resp.Components["storage"].Latency)
	assert.True(t, resp.Components["events"].Optional)
}

func TestHealth_OptionalDownIsDegraded(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler("v1.0.0",
		HealthCheck{Name: "storage", Pinger: &pingerStub{}},
		HealthCheck{Name: "events", Pinger: &pingerStub{err: errors.New("no brokers")}, Optional: true},
	)

	code, resp := probe(t, h.Health, "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Components["events"].Status)
	assert.Empty(t, resp.Components["events"].Latency)
}

func TestHealth_RequiredDownWins(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler("v1.0.0",
		HealthCheck{Name: "events", Pinger: &pingerStub{err: errors.New("no brokers")}, Optional: true},
		HealthCheck{Name: "storage", Pinger: &pingerStub{err: errors.New("connection refused")}},
	)

	code, resp := probe(t, h.Health, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down", resp.Status)
	assert.Equal(t, "down", resp.Components["storage"].Status)
}
