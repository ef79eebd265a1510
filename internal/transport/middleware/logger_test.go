package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/pkg/ctxutil"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestLogger_RouteAndIdentity(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	userID := uuid.New()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxutil.WithRequestID(r.Context(), "req-1")
			ctx = ctxutil.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Use(Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.Post("/audit/sessions/{id}/scans", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audit/sessions/abc/scans", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "http.request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/audit/sessions/abc/scans", entry["path"])
	assert.Equal(t, "/audit/sessions/{id}/scans", entry["route"])
	assert.EqualValues(t, http.StatusCreated, entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, userID.String(), entry["user_id"])
	assert.Contains(t, entry, "duration")
}

func TestLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusConflict, "INFO"},
		{http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			h := Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.WriteHeader(http.StatusTeapot) // ignored
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/audit/sessions/1/apply", nil))

			entry := decodeLogLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.EqualValues(t, tt.status, entry["status"])
			assert.NotContains(t, entry, "route", "no chi context outside a router")
			assert.NotContains(t, entry, "user_id")
		})
	}
}

func TestLogger_ImplicitOK(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"items":[]}`)) //nolint:errcheck
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/audit/plans", nil))

	assert.EqualValues(t, http.StatusOK, decodeLogLine(t, &buf)["status"])
}
