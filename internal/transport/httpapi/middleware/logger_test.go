package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/pkg/logger"
)

func accessLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestLogger_RecordsRejectedRequest(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Env: "production"}, &buf)

	h := chimiddleware.RequestID(Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noteUser(r.Context(), "user-1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"key reused","code":"IDEMPOTENCY_KEY_REUSE"}`))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/deposits", nil)
	req.Header.Set("Idempotency-Key", "dep-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	line := accessLine(t, &buf)
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, float64(http.StatusConflict), line["status"])
	assert.Equal(t, "user-1", line["user_id"])
	assert.Equal(t, true, line["idempotent"])
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSE", line["error_code"])
	assert.NotEmpty(t, line["request_id"])
	assert.Equal(t, line["request_id"], rec.Header().Get("X-Request-Id"))
}

func TestLogger_SuccessLogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Env: "production"}, &buf)

	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	line := accessLine(t, &buf)
	assert.Equal(t, "INFO", line["level"])
	assert.NotContains(t, line, "error_code")
	assert.NotContains(t, line, "user_id")
}

func TestRecovery_ServerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Env: "production"}, &buf)

	h := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Panic recovered")
}
