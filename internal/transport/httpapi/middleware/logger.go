package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/harvestline/backend/pkg/logger"
)

const requestInfoKey ContextKey = "request_info"

// requestInfo is filled by inner middleware so the access log can name the
// caller after the handler chain returns
type requestInfo struct {
	userID string
}

func noteUser(ctx context.Context, userID string) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.userID = userID
	}
}

// failureRecorder keeps the body of error responses so the access log can
// report the error code the client received
type failureRecorder struct {
	chimiddleware.WrapResponseWriter
	body bytes.Buffer
}

func (f *failureRecorder) Write(b []byte) (int, error) {
	if f.Status() >= http.StatusBadRequest && f.body.Len() < 4096 {
		f.body.Write(b)
	}
	return f.WrapResponseWriter.Write(b)
}

func (f *failureRecorder) failure() (code, message string) {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(f.body.Bytes(), &body) != nil {
		return "", ""
	}
	return body.Code, body.Error
}

// Logger writes one access log line per request. Server errors log at
// ERROR, rejected requests at WARN.
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			ctx := context.WithValue(r.Context(), requestInfoKey, info)

			reqID := chimiddleware.GetReqID(ctx)
			if reqID != "" {
				ctx = context.WithValue(ctx, logger.RequestIDKey, reqID)
				w.Header().Set("X-Request-Id", reqID)
			}

			rec := &failureRecorder{WrapResponseWriter: chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.Status()
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if reqID != "" {
				attrs = append(attrs, "request_id", reqID)
			}
			if info.userID != "" {
				attrs = append(attrs, "user_id", info.userID)
			}
			if r.Header.Get("Idempotency-Key") != "" {
				attrs = append(attrs, "idempotent", true)
			}
			if status >= http.StatusBadRequest {
				if code, msg := rec.failure(); msg != "" {
					attrs = append(attrs, "error_code", code, "error", msg)
				}
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.Error("HTTP request", attrs...)
			case status >= http.StatusBadRequest:
				log.Warn("HTTP request", attrs...)
			default:
				log.Info("HTTP request", attrs...)
			}
		})
	}
}
