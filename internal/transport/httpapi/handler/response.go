package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/user"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/internal/transport/httpapi/middleware"
	"github.com/harvestline/backend/pkg/logger"
	"github.com/harvestline/backend/pkg/money"
)

// IdempotencyKeyHeader carries the client's idempotency key
const IdempotencyKeyHeader = "Idempotency-Key"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondAppError maps err to a status code. Only the code and message of an
// AppError reach the client; anything else is logged and reported as internal.
func respondAppError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := apperrors.GetAppError(err)
	status := statusFor(appErr)

	if appErr == nil || status >= http.StatusInternalServerError {
		log.WithContext(r.Context()).WithError(err).Error("request failed", "path", r.URL.Path)
		respondJSON(w, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}, http.StatusInternalServerError)
		return
	}
	respondJSON(w, ErrorResponse{Error: appErr.Message, Code: appErr.Code}, status)
}

func statusFor(appErr *apperrors.AppError) int {
	if appErr == nil {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case user.ErrInvalidPassword.Code:
		return http.StatusUnauthorized
	case user.ErrUserAlreadyExists.Code:
		return http.StatusConflict
	}
	switch appErr.Kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindDomainGuard:
		return http.StatusUnprocessableEntity
	case apperrors.KindIdempotencyConflict, apperrors.KindApprovalState:
		return http.StatusConflict
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v, rejecting unknown fields
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// principal returns the authenticated caller or writes 401
func principal(w http.ResponseWriter, r *http.Request) (user.Principal, bool) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondError(w, "authentication required", http.StatusUnauthorized)
		return user.Principal{}, false
	}
	return p, true
}

// pathUUID parses a UUID route parameter or writes 400
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// parseAmount parses a USD amount field or writes 400
func parseAmount(w http.ResponseWriter, field, value string) (decimal.Decimal, bool) {
	d, err := money.ParseUSD(value)
	if err != nil {
		respondJSON(w, ErrorResponse{Error: field + ": " + err.Error(), Code: "INVALID_AMOUNT"}, http.StatusBadRequest)
		return decimal.Zero, false
	}
	return d, true
}

// parsePercent parses a percentage field or writes 400
func parsePercent(w http.ResponseWriter, field, value string) (decimal.Decimal, bool) {
	d, err := money.ParsePercent(value)
	if err != nil {
		respondJSON(w, ErrorResponse{Error: field + ": " + err.Error(), Code: "INVALID_PERCENTAGE"}, http.StatusBadRequest)
		return decimal.Zero, false
	}
	return d, true
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
