package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/pkg/logger"
)

// UserServiceInterface defines the user operations needed by AuthHandler
type UserServiceInterface interface {
	Register(ctx context.Context, email, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
}

// JWTServiceInterface defines the interface for JWT operations
type JWTServiceInterface interface {
	GenerateToken(userID uuid.UUID, email string, role user.Role) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userService UserServiceInterface
	jwtService  JWTServiceInterface
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService UserServiceInterface, jwtService JWTServiceInterface, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		logger:      logger.OrDiscard(log).WithComponent("auth_handler"),
	}
}

// Credentials is the registration and login request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo represents user information (without sensitive data)
type UserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	KYCStatus string `json:"kyc_status"`
}

func newUserInfo(u *user.User) *UserInfo {
	return &UserInfo{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      string(u.Role),
		KYCStatus: string(u.KYCStatus),
	}
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (Credentials, bool) {
	var req Credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if req.Email == "" {
		respondError(w, "email is required", http.StatusBadRequest)
		return req, false
	}
	if req.Password == "" {
		respondError(w, "password is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// Register handles user registration (POST /auth/register)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	registered, err := h.userService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	h.respondWithToken(w, r, registered, http.StatusCreated)
}

// Login handles user login (POST /auth/login)
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	authenticated, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	h.respondWithToken(w, r, authenticated, http.StatusOK)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, u *user.User, status int) {
	token, err := h.jwtService.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, AuthResponse{Token: token, User: newUserInfo(u)}, status)
}
