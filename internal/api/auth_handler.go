package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/phrazzld/pixelforge/internal/api/shared"
	"github.com/phrazzld/pixelforge/internal/service/auth"
)

// CredentialChecker verifies a username and password pair.
type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) error
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	credentials   CredentialChecker
	jwtService    auth.JWTService
	tokenLifetime time.Duration
	now           func() time.Time
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	credentials CredentialChecker,
	jwtService auth.JWTService,
	tokenLifetime time.Duration,
) *AuthHandler {
	return &AuthHandler{
		credentials:   credentials,
		jwtService:    jwtService,
		tokenLifetime: tokenLifetime,
		now:           time.Now,
	}
}

// Login handles the /api/auth/login endpoint.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.credentials.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	issued := h.now()
	token, err := h.jwtService.GenerateToken(r.Context(), req.Username)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	resp := LoginResponse{Token: token}
	if h.tokenLifetime > 0 {
		resp.ExpiresAt = issued.Add(h.tokenLifetime).UTC().Format(time.RFC3339)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
