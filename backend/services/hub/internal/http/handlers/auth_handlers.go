package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/auth"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/http/middleware"
)

// AuthHandlers serves the login endpoint.
type AuthHandlers struct {
	service *auth.Service
	logger  *zap.Logger
}

// NewAuthHandlers builds auth handlers.
func NewAuthHandlers(service *auth.Service, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{service: service, logger: logger}
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.User = strings.TrimSpace(req.User)
	if req.User == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "user and password are required")
		return
	}

	result, err := h.service.Login(req.User, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		auth.LoginResult
		TokenType string `json:"token_type"`
	}{result, "Bearer"})
}

// Me handles GET /api/auth/me and returns the authenticated user.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user": user})
}
