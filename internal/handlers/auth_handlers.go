package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/middleware"
	"github.com/gatehouse/gatehouse/internal/service"
)

type AuthHandlers struct {
	auth      *service.AuthService
	resources *Resources
	logger    *logrus.Logger
	debug     bool
}

func NewAuthHandlers(auth *service.AuthService, resources *Resources, logger *logrus.Logger, debug bool) *AuthHandlers {
	return &AuthHandlers{
		auth:      auth,
		resources: resources,
		logger:    logger,
		debug:     debug,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message     string       `json:"message"`
	User        UserResource `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var cmd service.RegisterCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.auth.Register(r.Context(), cmd)
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}

	token, err := h.auth.IssueToken(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token after registration")
		respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate token")
		return
	}

	respondWithJSON(w, http.StatusCreated, AuthResponse{
		Message:     "Account created successfully",
		User:        h.resources.User(user),
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}

	token, err := h.auth.IssueToken(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token after login")
		respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate token")
		return
	}

	respondWithJSON(w, http.StatusOK, AuthResponse{
		Message:     "Logged in successfully",
		User:        h.resources.User(user),
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication")
		return
	}

	if err := h.auth.Logout(r.Context(), user); err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication")
		return
	}

	token, err := h.auth.RefreshToken(r.Context(), user)
	if err != nil {
		respondWithDomainError(w, err, h.logger, h.debug)
		return
	}

	respondWithJSON(w, http.StatusOK, token)
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication")
		return
	}

	respondWithJSON(w, http.StatusOK, h.resources.User(user))
}
