package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/apperr"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// respondWithDomainError converts the domain error taxonomy to HTTP at the
// outermost boundary. Unknown errors become 500s whose detail only leaks
// when the debug flag is set.
func respondWithDomainError(w http.ResponseWriter, err error, logger *logrus.Logger, debug bool) {
	var validation *apperr.ValidationError
	switch {
	case errors.As(err, &validation):
		respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    "VALIDATION_FAILED",
				Message: "The given data was invalid",
				Fields:  validation.Fields,
			},
		})
	case errors.Is(err, apperr.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, apperr.ErrUnauthenticated),
		errors.Is(err, apperr.ErrTokenRevoked),
		errors.Is(err, apperr.ErrSessionExpired):
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
	case errors.Is(err, apperr.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
	case errors.Is(err, apperr.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	default:
		logger.WithError(err).Error("Unhandled error")
		message := "Internal server error"
		if debug {
			message = err.Error()
		}
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
	}
}
