// internal/api/respond.go
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"project-tracker/internal/apperrors"
)

// errorBody is the machine-readable error envelope returned by every
// failing endpoint.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorBody{Error: errorDetail{
		Kind:    kindForStatus(code),
		Message: message,
	}})
}

// respondWithAppError maps a classified error to an HTTP status and body.
// Unclassified errors are logged and masked as 500s.
func respondWithAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := apperrors.KindOf(err)

	var code int
	switch kind {
	case apperrors.KindNotFound:
		code = http.StatusNotFound
	case apperrors.KindRateLimited:
		code = http.StatusTooManyRequests
	case apperrors.KindUpstream:
		code = http.StatusBadGateway
	case apperrors.KindValidation:
		code = http.StatusBadRequest
	case apperrors.KindDuplicateKey:
		code = http.StatusConflict
	default:
		logger.Error("Internal server error", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Kind:    apperrors.KindPersistence.String(),
			Message: "Internal server error",
		}})
		return
	}

	respondWithJSON(w, code, errorBody{Error: errorDetail{
		Kind:    kind.String(),
		Message: err.Error(),
	}})
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return apperrors.KindValidation.String()
	case http.StatusNotFound:
		return apperrors.KindNotFound.String()
	case http.StatusUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}
