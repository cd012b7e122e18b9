package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/basketlog/auth-service/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusForError maps service-layer sentinel errors onto HTTP status codes.
// Anything unmapped is an internal error and its text is not exposed.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrTokenMissing),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenInvalid),
		errors.Is(err, common.ErrRefreshTokenInvalid),
		errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrUserNotVerified),
		errors.Is(err, common.ErrForbiddenAccess):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrUserNotExist),
		errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrUserAlreadyExists),
		errors.Is(err, common.ErrUserAlreadyVerified):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrVerificationCodeExpired):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := statusForError(err)
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
