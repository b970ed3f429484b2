package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/logger"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// StatusForError maps an error kind to its HTTP status.
func StatusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindNotApplicable:
		return http.StatusUnprocessableEntity
	case domain.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it with the status of its kind. Server
// errors hide their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	log := logger.FromContext(r.Context())

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		WriteJSONError(w, status, "internal error")
		return
	}
	log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	WriteJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
