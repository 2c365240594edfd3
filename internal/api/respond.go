package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/soaringjerry/Kringle/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Every
// rejection carries a distinguishable code so callers can decide whether
// a retry makes sense.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := services.ErrorCode("internal")
	msg := "internal error"
	status := http.StatusInternalServerError
	if se, ok := services.AsServiceError(err); ok {
		code = se.Code
		msg = se.Message
		switch se.Code {
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorInvalid, services.ErrorInsufficientParticipants:
			status = http.StatusBadRequest
		case services.ErrorConflict:
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
		}
	}
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]any{"error": msg, "code": string(code)})
}
