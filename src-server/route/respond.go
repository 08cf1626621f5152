package route

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"eventfair/src-server/service"
)

func statusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KIND_VALIDATION:
		return http.StatusBadRequest
	case service.KIND_NOT_FOUND:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Write result as JSON with the status matching its outcome.
func writeResult[T any](w http.ResponseWriter, result service.Result[T]) {
	status := http.StatusOK
	if !result.Success {
		status = statusOf(result.Kind)
	}
	writeJSON(w, status, result)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, service.Result[any]{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("can't write response", "error", err)
	}
}
