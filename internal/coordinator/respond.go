package coordinator

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// respondJSON writes v as a JSON response with the given status code,
// logging (but not failing further) if encoding fails after headers are
// already committed.
func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("coordinator: failed to encode response", slog.Int("status", code), slog.Any("error", err))
	}
}

// respondError writes a JSON {"error": "..."} body. Every coordinator
// error message here is already safe to expose: request validation
// failures and protocol-level conflicts, never raw internal errors.
func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}
