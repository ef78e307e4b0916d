package callback

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"description,omitempty"`
}

// writeJSONError writes a provider-style {"error", "description"} body.
func writeJSONError(ctx context.Context, w http.ResponseWriter, code, description string, status int) {
	writeJSON(ctx, w, errorBody{Error: code, Description: description}, status)
}
