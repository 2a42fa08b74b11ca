// Package httpx holds the JSON response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/middleware"
)

type errorBody struct {
	Error   apperr.Code `json:"error"`
	Message string      `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders {"error": code} with the code's status and logs the cause.
// Causes are never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, code apperr.Code, err error) {
	status := code.Status()
	attrs := []any{
		"code", string(code),
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"trace_id", middleware.TraceIDFromContext(r.Context()),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}
	WriteJSON(w, status, errorBody{Error: code})
}

// WriteErr classifies err with apperr.CodeOf before writing it.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, apperr.CodeOf(err), err)
}

// WriteMessage is WriteError with a client-facing message, used for
// validation failures.
func WriteMessage(w http.ResponseWriter, r *http.Request, code apperr.Code, msg string) {
	slog.Warn("request rejected",
		"code", string(code),
		"message", msg,
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFromContext(r.Context()),
	)
	WriteJSON(w, code.Status(), errorBody{Error: code, Message: msg})
}
