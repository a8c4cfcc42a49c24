// Package httpx provides the JSON response envelope shared by all API
// endpoints.
package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Meta carries response metadata.
type Meta struct {
	Timestamp string `json:"timestamp"`
}

// Envelope is the uniform success response shape.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Meta    Meta   `json:"meta"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Details   any    `json:"details,omitempty"`
}

// ErrorEnvelope is the uniform error response shape.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// JSON sends a raw JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success sends a success envelope with HTTP 200.
func Success(w http.ResponseWriter, message string, data any) {
	SuccessStatus(w, http.StatusOK, message, data)
}

// SuccessStatus sends a success envelope with an explicit status code.
func SuccessStatus(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    Meta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

// DecodeJSON decodes the JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
