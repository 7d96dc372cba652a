package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ResponsePolicy decides how completion failures reach HTTP clients.
type ResponsePolicy string

const (
	// PolicyText answers 200 and carries the failure only as display text.
	PolicyText ResponsePolicy = "text"
	// PolicyStructured answers with an error status and an error object.
	PolicyStructured ResponsePolicy = "structured"
)

// ErrorDetail is the structured failure attached under PolicyStructured.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Outcome maps a completion failure kind ("" for success) to the status code
// and optional error object for the policy. It is the only place that knows
// the mapping.
func Outcome(policy ResponsePolicy, failureKind, message string) (int, *ErrorDetail) {
	if failureKind == "" || policy != PolicyStructured {
		return http.StatusOK, nil
	}

	status := http.StatusBadGateway
	if failureKind == "timeout" {
		status = http.StatusGatewayTimeout
	}
	return status, &ErrorDetail{Kind: failureKind, Message: message}
}

// RespondJSON writes payload as JSON.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}
