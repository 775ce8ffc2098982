// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"encoding/json"
	"net/http"

	"github.com/tfprivate/tfregistry/pkg/logger"
)

// ErrorResponse is the uniform error body returned by every endpoint.
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, statusCode int, messages ...string) {
	WriteJSONResponse(w, ErrorResponse{Errors: messages}, statusCode)
}
