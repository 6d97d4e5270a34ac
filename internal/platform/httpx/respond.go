// Package httpx renders the API response envelope shared by every handler.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/stockline-erp/stockline/internal/shared"
)

// Envelope is the response body shape for every JSON endpoint.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Error      *ErrorBody         `json:"error,omitempty"`
	Pagination *shared.Pagination `json:"pagination,omitempty"`
}

// ErrorBody carries the human-readable message plus, for stock errors,
// the numeric shortfall fields clients branch on.
type ErrorBody struct {
	Message   string `json:"message"`
	Available *int64 `json:"available,omitempty"`
	Required  *int64 `json:"required,omitempty"`
	Shortage  *int64 `json:"shortage,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK sends a success envelope.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created sends a success envelope with status 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Page sends a success envelope with pagination metadata.
func Page(w http.ResponseWriter, data any, p shared.Pagination) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &p})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
