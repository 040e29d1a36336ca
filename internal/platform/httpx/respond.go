// Package httpx provides JSON response and request helpers for the REST API.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// Envelope wraps every successful response.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data"`
	Pagination *shared.Pagination `json:"pagination,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends data in a success envelope with status 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created sends data in a success envelope with status 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// List sends a page of data with pagination metadata.
func List(w http.ResponseWriter, data any, pagination shared.Pagination) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &pagination})
}

// Fail sends an error envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorEnvelope{Error: ErrorBody{Message: message, Status: status}})
}
