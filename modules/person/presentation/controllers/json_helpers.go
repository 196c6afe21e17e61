package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/harborworks/crewdb/pkg/composables"
)

type apiError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to encode response")
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, apiErrorResponse{Error: apiError{Code: code, Message: message}})
}

func writeFieldsError(w http.ResponseWriter, r *http.Request, status int, code, message string, fields []string) {
	writeJSON(w, r, status, apiErrorResponse{Error: apiError{Code: code, Message: message, Fields: fields}})
}
