package handlers

import (
	"encoding/json"
	"net/http"

	"api-chatbot/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResp builds the flat error body. The underlying error is only echoed
// back when debug is enabled.
func errorResp(message string, err error, debug bool) models.ErrorResponse {
	resp := models.ErrorResponse{Error: message}
	if debug && err != nil {
		resp.Details = err.Error()
	}
	return resp
}
