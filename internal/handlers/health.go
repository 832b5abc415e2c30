package handlers

import (
	"net/http"

	"api-chatbot/internal/models"
)

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}
