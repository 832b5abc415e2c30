package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"api-chatbot/internal/models"
	"api-chatbot/internal/services"
)

const maxGenerateBody = 1 << 20

type chatRelay interface {
	Turn(ctx context.Context, req services.TurnRequest) (services.TurnResult, error)
	History(ctx context.Context, userID string) ([]models.Message, error)
	ClearHistory(ctx context.Context, userID string) error
}

type ChatHandler struct {
	relay       chatRelay
	debugErrors bool
}

func NewChatHandler(relay chatRelay, debugErrors bool) *ChatHandler {
	return &ChatHandler{relay: relay, debugErrors: debugErrors}
}

// Generate handles POST /generate. An empty body counts as {}.
func (h *ChatHandler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBody)

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejecting generate body")
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body", err, h.debugErrors))
		return
	}

	result, err := h.relay.Turn(r.Context(), services.TurnRequest{Prompt: req.Prompt, UserID: req.UserID})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to generate content", err, h.debugErrors))
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateResponse{Text: result.Text})
}

// History handles GET /history/{userId}.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	messages, err := h.relay.History(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to fetch chat history", err, h.debugErrors))
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

// ClearHistory handles DELETE /history/{userId}.
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.relay.ClearHistory(r.Context(), userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to clear chat history", err, h.debugErrors))
		return
	}

	writeJSON(w, http.StatusOK, models.ClearResponse{Success: true})
}
