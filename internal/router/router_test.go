package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"api-chatbot/internal/handlers"
	"api-chatbot/internal/lock"
	"api-chatbot/internal/middleware"
	"api-chatbot/internal/models"
	"api-chatbot/internal/repository"
	"api-chatbot/internal/services"
	"api-chatbot/internal/websocket"
)

type echoGateway struct{}

func (echoGateway) Complete(ctx context.Context, prompt string) (string, error) {
	return "echo: " + prompt, nil
}

func newTestServer(t *testing.T, limit int) http.Handler {
	t.Helper()
	hub := websocket.NewHub(nil, zerolog.Nop())
	relay := services.NewRelayService(echoGateway{}, repository.NewMemoryHistoryRepo(), lock.NewLocal(time.Second), hub, zerolog.Nop())
	limiter := middleware.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	return New(handlers.NewChatHandler(relay, false), hub, limiter, Options{Logger: zerolog.Nop()})
}

func TestRouter_FullConversation(t *testing.T) {
	h := newTestServer(t, 30)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"Hello","userId":"u1"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON response, got %q", ct)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/history/u1", nil))
	var history []models.Message
	if err := json.NewDecoder(rr.Body).Decode(&history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 2 || history[1].Text != "echo: Hello" {
		t.Fatalf("unexpected history: %+v", history)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/history/u1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", rr.Code)
	}
}

func TestRouter_RateLimitsGenerateOnly(t *testing.T) {
	h := newTestServer(t, 1)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{}`))
		req.RemoteAddr = "192.0.2.1:1000"
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("health must not be rate limited, got %d", rr.Code)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestServer(t, 30)

	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestServer(t, 30)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "chatbot_http_requests_total") {
		t.Fatalf("expected request counter in exposition")
	}
}
