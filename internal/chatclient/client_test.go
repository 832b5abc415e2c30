package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"api-chatbot/internal/models"
)

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req models.GenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "Hello" || req.UserID != "user_1" {
			t.Errorf("unexpected body %+v", req)
		}
		json.NewEncoder(w).Encode(models.GenerateResponse{Text: "Hi there"})
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL+"/", nil).Generate(context.Background(), "Hello", "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hi there" {
		t.Fatalf("expected %q, got %q", "Hi there", text)
	}
}

func TestClient_ErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"server message", `{"error":"Failed to generate content"}`, "Failed to generate content"},
		{"non-json body", `oops`, "Server error"},
		{"empty error field", `{}`, "Server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil).Generate(context.Background(), "Hello", "u")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != http.StatusInternalServerError || apiErr.Message != tc.wantMsg {
				t.Fatalf("unexpected error %+v", apiErr)
			}
		})
	}
}

func TestClient_HistoryAndClear(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path != "/history/user_1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`[{"text":"Hello","isUser":true,"timestamp":"2024-05-01T12:00:00Z"},{"text":"Hi","isUser":false,"timestamp":"2024-05-01T12:00:00Z"}]`))
		case http.MethodDelete:
			deleted = r.URL.Path
			w.Write([]byte(`{"success":true}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	msgs, err := c.History(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 2 || !msgs[0].IsUser || msgs[1].Text != "Hi" {
		t.Fatalf("unexpected history %+v", msgs)
	}

	if err := c.ClearHistory(context.Background(), "user_1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if deleted != "/history/user_1" {
		t.Fatalf("expected DELETE /history/user_1, got %q", deleted)
	}
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, nil).Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
