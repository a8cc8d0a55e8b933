package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Format != "json" {
			t.Errorf("format = %q, want json", req.Format)
		}
		if req.Stream {
			t.Error("stream should be false")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v, want system+user pair", req.Messages)
		}
		if req.Options["num_predict"] != float64(1024) {
			t.Errorf("num_predict = %v, want 1024", req.Options["num_predict"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": `  {"title":"ok"}` + "\n"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2:3b", GenOptions{Temperature: 0.7, TopP: 0.9, NumPredict: 1024})
	got, err := c.ChatJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("ChatJSON: %v", err)
	}
	if got != `{"title":"ok"}` {
		t.Errorf("ChatJSON = %q, want trimmed content", got)
	}
}

func TestChatJSONErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `model not found`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "missing", GenOptions{})
	if _, err := c.ChatJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("ChatJSON should fail on non-200 status")
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2:3b", GenOptions{})
	if !c.Available(context.Background()) {
		t.Error("Available = false, want true")
	}

	srv.Close()
	if c.Available(context.Background()) {
		t.Error("Available = true after server shutdown, want false")
	}
}
