package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSink_Send(t *testing.T) {
	t.Parallel()

	var received Prompt
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, nil)
	prompt := Prompt{
		UserID:  "user-1",
		Text:    "Did 'Dinner with family' happen?",
		Options: []string{"Done", "Missed"},
	}

	if err := sink.Send(context.Background(), prompt); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if received.UserID != "user-1" {
		t.Errorf("UserID = %q", received.UserID)
	}
	if len(received.Options) != 2 {
		t.Errorf("got %d options, want 2", len(received.Options))
	}
}

func TestWebhookSink_EditLast(t *testing.T) {
	t.Parallel()

	var received Prompt
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, nil)
	if err := sink.EditLast(context.Background(), "user-1", "'Dinner with family' marked done."); err != nil {
		t.Fatalf("EditLast returned error: %v", err)
	}
	if !received.Edit {
		t.Error("expected edit flag on the payload")
	}
	if len(received.Options) != 0 {
		t.Errorf("got %d options on an edit, want 0", len(received.Options))
	}
}

func TestWebhookSink_Send_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, nil)
	if err := sink.Send(context.Background(), Prompt{UserID: "u", Text: "t"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
