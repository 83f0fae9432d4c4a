package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier("bot-token", WithBaseURL(srv.URL))
	if err := n.SendMessage(context.Background(), "@chan", "published!"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if got := gotForm["chat_id"]; len(got) != 1 || got[0] != "@chan" {
		t.Errorf("chat_id = %v", got)
	}
	if got := gotForm["text"]; len(got) != 1 || got[0] != "published!" {
		t.Errorf("text = %v", got)
	}
}

func TestSendPhoto(t *testing.T) {
	var gotPath string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier("bot-token", WithBaseURL(srv.URL))
	if err := n.SendPhoto(context.Background(), "@chan", "https://cdn.example/i.png", "caption"); err != nil {
		t.Fatalf("SendPhoto failed: %v", err)
	}

	if gotPath != "/botbot-token/sendPhoto" {
		t.Errorf("path = %q", gotPath)
	}
	if got := gotForm["photo"]; len(got) != 1 || got[0] != "https://cdn.example/i.png" {
		t.Errorf("photo = %v", got)
	}
	if got := gotForm["caption"]; len(got) != 1 || got[0] != "caption" {
		t.Errorf("caption = %v", got)
	}
}

func TestAPIFailureIncludesDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	n := NewNotifier("bot-token", WithBaseURL(srv.URL))
	err := n.SendMessage(context.Background(), "@missing", "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error = %v, want description included", err)
	}
}

func TestEmptyTokenFailsFast(t *testing.T) {
	n := NewNotifier("")
	if err := n.SendMessage(context.Background(), "@chan", "text"); err == nil {
		t.Error("expected misconfiguration error for empty token")
	}
}
