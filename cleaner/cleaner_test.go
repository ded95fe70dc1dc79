package cleaner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewRequiresKey(t *testing.T) {
	if _, err := New("", "", 0); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestCleanSendsTranscript(t *testing.T) {
	var gotModel, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotModel = req.Model
		for _, m := range req.Messages {
			if m.Role == "user" {
				gotUser = m.Content
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  Cleaned text.  "}},
			},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", "test-model", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c.apiURL = srv.URL

	cleaned, err := c.Clean(context.Background(), "raw transcript")
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if cleaned != "Cleaned text." {
		t.Errorf("cleaned = %q, want trimmed content", cleaned)
	}
	if gotModel != "test-model" {
		t.Errorf("model = %q", gotModel)
	}
	if gotUser != "raw transcript" {
		t.Errorf("user message = %q", gotUser)
	}
}

func TestCleanTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New("test-key", "", 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	c.apiURL = srv.URL

	if _, err := c.Clean(context.Background(), "text"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestCleanAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	c, err := New("test-key", "", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c.apiURL = srv.URL

	_, err = c.Clean(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("API error should not look like a timeout")
	}
}

func TestCleanEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "   "}},
			},
		})
	}))
	defer srv.Close()

	c, err := New("test-key", "", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	c.apiURL = srv.URL

	if _, err := c.Clean(context.Background(), "text"); err == nil {
		t.Fatal("expected error on empty cleaned text")
	}
}

func TestFakePassthrough(t *testing.T) {
	f := &Fake{}
	got, err := f.Clean(context.Background(), "as is")
	if err != nil {
		t.Fatal(err)
	}
	if got != "as is" {
		t.Errorf("got %q", got)
	}
	if calls := f.Calls(); len(calls) != 1 || calls[0] != "as is" {
		t.Errorf("Calls() = %v", calls)
	}
}
