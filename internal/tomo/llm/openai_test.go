package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionBody(t *testing.T, r *http.Request) oaiRequest {
	t.Helper()
	var req oaiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return req
}

func TestCompleteReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		body := completionBody(t, r)
		if body.Model != "gemma-3-27b-it" {
			t.Errorf("model = %q", body.Model)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want single user message", body.Messages)
		}
		json.NewEncoder(w).Encode(oaiResponse{
			Choices: []oaiChoice{{Message: oaiMessage{Role: "assistant", Content: "  hello  "}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := p.Complete(context.Background(), CompletionRequest{Model: "gemma-3-27b-it", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	// Trimming is the gateway's job; the provider returns the raw text.
	if resp.Text != "  hello  " {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestCompleteMapsHTTP429ToErrCapacity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("Complete() error = %v, want ErrCapacity", err)
	}
}

func TestCompleteMapsNonJSON429ToErrCapacity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Proxies and bare rate limiters answer 429 with a plain-text body.
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("Too Many Requests"))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("Complete() error = %v, want ErrCapacity", err)
	}
}

func TestCompleteMapsQuotaErrorTypeToErrCapacity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some gateways report quota exhaustion with a 200-level error payload.
		w.Write([]byte(`{"error": {"message": "quota used up", "type": "insufficient_quota"}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("Complete() error = %v, want ErrCapacity", err)
	}
}

func TestCompleteOtherAPIErrorIsNotCapacity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_api_key"}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if err == nil {
		t.Fatal("Complete() error = nil, want auth error")
	}
	if errors.Is(err, ErrCapacity) {
		t.Fatalf("Complete() error = %v, must not be ErrCapacity", err)
	}
	if !strings.Contains(err.Error(), "invalid_api_key") {
		t.Errorf("error %q does not mention the API error type", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	p := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"}); err == nil {
		t.Fatal("Complete() error = nil, want no-choices error")
	}
}
