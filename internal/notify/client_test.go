package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSend_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/sms" {
			t.Errorf("path = %s, want /api/sms", r.URL.Path)
		}

		var req smsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.To != "+91 8707535798" || !strings.Contains(req.Message, "DK-ORD-12345") {
			t.Errorf("unexpected request: %+v", req)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client := NewClient(ts.URL + "/")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Send(ctx, "+91 8707535798", "New Order DK-ORD-12345 received. Total: ₹49.50"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
}

func TestSend_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	err := NewClient(ts.URL).Send(context.Background(), "+91 8707535798", "hi")

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want RateLimitError", err)
	}
	if rl.RetryAfter != 5*time.Second {
		t.Fatalf("RetryAfter = %v, want 5s", rl.RetryAfter)
	}
}

func TestSend_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	if err := NewClient(ts.URL).Send(context.Background(), "+91 8707535798", "hi"); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestSend_NotConfigured(t *testing.T) {
	var c *Client
	if err := c.Send(context.Background(), "+91 8707535798", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if err := NewClient("").Send(context.Background(), "+91 8707535798", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSend_AddsScheme(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(strings.TrimPrefix(ts.URL, "http://"))
	if err := client.Send(context.Background(), "+91 8707535798", "hi"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if !called {
		t.Fatalf("gateway was not called")
	}
}
