// Package notify доставляет служебные SMS-уведомления о заказах.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured возвращается клиентом без адреса шлюза.
var ErrNotConfigured = errors.New("sms gateway not configured")

// RateLimitError возвращается, когда шлюз ответил 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("sms gateway rate limited, retry after %s", e.RetryAfter)
}

// Client инкапсулирует HTTP-взаимодействие с SMS-шлюзом.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewClient создаёт HTTP-клиент SMS-шлюза по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Send отправляет SMS на номер to.
func (c *Client) Send(ctx context.Context, to, message string) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(smsRequest{To: to, Message: message})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/sms", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
