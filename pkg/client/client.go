// Package client is a typed HTTP client for the relay API, used by the
// terminal widget and dashboard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ContactRelay/models"
)

const DefaultTimeout = 10 * time.Second

// ErrUnauthorized is returned for any 401 from an operator endpoint.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status     int
	Message    string
	RetryAfter int
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("relay: %d %s (retry after %ds)", e.Status, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("relay: %d %s", e.Status, e.Message)
}

type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
		log:  log,
	}
}

// SendMessage posts a visitor message and returns the stored record.
func (c *Client) SendMessage(ctx context.Context, sessionID, name, content string) (models.Message, error) {
	body := map[string]string{"session_id": sessionID, "name": name, "content": content}
	var resp struct {
		Data models.Message `json:"data"`
	}
	err := c.do(ctx, http.MethodPost, "/messages", "", body, &resp)
	return resp.Data, err
}

// GetChat returns one session's messages, oldest first.
func (c *Client) GetChat(ctx context.Context, sessionID string) ([]models.Message, error) {
	var msgs []models.Message
	err := c.do(ctx, http.MethodGet, "/chat?session_id="+url.QueryEscape(sessionID), "", nil, &msgs)
	return msgs, err
}

func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// ListMessages returns every message, newest first.
func (c *Client) ListMessages(ctx context.Context, token string) ([]models.Message, error) {
	var msgs []models.Message
	err := c.do(ctx, http.MethodGet, "/messages", token, nil, &msgs)
	return msgs, err
}

func (c *Client) ListSessions(ctx context.Context, token string) ([]models.SessionSummary, error) {
	var out []models.SessionSummary
	err := c.do(ctx, http.MethodGet, "/sessions", token, nil, &out)
	return out, err
}

func (c *Client) Reply(ctx context.Context, token, sessionID, reply string) (models.Message, error) {
	body := map[string]string{"session_id": sessionID, "reply": reply}
	var resp struct {
		Data models.Message `json:"data"`
	}
	err := c.do(ctx, http.MethodPost, "/messages/reply", token, body, &resp)
	return resp.Data, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var rd io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("relay request")

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retryAfter"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	e := &APIError{Status: resp.StatusCode, Message: body.Error, RetryAfter: body.RetryAfter}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	if e.RetryAfter == 0 {
		e.RetryAfter, _ = strconv.Atoi(resp.Header.Get("Retry-After"))
	}
	return e
}
