package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/chatpoints/chatpoints-backend/pkg/config"
	pkgerrors "github.com/chatpoints/chatpoints-backend/pkg/errors"
)

// Client talks to the chat platform's REST API and implements Source,
// Notifier, and Directory.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a chat API client from configuration.
func NewClient(cfg config.ChatConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("chat base url is required")
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

// ListRecent returns the channel's most recent messages, newest-first.
func (c *Client) ListRecent(ctx context.Context, channelID string) ([]Message, error) {
	path := fmt.Sprintf("/api/v1/experiences/%s/messages", url.PathEscape(channelID))
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding message page: %w", err)
	}

	raws := envelope.messages()
	messages := make([]Message, 0, len(raws))
	for _, raw := range raws {
		messages = append(messages, normalizeMessage(raw))
	}
	return messages, nil
}

// GetByID fetches one message. Returns ErrNotFound when the platform reports
// the message gone.
func (c *Client) GetByID(ctx context.Context, messageID string) (*Message, error) {
	path := fmt.Sprintf("/api/v1/messages/%s", url.PathEscape(messageID))
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raw rawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	msg := normalizeMessage(raw)
	return &msg, nil
}

// Notify posts a message into the channel.
func (c *Client) Notify(ctx context.Context, channelID, text string) error {
	payload := map[string]string{
		"experience_id": channelID,
		"message":       text,
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v1/messages", payload)
	return err
}

// React attaches an emoji reaction to a message.
func (c *Client) React(ctx context.Context, messageID, emoji string) error {
	payload := map[string]string{
		"resource_id": messageID,
		"emoji":       emoji,
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v1/reactions", payload)
	return err
}

// GetUser fetches a user profile for account enrichment.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	path := fmt.Sprintf("/api/v1/users/%s", url.PathEscape(userID))
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raw rawUser
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	user := normalizeUser(raw)
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "chat api unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading chat api response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("chat api %s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("chat api %s %s: status %d: %s", method, path, resp.StatusCode, truncate(body))
	}

	return body, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
