// Package webhook forwards notifications to an external delivery service
// (push, email) over HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4096
)

var (
	// ErrUnauthorized indicates the delivery service rejected the token.
	ErrUnauthorized = errors.New("notification webhook unauthorized")
	// ErrInvalidArgument indicates the delivery service rejected the payload.
	ErrInvalidArgument = errors.New("notification webhook invalid argument")
	// ErrNotFound indicates the delivery service does not know the recipient.
	ErrNotFound = errors.New("notification webhook recipient not found")
)

// Emitter posts notification events to a delivery service.
type Emitter struct {
	baseURL string
	token   string
	client  *http.Client
}

// Event is the payload sent for one notification.
type Event struct {
	ID          string
	RecipientID string
	Type        string
	Message     string
	RelatedID   string
	RelatedKind string
	CreatedAt   time.Time
}

// NewEmitter creates an emitter posting to baseURL with an optional shared token.
func NewEmitter(baseURL, token string, client *http.Client) (*Emitter, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("notification webhook base url required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	} else if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	return &Emitter{baseURL: trimmed, token: strings.TrimSpace(token), client: client}, nil
}

// Emit delivers one event.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if e == nil {
		return errors.New("notification webhook emitter not initialised")
	}
	if strings.TrimSpace(event.RecipientID) == "" {
		return errors.New("notification webhook requires recipient_id")
	}
	body, err := json.Marshal(buildPayload(event))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("X-Webhook-Token", e.token)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return errorForStatus(resp)
	}
	return nil
}

func errorForStatus(resp *http.Response) error {
	buf, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	summary := strings.TrimSpace(string(buf))
	if summary == "" {
		summary = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, summary)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, summary)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, summary)
	default:
		return fmt.Errorf("notification request failed: %s", summary)
	}
}

func buildPayload(event Event) map[string]any {
	payload := map[string]any{
		"id":           event.ID,
		"recipient_id": strings.TrimSpace(event.RecipientID),
		"type":         event.Type,
		"message":      event.Message,
		"created_at":   event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.RelatedID != "" {
		payload["related"] = map[string]string{"id": event.RelatedID, "kind": event.RelatedKind}
	}
	return payload
}
