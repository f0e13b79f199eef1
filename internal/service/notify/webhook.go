package notify

import (
	"context"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/pkg/webhook"
)

// WebhookForwarder forwards notifications through a webhook.Emitter.
type WebhookForwarder struct {
	emitter *webhook.Emitter
}

// NewWebhookForwarder wraps emitter.
func NewWebhookForwarder(emitter *webhook.Emitter) *WebhookForwarder {
	return &WebhookForwarder{emitter: emitter}
}

// Forward implements Forwarder.
func (f *WebhookForwarder) Forward(ctx context.Context, n domain.Notification) error {
	event := webhook.Event{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Type:        string(n.Type),
		Message:     n.Message,
		CreatedAt:   n.CreatedAt,
	}
	if n.Related != nil {
		event.RelatedID = n.Related.ID
		event.RelatedKind = string(n.Related.Kind)
	}
	return f.emitter.Emit(ctx, event)
}
