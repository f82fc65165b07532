// Package notify defines the outbound alert contract used to mirror
// in-app notifications to an external delivery gateway.
package notify

import (
	"context"
	"time"
)

// AlertPayload captures the canonical data emitted when a notification is delivered.
type AlertPayload struct {
	RecipientContact string
	RecipientName    string
	Subject          string
	Body             string
	PostID           string
	PostSlug         string
	OccurredAt       time.Time
}

// Sink describes a destination capable of consuming delivery alerts.
// Sends are best effort; a failed send never fails the triggering job.
type Sink interface {
	SendAlert(ctx context.Context, payload AlertPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload AlertPayload) error

// SendAlert implements the Sink interface.
func (f SinkFunc) SendAlert(ctx context.Context, payload AlertPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
