package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NotificationType represents the kind of event a notification records.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type NotificationType string

const (
	// NotificationTypePostPublished is emitted when a draft post goes live.
	NotificationTypePostPublished NotificationType = "post_published"
	// NotificationTypeCommentAdded is reserved for comment activity.
	NotificationTypeCommentAdded NotificationType = "comment_added"
)

// Valid returns true if the NotificationType belongs to the known set.
func (t NotificationType) Valid() bool {
	return t == NotificationTypePostPublished || t == NotificationTypeCommentAdded
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NotificationType) UnmarshalText(text []byte) error {
	v := NotificationType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid NotificationType: %q", v)
	}
	*t = v
	return nil
}

// Notification records an event addressed to one recipient.
// Notifications reference their triggering post but do not own it.
type Notification struct {
	ID        string           `json:"id"         db:"id"`
	UserID    string           `json:"user_id"    db:"user_id"`
	PostID    string           `json:"post_id"    db:"post_id"`
	Message   string           `json:"message"    db:"message"`
	Type      NotificationType `json:"type"       db:"notification_type"`
	Read      bool             `json:"read"       db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// CreateNotificationRequest represents a request to record a notification.
type CreateNotificationRequest struct {
	UserID  string           `json:"user_id"`
	PostID  string           `json:"post_id"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}

// Validate validates the CreateNotificationRequest fields.
func (r *CreateNotificationRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(r.PostID) == "" {
		return errors.New("post id is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid notification type: %q", r.Type)
	}
	return nil
}

// NotificationCounts summarizes a recipient's notification state.
type NotificationCounts struct {
	Unread int `json:"unread"`
}

// PublishedMessage builds the canonical message for a post-published notification.
func PublishedMessage(title string) string {
	return fmt.Sprintf("Your post '%s' has been published!", title)
}
