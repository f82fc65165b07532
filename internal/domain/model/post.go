// Package model defines the core data types shared across the miniblog services.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostStatus represents the publication state of a post.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type PostStatus string

const (
	// PostStatusDraft indicates a post that is only visible to its author.
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished indicates a post that is live.
	PostStatusPublished PostStatus = "published"
)

// Valid returns true if the PostStatus is one of the known states.
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// UnmarshalText implements encoding.TextUnmarshaler so a status can be parsed
// from env vars and query parameters.
func (s *PostStatus) UnmarshalText(text []byte) error {
	v := PostStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid PostStatus: %q", v)
	}
	*s = v
	return nil
}

const (
	minTitleLen = 5
	maxTitleLen = 200
	minBodyLen  = 10
)

// Post represents an authored unit of content.
type Post struct {
	ID        string     `json:"id"         db:"id"`
	UserID    string     `json:"user_id"    db:"user_id"`
	Title     string     `json:"title"      db:"title"`
	Body      string     `json:"body"       db:"body"`
	Slug      string     `json:"slug"       db:"slug"`
	Status    PostStatus `json:"status"     db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Published returns true when the post is live.
func (p *Post) Published() bool {
	return p.Status == PostStatusPublished
}

// Preview returns a truncated view of the body for listings.
func (p *Post) Preview() string {
	const previewLen = 200
	if len(p.Body) <= previewLen {
		return p.Body
	}
	return p.Body[:previewLen] + "..."
}

// CreatePostRequest represents a request to create a new post.
type CreatePostRequest struct {
	UserID string     `json:"user_id"`
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	Status PostStatus `json:"status"`
}

// Validate validates the CreatePostRequest fields.
func (r *CreatePostRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user id is required")
	}
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if err := validateBody(r.Body); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid post status: %q", r.Status)
	}
	return nil
}

// UpdatePostRequest represents a partial update to an existing post.
// Nil fields are left untouched.
type UpdatePostRequest struct {
	Title  *string     `json:"title,omitempty"`
	Body   *string     `json:"body,omitempty"`
	Status *PostStatus `json:"status,omitempty"`
}

// Validate validates the UpdatePostRequest fields.
func (r *UpdatePostRequest) Validate() error {
	if r.Title == nil && r.Body == nil && r.Status == nil {
		return errors.New("update request is empty")
	}
	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.Body != nil {
		if err := validateBody(*r.Body); err != nil {
			return err
		}
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("invalid post status: %q", *r.Status)
	}
	return nil
}

func validateTitle(title string) error {
	n := len(strings.TrimSpace(title))
	if n < minTitleLen || n > maxTitleLen {
		return fmt.Errorf("title must be between %d and %d characters", minTitleLen, maxTitleLen)
	}
	return nil
}

func validateBody(body string) error {
	if len(strings.TrimSpace(body)) < minBodyLen {
		return fmt.Errorf("body must be at least %d characters", minBodyLen)
	}
	return nil
}

// PostStatusCounts aggregates post counts by status, optionally scoped to one author.
type PostStatusCounts struct {
	Published int `json:"published"`
	Draft     int `json:"draft"`
	Total     int `json:"total"`
}
