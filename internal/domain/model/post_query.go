package model

import (
	"fmt"
	"time"
)

const (
	// DefaultPageSize is the page size used when a listing request does not specify one.
	DefaultPageSize = 10
	// MaxPageSize caps the page size a caller may request.
	MaxPageSize = 100
)

// PostListOptions describes a filtered, paginated post listing.
// All filters are optional and combine with logical AND; an absent
// filter imposes no constraint.
type PostListOptions struct {
	Status      *PostStatus
	UserID      *string
	SearchQuery *string    // case-insensitive match over title or body
	CreatedFrom *time.Time // inclusive lower bound on created_at
	CreatedTo   *time.Time // inclusive upper bound on created_at
	Page        int        // 1-indexed
	PageSize    int
}

// Normalize clamps paging values to their defaults and bounds.
func (o *PostListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
}

// Validate checks filter consistency.
func (o *PostListOptions) Validate() error {
	if o.Status != nil && !o.Status.Valid() {
		return fmt.Errorf("invalid post status filter: %q", *o.Status)
	}
	if o.CreatedFrom != nil && o.CreatedTo != nil && o.CreatedTo.Before(*o.CreatedFrom) {
		return fmt.Errorf("created_to %s precedes created_from %s", o.CreatedTo, o.CreatedFrom)
	}
	return nil
}

// Offset returns the row offset implied by the page and page size.
func (o *PostListOptions) Offset() int {
	return (o.Page - 1) * o.PageSize
}

// PostListResult is one page of a post listing plus pagination metadata.
type PostListResult struct {
	Items      []*Post `json:"items"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	TotalCount int     `json:"total_count"`
}

// TotalPagesFor computes the page count for a total item count and page size.
func TotalPagesFor(totalCount, pageSize int) int {
	if totalCount <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}
