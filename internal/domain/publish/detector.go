// Package publish decides when a post mutation represents a publication event.
//
// The decision is made from explicit before/after snapshots so the trigger
// condition can be tested without a live data layer.
package publish

import "github.com/miniblog/miniblog/internal/domain/model"

// Transition describes a persisted status change on a post.
type Transition struct {
	Previous model.PostStatus
	Current  model.PostStatus
}

// IsPublication returns true only for a draft -> published transition.
//
// Creation directly in the published state does not count: only content that
// is newly live should notify, not content that was live from the start.
// Published -> draft and no-op updates never fire, so a second update that
// leaves a post published produces no further notifications.
func (t Transition) IsPublication() bool {
	return t.Previous == model.PostStatusDraft && t.Current == model.PostStatusPublished
}

// Detect is a convenience wrapper over Transition for callers holding the
// pre- and post-mutation snapshots.
func Detect(before, after *model.Post) bool {
	if before == nil || after == nil {
		return false
	}
	return Transition{Previous: before.Status, Current: after.Status}.IsPublication()
}
