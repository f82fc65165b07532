// Package core defines the ports between the service layer and its adapters.
// Services depend on these interfaces, never on concrete repositories.
package core

import (
	"context"
	"time"

	"github.com/miniblog/miniblog/internal/domain/model"
)

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, req *model.CreatePostRequest) (*model.Post, error)
	GetByID(ctx context.Context, id string) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	// Update applies the request and returns the pre-mutation and
	// post-mutation snapshots from the same transaction.
	Update(ctx context.Context, id string, req *model.UpdatePostRequest) (before, after *model.Post, err error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, opts *model.PostListOptions) (*model.PostListResult, error)
	CountByStatus(ctx context.Context, userID *string) (*model.PostStatusCounts, error)
}

// NotificationRepository defines the interface for notification data operations.
type NotificationRepository interface {
	// Create inserts a notification. The (post_id, type) pair is unique at
	// the storage layer; inserting a duplicate returns (nil, false, nil) so
	// redelivered jobs can acknowledge as a no-op.
	Create(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, bool, error)
	ListUnread(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
}

// JobRepository defines the interface for the durable job queue.
type JobRepository interface {
	Enqueue(ctx context.Context, req *model.EnqueueJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context, jobType model.JobType) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
}

// UserRepository defines the interface for user lookups needed by the pipeline.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// CacheRepository defines the interface for short-lived read-model caching.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
}

// DeadJobSummary describes dead-lettered jobs surfaced by the reaper.
type DeadJobSummary struct {
	JobID        string
	PostID       string
	AttemptCount int
	LastError    string
	DeadSince    time.Time
}

// ReaperRepository defines the interface for queue maintenance operations.
type ReaperRepository interface {
	// ListDeadJobs returns jobs parked in the dead-letter state, oldest first.
	ListDeadJobs(ctx context.Context, jobType model.JobType, limit int) ([]DeadJobSummary, error)

	// DeleteOldJobs deletes jobs with the given status older than maxAge,
	// up to batchSize rows per call. Returns the number of rows deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}
