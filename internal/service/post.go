package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/miniblog/miniblog/internal/core"
	"github.com/miniblog/miniblog/internal/domain/model"
	"github.com/miniblog/miniblog/internal/domain/publish"
)

// PostEnqueuer enqueues notification jobs triggered by post transitions.
type PostEnqueuer interface {
	Enqueue(ctx context.Context, req *model.EnqueueJobRequest) (*model.Job, error)
}

// PostServiceOptions groups dependencies for PostService.
type PostServiceOptions struct {
	Repo     core.PostRepository // Required: post repository
	Enqueuer PostEnqueuer        // Optional: job queue; nil disables notification enqueue
	Logger   *slog.Logger        // Optional: structured logger
}

// PostService provides business logic for post operations, including
// detection of the draft-to-published transition.
type PostService struct {
	repo     core.PostRepository
	enqueuer PostEnqueuer
	logger   *slog.Logger
}

// NewPostService constructs a new PostService.
func NewPostService(opts PostServiceOptions) (*PostService, error) {
	if opts.Repo == nil {
		return nil, errors.New("PostRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "post_service")
	}

	return &PostService{
		repo:     opts.Repo,
		enqueuer: opts.Enqueuer,
		logger:   logger,
	}, nil
}

// MustNewPostService constructs a new PostService and panics on error.
func MustNewPostService(opts PostServiceOptions) *PostService {
	svc, err := NewPostService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create PostService: %v", err))
	}
	return svc
}

// Create persists a new post. Creating a post directly in the published
// state is not a transition and produces no notification job.
func (s *PostService) Create(ctx context.Context, req *model.CreatePostRequest) (*model.Post, error) {
	post, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "post created",
			"id", post.ID,
			"user_id", post.UserID,
			"status", post.Status,
		)
	}
	return post, nil
}

// GetByID retrieves a post by ID.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug retrieves a post by slug.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Update applies a partial update. When the update carries the post from
// draft to published, a notification job is enqueued after the post mutation
// has committed. Saving an already-published post, or unpublishing one,
// enqueues nothing.
func (s *PostService) Update(ctx context.Context, id string, req *model.UpdatePostRequest) (*model.Post, error) {
	before, after, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	if publish.Detect(before, after) {
		s.enqueueNotification(ctx, after)
	}
	return after, nil
}

// enqueueNotification enqueues the post-publication job. The post mutation is
// already committed at this point, so enqueue failure is logged and never
// surfaced to the caller; the publication stands either way.
func (s *PostService) enqueueNotification(ctx context.Context, post *model.Post) {
	if s.enqueuer == nil {
		return
	}

	job, err := s.enqueuer.Enqueue(ctx, &model.EnqueueJobRequest{
		Type:   model.JobTypeNotification,
		PostID: post.ID,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to enqueue publication notification job",
				"post_id", post.ID,
				"error", err,
			)
		}
		return
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "post published, notification job enqueued",
			"post_id", post.ID,
			"job_id", job.ID,
		)
	}
}

// Delete removes a post and, via schema cascades, its notifications and
// pending jobs. In-flight jobs for the deleted post acknowledge as no-ops.
func (s *PostService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}

	if s.logger != nil && deleted {
		s.logger.InfoContext(ctx, "post deleted", "id", id)
	}
	return deleted, nil
}

// List returns one page of posts matching the options.
func (s *PostService) List(ctx context.Context, opts *model.PostListOptions) (*model.PostListResult, error) {
	result, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return result, nil
}

// CountByStatus aggregates post counts by status, optionally scoped to one author.
func (s *PostService) CountByStatus(ctx context.Context, userID *string) (*model.PostStatusCounts, error) {
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	return counts, nil
}
