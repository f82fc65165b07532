package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/miniblog/miniblog/internal/core"
	domainjob "github.com/miniblog/miniblog/internal/domain/job"
	"github.com/miniblog/miniblog/internal/domain/model"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository        // Required: job repository
	DefaultLease    time.Duration             // Required: default lease duration for jobs
	Logger          *slog.Logger              // Optional: structured logger
	LeasePolicy     *domainjob.LeasePolicy    // Optional: override default lease policy
	Notifier        domainjob.Notifier        // Optional: custom job availability notifier
	NotifierOptions domainjob.NotifierOptions // Optional: configure default notifier behaviour
}

// JobService provides business logic for the durable notification queue.
//
// This service manages:
// - Enqueueing and acknowledging jobs
// - Job reservation and lease management
// - Pub/sub notification of job availability
// - Graceful shutdown of background listeners.
type JobService struct {
	repo        core.JobRepository
	leasePolicy *domainjob.LeasePolicy
	notifier    domainjob.Notifier
	logger      *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var leasePolicy *domainjob.LeasePolicy
	switch {
	case opts.LeasePolicy != nil:
		leasePolicy = opts.LeasePolicy
	case opts.DefaultLease > 0:
		var err error
		leasePolicy, err = domainjob.NewLeasePolicy(opts.DefaultLease)
		if err != nil {
			return nil, fmt.Errorf("create lease policy: %w", err)
		}
	default:
		return nil, errors.New("DefaultLease must be positive")
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		var err error
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:        opts.Repo,
		leasePolicy: leasePolicy,
		notifier:    notifier,
		logger:      logger,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Enqueue persists a job for asynchronous processing.
func (s *JobService) Enqueue(ctx context.Context, req *model.EnqueueJobRequest) (*model.Job, error) {
	job, err := s.repo.Enqueue(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job enqueued",
			"id", job.ID,
			"type", job.Type,
			"post_id", job.PostID,
		)
	}
	return job, nil
}

// GetByID retrieves a job by ID.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// ReserveNext reserves the next available job of the given type for processing.
func (s *JobService) ReserveNext(
	ctx context.Context,
	jobType model.JobType,
	lease time.Duration,
) (*model.Job, error) {
	decision := s.leasePolicy.Resolve(lease)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second lease duration to 1 second",
			"requested_duration", decision.Requested,
			"job_type", jobType)
	}

	job, err := s.repo.ReserveNext(ctx, jobType, decision.Seconds)
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve next job: %w", err)
	}

	if s.logger != nil && job != nil {
		s.logger.DebugContext(ctx, "job reserved",
			"id", job.ID,
			"type", jobType,
			"attempt", job.AttemptCount,
			"lease_seconds", decision.Seconds,
		)
	}
	return job, nil
}

// Subscribe creates a subscription for job notifications of the given type.
// Returns an unsubscribe function and a channel that receives notifications.
func (s *JobService) Subscribe(jobType model.JobType) (func(), <-chan struct{}) {
	if s.notifier == nil {
		ch := make(chan struct{})
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe(jobType)
}

// Heartbeat extends the lease on a job to indicate it's still being processed.
func (s *JobService) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	decision := s.leasePolicy.Resolve(extend)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second heartbeat duration to 1 second",
			"requested_duration", decision.Requested,
			"job_id", id)
	}

	updated, err := s.repo.Heartbeat(ctx, id, decision.Seconds)
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}
	return updated, nil
}

// Complete marks a job as completed successfully.
func (s *JobService) Complete(ctx context.Context, id string) (bool, error) {
	completed, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}

	if s.logger != nil && completed {
		s.logger.DebugContext(ctx, "job completed", "id", id)
	}
	return completed, nil
}

// Fail marks a job as failed with the given error message. The repository
// decides whether the job is rescheduled or parked in the dead-letter state.
func (s *JobService) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	failed, err := s.repo.Fail(ctx, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", id, err)
	}

	if s.logger != nil && failed {
		s.logger.DebugContext(ctx, "job failed", "id", id, "error", errMsg)
	}
	return failed, nil
}

// Stats returns queue counters for the given job type.
func (s *JobService) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}

// Shutdown stops all background notification listeners.
func (s *JobService) Shutdown() {
	if s.notifier != nil {
		s.notifier.StopAll()
	}
}
