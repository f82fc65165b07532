package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/miniblog/miniblog/config"
	"github.com/miniblog/miniblog/internal/core"
	"github.com/miniblog/miniblog/internal/domain/model"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo   core.ReaperRepository // Required: reaper repository
	Config config.ReaperConfig   // Required: reaper configuration
	Logger *slog.Logger          // Optional: structured logger
}

// ReaperService provides job queue maintenance.
//
// This service manages:
// - Surfacing dead-lettered jobs for operator inspection.
// - Deleting old completed jobs to prevent database bloat.
// - Deleting old dead jobs once their retention window passes.
type ReaperService struct {
	repo   core.ReaperRepository
	config config.ReaperConfig
	logger *slog.Logger
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
	}

	return &ReaperService{
		repo:   opts.Repo,
		config: opts.Config,
		logger: logger,
	}, nil
}

// MustNewReaperService constructs a new ReaperService and panics on error.
func MustNewReaperService(opts ReaperServiceOptions) *ReaperService {
	svc, err := NewReaperService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ReaperService: %v", err))
	}
	return svc
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Jitter startup so multiple instances do not tick together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "initial cleanup failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil && s.logger != nil {
				s.logger.ErrorContext(ctx, "cleanup failed", "error", err)
			}
		}
	}
}

// waitWithJitter delays up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// RunOnce performs a single maintenance pass.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	if err := s.reportDeadJobs(ctx); err != nil {
		return err
	}
	if err := s.deleteOldJobs(ctx, model.JobStatusCompleted, s.config.CompletedMaxAge); err != nil {
		return err
	}
	return s.deleteOldJobs(ctx, model.JobStatusDead, s.config.DeadMaxAge)
}

// reportDeadJobs logs dead-lettered jobs so failed deliveries are visible to
// operators rather than silently dropped.
func (s *ReaperService) reportDeadJobs(ctx context.Context) error {
	dead, err := s.repo.ListDeadJobs(ctx, model.JobTypeNotification, s.config.DeadReportLimit)
	if err != nil {
		return fmt.Errorf("list dead jobs: %w", err)
	}

	if s.logger != nil {
		for _, job := range dead {
			s.logger.WarnContext(ctx, "dead-lettered notification job",
				"job_id", job.JobID,
				"post_id", job.PostID,
				"attempts", job.AttemptCount,
				"last_error", job.LastError,
				"dead_since", job.DeadSince,
			)
		}
	}
	return nil
}

func (s *ReaperService) deleteOldJobs(ctx context.Context, status model.JobStatus, maxAge time.Duration) error {
	deleted, err := s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
		Status:    status,
		MaxAge:    maxAge,
		BatchSize: s.config.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("delete old %s jobs: %w", status, err)
	}

	if deleted > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "reaped old jobs", "status", status, "count", deleted)
	}
	return nil
}
