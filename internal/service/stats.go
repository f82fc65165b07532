package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/miniblog/miniblog/internal/core"
	"github.com/miniblog/miniblog/internal/domain/model"
)

// DashboardStats aggregates the counters shown on author and admin dashboards.
type DashboardStats struct {
	Posts  *model.PostStatusCounts `json:"posts"`
	Unread int                     `json:"unread_notifications"`
	Queue  *model.JobStats         `json:"queue,omitempty"`
}

// StatsServiceOptions groups dependencies for StatsService.
type StatsServiceOptions struct {
	Posts         core.PostRepository  // Required: post repository
	Notifications *NotificationService // Required: notification read model
	Jobs          core.JobRepository   // Optional: queue counters for admin views
	Users         core.UserRepository  // Optional: role lookup for admin scoping
	Logger        *slog.Logger         // Optional: structured logger
}

// StatsService serves dashboard aggregates. Members see their own counts;
// admins additionally see global post counts and queue state.
type StatsService struct {
	posts         core.PostRepository
	notifications *NotificationService
	jobs          core.JobRepository
	users         core.UserRepository
	logger        *slog.Logger
}

// NewStatsService constructs a new StatsService.
func NewStatsService(opts StatsServiceOptions) (*StatsService, error) {
	if opts.Posts == nil {
		return nil, errors.New("PostRepository is required")
	}
	if opts.Notifications == nil {
		return nil, errors.New("NotificationService is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "stats_service")
	}

	return &StatsService{
		posts:         opts.Posts,
		notifications: opts.Notifications,
		jobs:          opts.Jobs,
		users:         opts.Users,
		logger:        logger,
	}, nil
}

// ForUser returns the dashboard aggregates for one user. When the user
// carries the admin role, post counts are global and queue counters are
// included.
func (s *StatsService) ForUser(ctx context.Context, userID string) (*DashboardStats, error) {
	admin := false
	if s.users != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		admin = user.IsAdmin()
	}

	scope := &userID
	if admin {
		scope = nil
	}

	postCounts, err := s.posts.CountByStatus(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	unread, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("unread count: %w", err)
	}

	stats := &DashboardStats{
		Posts:  postCounts,
		Unread: unread,
	}

	if admin && s.jobs != nil {
		queue, qerr := s.jobs.Stats(ctx, model.JobTypeNotification)
		if qerr != nil {
			// Queue counters are auxiliary; serve the rest of the dashboard.
			if s.logger != nil {
				s.logger.WarnContext(ctx, "queue stats unavailable", "error", qerr)
			}
		} else {
			stats.Queue = queue
		}
	}
	return stats, nil
}
