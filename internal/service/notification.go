package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/miniblog/miniblog/internal/core"
	"github.com/miniblog/miniblog/internal/domain/model"
)

const defaultUnreadCountTTL = 30 * time.Second

// NotificationServiceOptions groups dependencies for NotificationService.
type NotificationServiceOptions struct {
	Repo           core.NotificationRepository // Required: notification repository
	Cache          core.CacheRepository        // Optional: unread-count cache
	UnreadCountTTL time.Duration               // Optional: cache TTL, defaults to 30s
	Logger         *slog.Logger                // Optional: structured logger
}

// NotificationService serves the notification read model. The unread badge
// count is cached per recipient with a short TTL; any write for a recipient
// invalidates their cached count.
type NotificationService struct {
	repo           core.NotificationRepository
	cache          core.CacheRepository
	unreadCountTTL time.Duration
	logger         *slog.Logger
}

// NewNotificationService constructs a new NotificationService.
func NewNotificationService(opts NotificationServiceOptions) (*NotificationService, error) {
	if opts.Repo == nil {
		return nil, errors.New("NotificationRepository is required")
	}

	ttl := opts.UnreadCountTTL
	if ttl <= 0 {
		ttl = defaultUnreadCountTTL
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "notification_service")
	}

	return &NotificationService{
		repo:           opts.Repo,
		cache:          opts.Cache,
		unreadCountTTL: ttl,
		logger:         logger,
	}, nil
}

// MustNewNotificationService constructs a new NotificationService and panics on error.
func MustNewNotificationService(opts NotificationServiceOptions) *NotificationService {
	svc, err := NewNotificationService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create NotificationService: %v", err))
	}
	return svc
}

func unreadCountCacheKey(userID string) string {
	return "notifications:unread_count:" + userID
}

// Create records a notification. A duplicate for the same post and type is a
// successful no-op; created reports whether a row was actually inserted.
func (s *NotificationService) Create(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, bool, error) {
	notification, created, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("create notification: %w", err)
	}

	if created {
		s.invalidateUnreadCount(ctx, req.UserID)
		if s.logger != nil {
			s.logger.InfoContext(ctx, "notification recorded",
				"id", notification.ID,
				"user_id", notification.UserID,
				"post_id", notification.PostID,
				"type", notification.Type,
			)
		}
	}
	return notification, created, nil
}

// ListUnread returns the recipient's unread notifications, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	notifications, err := s.repo.ListUnread(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns the recipient's unread badge count, served from cache
// when fresh. A cache failure falls through to the database.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if s.cache != nil {
		cached, cerr := s.cache.Get(ctx, unreadCountCacheKey(userID))
		if cerr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "unread count cache read failed", "user_id", userID, "error", cerr)
		}
		if cerr == nil && cached != nil {
			if count, perr := strconv.Atoi(string(cached)); perr == nil {
				return count, nil
			}
		}
	}

	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}

	if s.cache != nil {
		if cerr := s.cache.Set(ctx, unreadCountCacheKey(userID), []byte(strconv.Itoa(count)), s.unreadCountTTL); cerr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "unread count cache write failed", "user_id", userID, "error", cerr)
		}
	}
	return count, nil
}

// MarkRead marks one notification as read for the recipient.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	updated, err := s.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}

	if updated {
		s.invalidateUnreadCount(ctx, userID)
	}
	return updated, nil
}

func (s *NotificationService) invalidateUnreadCount(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Delete(ctx, unreadCountCacheKey(userID)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "unread count cache invalidation failed", "user_id", userID, "error", err)
	}
}
