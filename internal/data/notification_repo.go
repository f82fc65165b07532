package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/miniblog/miniblog/internal/errors"

	"github.com/miniblog/miniblog/internal/data/pgxutil"
	"github.com/miniblog/miniblog/internal/domain/model"
)

const defaultUnreadLimit = 50

// NotificationRepoConfig holds configuration options for the notification repository.
type NotificationRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NotificationRepo persists notifications. A (post_id, notification_type)
// pair is unique at the storage layer, which is what makes redelivered jobs
// safe to process more than once.
type NotificationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(db *sql.DB, cfg NotificationRepoConfig) *NotificationRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &NotificationRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const notificationColumns = `
  id,
  user_id,
  post_id,
  message,
  notification_type,
  read,
  created_at
`

// Create inserts a notification. When a notification for the same post and
// type already exists the insert is a no-op and created is false; callers
// treat that as success.
func (r *NotificationRepo) Create(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, bool, error) {
	if req == nil {
		return nil, false, errors.New("create notification request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, false, apperrors.Validation(err.Error())
	}

	var notification *model.Notification
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			INSERT INTO notifications(user_id, post_id, message, notification_type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (post_id, notification_type) DO NOTHING
			RETURNING `+notificationColumns,
			req.UserID, req.PostID, req.Message, req.Type,
		)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		n, cerr := collectNotificationFromRows(rows)
		if cerr != nil {
			return cerr
		}
		notification = n
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict path: the notification already exists.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.MapDBError(fmt.Errorf("create notification: %w", err))
	}
	return notification, true, nil
}

// ListUnread returns the recipient's unread notifications, newest first.
func (r *NotificationRepo) ListUnread(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = defaultUnreadLimit
	}

	var notifications []*model.Notification
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+notificationColumns+`
			FROM notifications
			WHERE user_id = $1 AND read = false
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, userID, limit)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			n, serr := scanNotificationFromRow(rows)
			if serr != nil {
				return serr
			}
			notifications = append(notifications, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list unread notifications: %w", err))
	}
	return notifications, nil
}

// UnreadCount returns how many unread notifications the recipient has.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM notifications
		WHERE user_id = $1 AND read = false
	`, userID).Scan(&count)
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("unread count: %w", err))
	}
	return count, nil
}

// MarkRead marks one of the recipient's notifications as read. Returns false
// when the notification does not exist, belongs to someone else, or is
// already read.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notifications
		SET read = true
		WHERE id = $1 AND user_id = $2 AND read = false
	`, notificationID, userID)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("mark notification read: %w", err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark read rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func collectNotificationFromRows(rows pgx.Rows) (*model.Notification, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	n, err := scanNotificationFromRow(rows)
	if err != nil {
		return nil, err
	}
	return n, rows.Err()
}

func scanNotificationFromRow(scanner rowScanner) (*model.Notification, error) {
	n := &model.Notification{}
	if err := scanner.Scan(
		&n.ID,
		&n.UserID,
		&n.PostID,
		&n.Message,
		&n.Type,
		&n.Read,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return n, nil
}
