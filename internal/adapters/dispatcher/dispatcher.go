// Package dispatcher pulls notification jobs from the durable queue and
// turns them into recorded notifications.
package dispatcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miniblog/miniblog/internal/core"
	"github.com/miniblog/miniblog/internal/data"
	"github.com/miniblog/miniblog/internal/domain/model"
	apperrors "github.com/miniblog/miniblog/internal/errors"
	"github.com/miniblog/miniblog/internal/notify"
	"github.com/miniblog/miniblog/internal/service"
)

// Options configures the notification dispatcher.
type Options struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Job processing settings
	Lease        time.Duration // per-job lease duration; defaults to 30s
	Concurrency  int           // number of worker goroutines; defaults to 1
	AlertTimeout time.Duration // bound on each outbound alert send; defaults to 5s

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo          core.JobRepository
	PostsRepo         core.PostRepository
	UsersRepo         core.UserRepository
	NotificationsRepo core.NotificationRepository
	Notifications     *service.NotificationService
	AlertSink         notify.Sink
}

// Dispatcher reserves notification jobs, re-fetches the referenced post, and
// records an in-app notification for the author. The post is the source of
// truth at processing time: a job whose post has since been deleted or
// unpublished acknowledges as a no-op. Recording is idempotent, so redelivery
// of the same job never notifies twice.
type Dispatcher struct {
	jobs          *service.JobService
	posts         core.PostRepository
	users         core.UserRepository
	notifications *service.NotificationService
	sink          notify.Sink
	logger        *slog.Logger
	lease         time.Duration
	alertTimeout  time.Duration
	workers       int
}

// New wires repositories/services and constructs a dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.DB == nil && opts.JobsRepo == nil {
		return nil, errors.New("either DB or JobsRepo must be provided")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dispatcher")

	lease := opts.Lease
	if lease <= 0 {
		lease = 30 * time.Second
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	alertTimeout := opts.AlertTimeout
	if alertTimeout <= 0 {
		alertTimeout = 5 * time.Second
	}

	jobsRepo := opts.JobsRepo
	if jobsRepo == nil {
		jobsRepo = data.NewJobRepo(opts.DB, data.JobRepoConfig{Logger: logger})
	}
	jobSvc, err := service.NewJobService(service.JobServiceOptions{
		Repo:         jobsRepo,
		DefaultLease: lease,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create job service: %w", err)
	}

	postsRepo := opts.PostsRepo
	if postsRepo == nil {
		postsRepo = data.NewPostRepo(opts.DB, data.PostRepoConfig{Logger: logger})
	}
	usersRepo := opts.UsersRepo
	if usersRepo == nil {
		usersRepo = data.NewUserRepo(opts.DB)
	}

	notificationSvc := opts.Notifications
	if notificationSvc == nil {
		notificationsRepo := opts.NotificationsRepo
		if notificationsRepo == nil {
			notificationsRepo = data.NewNotificationRepo(opts.DB, data.NotificationRepoConfig{Logger: logger})
		}
		notificationSvc, err = service.NewNotificationService(service.NotificationServiceOptions{
			Repo:   notificationsRepo,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create notification service: %w", err)
		}
	}

	return &Dispatcher{
		jobs:          jobSvc,
		posts:         postsRepo,
		users:         usersRepo,
		notifications: notificationSvc,
		sink:          opts.AlertSink,
		logger:        logger,
		lease:         lease,
		alertTimeout:  alertTimeout,
		workers:       workers,
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "starting notification dispatcher",
		"workers", d.workers,
		"lease", d.lease,
	)

	defer d.jobs.Shutdown()

	unsub, ch := d.jobs.Subscribe(model.JobTypeNotification)
	defer unsub()

	// First worker error cancels the group context and stops the rest.
	g, ctx := errgroup.WithContext(ctx)
	for range d.workers {
		g.Go(func() error {
			return d.workerLoop(ctx, ch)
		})
	}
	return g.Wait()
}

func (d *Dispatcher) workerLoop(ctx context.Context, wake <-chan struct{}) error {
	for ctx.Err() == nil {
		job, err := d.jobs.ReserveNext(ctx, model.JobTypeNotification, d.lease)
		switch {
		case err == nil:
			if job != nil {
				d.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wake:
			}
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return ctx.Err()
}

func (d *Dispatcher) processJob(ctx context.Context, job *model.Job) {
	if err := d.handleNotificationJob(ctx, job); err != nil {
		if _, ferr := d.jobs.Fail(ctx, job.ID, err.Error()); ferr != nil {
			d.logger.ErrorContext(ctx, "fail job error", "job_id", job.ID, "error", ferr, "original_error", err)
		}
		return
	}
	if _, err := d.jobs.Complete(ctx, job.ID); err != nil {
		d.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
	}
}

// handleNotificationJob performs one delivery attempt. A nil return
// acknowledges the job; an error return counts against its attempt budget.
func (d *Dispatcher) handleNotificationJob(ctx context.Context, job *model.Job) error {
	post, err := d.posts.GetByID(ctx, job.PostID)
	if apperrors.IsNotFound(err) {
		d.logger.InfoContext(ctx, "post deleted before delivery, acknowledging",
			"job_id", job.ID, "post_id", job.PostID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}

	if !post.Published() {
		d.logger.InfoContext(ctx, "post no longer published, acknowledging",
			"job_id", job.ID, "post_id", post.ID, "status", post.Status)
		return nil
	}

	author, err := d.users.GetByID(ctx, post.UserID)
	if err != nil {
		return fmt.Errorf("load author: %w", err)
	}

	notification, created, err := d.notifications.Create(ctx, &model.CreateNotificationRequest{
		UserID:  author.ID,
		PostID:  post.ID,
		Message: model.PublishedMessage(post.Title),
		Type:    model.NotificationTypePostPublished,
	})
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	if !created {
		d.logger.InfoContext(ctx, "notification already recorded, acknowledging",
			"job_id", job.ID, "post_id", post.ID)
		return nil
	}

	d.sendAlert(ctx, post, author, notification)
	return nil
}

// sendAlert mirrors the notification to the outbound gateway. Sends are best
// effort: the notification row is already committed, so a send failure is
// logged and the job still acknowledges.
func (d *Dispatcher) sendAlert(ctx context.Context, post *model.Post, author *model.User, notification *model.Notification) {
	if d.sink == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.alertTimeout)
	defer cancel()

	err := d.sink.SendAlert(sendCtx, notify.AlertPayload{
		RecipientContact: author.Email,
		RecipientName:    author.DisplayName(),
		Subject:          "Post published: " + post.Title,
		Body:             notification.Message + "\n\n" + post.Preview(),
		PostID:           post.ID,
		PostSlug:         post.Slug,
		OccurredAt:       notification.CreatedAt,
	})
	if err != nil {
		d.logger.WarnContext(ctx, "outbound alert send failed",
			"post_id", post.ID,
			"recipient", maskEmail(author.Email),
			"error", err,
		)
	}
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
