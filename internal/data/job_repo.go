package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/miniblog/miniblog/internal/data/pgxutil"
	"github.com/miniblog/miniblog/internal/domain/model"
)

// ErrJobNotFound is returned when a job is not found.
var ErrJobNotFound = errors.New("job not found")

const defaultRetryDelaySeconds = 30

// JobRepoConfig holds configuration options for the job repository.
type JobRepoConfig struct {
	// RetryDelaySeconds is the delay before a failed job becomes eligible again.
	RetryDelaySeconds int
	Logger            *slog.Logger
	TimeProvider      TimeProvider
}

// JobRepo provides a durable, at-least-once job queue backed by Postgres.
//
// Jobs are reserved with FOR UPDATE SKIP LOCKED under a lease; leases that
// expire without an acknowledgement make the job eligible for redelivery.
// Jobs that exhaust their attempt budget are parked in the dead status.
type JobRepo struct {
	DB           *sql.DB
	cfg          JobRepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

func (r *JobRepo) retryDelay() int {
	if r.cfg.RetryDelaySeconds > 0 {
		return r.cfg.RetryDelaySeconds
	}
	return defaultRetryDelaySeconds
}

const jobColumns = `
  id,
  type,
  status,
  post_id,
  enqueued_at,
  scheduled_at,
  attempt_count,
  max_attempts,
  last_error,
  lease_expires_at,
  completed_at,
  updated_at
`

// SQL used by ReserveNext to atomically claim the next eligible job.
const reserveNextUpdateSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE type = $1 AND status = 'pending' AND scheduled_at <= $2
    ORDER BY scheduled_at ASC, enqueued_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'running',
    lease_expires_at = $3,
    updated_at = $4
  FROM cte
  WHERE j.id = cte.id
  RETURNING j.id, j.type, j.status, j.post_id, j.enqueued_at, j.scheduled_at,
            j.attempt_count, j.max_attempts, j.last_error, j.lease_expires_at,
            j.completed_at, j.updated_at`

// Enqueue persists a job for asynchronous delivery and wakes listeners.
// It returns as soon as the row is committed; processing happens elsewhere.
func (r *JobRepo) Enqueue(ctx context.Context, req *model.EnqueueJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("enqueue job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = model.DefaultMaxAttempts
	}

	scheduledAt := r.timeProvider.Now().UTC()
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, `
				INSERT INTO jobs(type, status, post_id, scheduled_at, max_attempts)
				VALUES ($1, 'pending', $2, $3, $4)
				RETURNING `+jobColumns,
				req.Type, req.PostID, scheduledAt, maxAttempts,
			)
			if qerr != nil {
				return fmt.Errorf("insert job: %w", qerr)
			}
			j, cerr := collectJobFromRows(rows)
			rows.Close()
			if cerr != nil {
				return fmt.Errorf("collect job: %w", cerr)
			}

			channel := "job_added_" + string(req.Type)
			if _, execErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, j.ID); execErr != nil {
				return fmt.Errorf("send job notification: %w", execErr)
			}

			job = j
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Advisory lock namespace for requeueExpired to avoid cross-job-type contention.
const advisoryLockRequeueMajor int64 = 2001

func advisoryLockRequeueMinor(jobType model.JobType) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobType))
	hashValue := h.Sum32()
	maxInt32 := uint32(math.MaxInt32)
	if hashValue > maxInt32 {
		hashValue &= maxInt32
	}
	return int64(hashValue)
}

// requeueExpired returns expired running jobs of the given type to pending.
func (r *JobRepo) requeueExpired(ctx context.Context, jobType model.JobType) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			minorKey := advisoryLockRequeueMinor(jobType)
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)", advisoryLockRequeueMajor, minorKey).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			res, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = 'pending', lease_expires_at = NULL
				WHERE type = $1 AND status = 'running'
				  AND lease_expires_at IS NOT NULL
				  AND lease_expires_at < $2
			`, jobType, currentTime.UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	if rowsAffected > 0 && r.logger != nil {
		r.logger.WarnContext(ctx, "requeued expired job leases", "type", jobType, "count", rowsAffected)
	}
	return rowsAffected, nil
}

// ReserveNext reserves the next eligible job of the given type for processing.
// A job is delivered to exactly one worker at a time; if its lease expires
// without acknowledgement it becomes eligible again.
func (r *JobRepo) ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}

	if _, err := r.requeueExpired(ctx, jobType); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now()
			leaseExpiresAt := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

			rows, qerr := tx.Query(
				ctx,
				reserveNextUpdateSQL,
				jobType,
				currentTime.UTC(),
				leaseExpiresAt.UTC(),
				currentTime.UTC(),
			)
			if qerr != nil {
				return fmt.Errorf("reserve job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("reserve job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}
	return job, nil
}

// Heartbeat refreshes the lease on a running job.
func (r *JobRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, errors.New("leaseSeconds must be positive")
	}

	currentTime := r.timeProvider.Now().UTC()
	leaseExpiration := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET lease_expires_at = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, jobID, leaseExpiration, currentTime)
	if err != nil {
		return false, fmt.Errorf("heartbeat job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Complete acknowledges a running job as done.
func (r *JobRepo) Complete(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = $2,
		    lease_expires_at = NULL,
		    last_error = NULL
		WHERE id = $1 AND status = 'running'
	`, id, currentTime)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Fail records a processing failure on a running job. The job is rescheduled
// after the retry delay unless its attempt budget is exhausted, in which case
// it is parked in the dead status for operator inspection.
func (r *JobRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	retryDelay := r.retryDelay()
	currentTime := r.timeProvider.Now()
	retryScheduledAt := currentTime.Add(time.Duration(retryDelay) * time.Second)

	query := `
		UPDATE jobs
		SET
		  last_error = $2,
		  attempt_count = attempt_count + 1,
		  status = CASE WHEN attempt_count + 1 >= max_attempts THEN 'dead' ELSE 'pending' END,
		  completed_at = CASE WHEN attempt_count + 1 >= max_attempts THEN $3::timestamptz ELSE NULL END,
		  lease_expires_at = NULL,
		  scheduled_at = CASE WHEN attempt_count + 1 >= max_attempts THEN scheduled_at
		                      ELSE $4::timestamptz END,
		  updated_at = $5
		WHERE id = $1 AND status = 'running'
		RETURNING status
	`

	var status string
	if err := r.DB.QueryRowContext(ctx, query, id, errMsg, currentTime.UTC(), retryScheduledAt.UTC(), currentTime.UTC()).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("fail job: %w", err)
	}

	if status == string(model.JobStatusDead) && r.logger != nil {
		r.logger.ErrorContext(ctx, "job moved to dead-letter state",
			"job_id", id,
			"error", errMsg,
		)
	}
	return true, nil
}

// Stats returns counts of jobs of the given type in each lifecycle state.
func (r *JobRepo) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
	SELECT
	  count(*) FILTER (WHERE status = 'pending')   AS pending,
	  count(*) FILTER (WHERE status = 'running')   AS running,
	  count(*) FILTER (WHERE status = 'completed') AS completed,
	  count(*) FILTER (WHERE status = 'dead')      AS dead
	FROM jobs
	WHERE type = $1
	`, jobType).Scan(&s.Pending, &s.Running, &s.Completed, &s.Dead)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until Postgres signals that new jobs are available.
func (r *JobRepo) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	channel := "job_added_" + string(jobType)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobFromRow(scanner rowScanner) (*model.Job, error) {
	job := &model.Job{}
	var (
		lastError                   sql.NullString
		leaseExpiresAt, completedAt sql.NullTime
	)
	if err := scanner.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&job.PostID,
		&job.EnqueuedAt,
		&job.ScheduledAt,
		&job.AttemptCount,
		&job.MaxAttempts,
		&lastError,
		&leaseExpiresAt,
		&completedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.LastError = cloneNullableString(lastError)
	job.LeaseExpiresAt = cloneNullableTime(leaseExpiresAt)
	job.CompletedAt = cloneNullableTime(completedAt)
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
