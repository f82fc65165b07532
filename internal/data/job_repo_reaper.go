package data

import (
	"context"
	"fmt"

	"github.com/miniblog/miniblog/internal/core"
	"github.com/miniblog/miniblog/internal/domain/model"
)

// ListDeadJobs returns jobs parked in the dead-letter state, oldest first,
// for operator inspection.
func (r *JobRepo) ListDeadJobs(ctx context.Context, jobType model.JobType, limit int) ([]core.DeadJobSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, post_id, attempt_count, COALESCE(last_error, ''), updated_at
		FROM jobs
		WHERE type = $1 AND status = 'dead'
		ORDER BY updated_at ASC
		LIMIT $2
	`, jobType, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead jobs: %w", err)
	}
	defer rows.Close()

	var summaries []core.DeadJobSummary
	for rows.Next() {
		var s core.DeadJobSummary
		if err := rows.Scan(&s.JobID, &s.PostID, &s.AttemptCount, &s.LastError, &s.DeadSince); err != nil {
			return nil, fmt.Errorf("scan dead job: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead jobs: %w", err)
	}
	return summaries, nil
}

// DeleteOldJobs removes jobs with the given terminal status whose last update
// is older than MaxAge, at most BatchSize rows per call.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if params.BatchSize <= 0 {
		params.BatchSize = 500
	}
	cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()

	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE id IN (
		  SELECT id FROM jobs
		  WHERE status = $1 AND updated_at < $2
		  ORDER BY updated_at ASC
		  LIMIT $3
		)
	`, params.Status, cutoff, params.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old jobs rows affected: %w", err)
	}
	if deleted > 0 && r.logger != nil {
		r.logger.InfoContext(ctx, "deleted old jobs",
			"status", params.Status,
			"count", deleted,
		)
	}
	return deleted, nil
}
