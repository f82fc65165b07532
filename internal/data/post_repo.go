package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/miniblog/miniblog/internal/errors"

	"github.com/miniblog/miniblog/internal/data/pgxutil"
	"github.com/miniblog/miniblog/internal/domain/model"
)

// PostRepoConfig holds configuration options for the post repository.
type PostRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// PostRepo persists posts and serves the filtered, paginated read model.
type PostRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewPostRepo creates a new PostRepo.
func NewPostRepo(db *sql.DB, cfg PostRepoConfig) *PostRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &PostRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const postColumns = `
  id,
  user_id,
  title,
  body,
  slug,
  status,
  created_at,
  updated_at
`

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a post title.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "post"
	}
	const maxSlugLen = 80
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	return s
}

// Create inserts a new post. The slug is derived from the title; when the
// derived slug is taken, a short random suffix is appended.
func (r *PostRepo) Create(ctx context.Context, req *model.CreatePostRequest) (*model.Post, error) {
	if req == nil {
		return nil, errors.New("create post request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	slug := Slugify(req.Title)

	var post *model.Post
	insert := func(slug string) error {
		return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
			rows, qerr := conn.Query(ctx, `
				INSERT INTO posts(user_id, title, body, slug, status)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING `+postColumns,
				req.UserID, strings.TrimSpace(req.Title), req.Body, slug, req.Status,
			)
			if qerr != nil {
				return qerr
			}
			defer rows.Close()
			p, cerr := collectPostFromRows(rows)
			if cerr != nil {
				return cerr
			}
			post = p
			return nil
		})
	}

	err := insert(slug)
	if apperrors.IsConflict(apperrors.MapDBError(err)) {
		suffix := uuid.New().String()[:8]
		err = insert(slug + "-" + suffix)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create post: %w", err))
	}
	return post, nil
}

// GetByID retrieves a post by its ID.
func (r *PostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return r.getBy(ctx, "id", id)
}

// GetBySlug retrieves a post by its slug.
func (r *PostRepo) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.getBy(ctx, "slug", slug)
}

func (r *PostRepo) getBy(ctx context.Context, column, value string) (*model.Post, error) {
	var post *model.Post
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `
			SELECT `+postColumns+`
			FROM posts
			WHERE `+column+` = $1
		`, value)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		p, cerr := collectPostFromRows(rows)
		if cerr != nil {
			return cerr
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get post by %s: %w", column, err))
	}
	return post, nil
}

// Update applies a partial update and returns both the pre-mutation and
// post-mutation snapshots from the same transaction. The before snapshot is
// taken under FOR UPDATE so no concurrent writer can interleave between the
// read and the update.
func (r *PostRepo) Update(ctx context.Context, id string, req *model.UpdatePostRequest) (*model.Post, *model.Post, error) {
	if req == nil {
		return nil, nil, errors.New("update post request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, nil, apperrors.Validation(err.Error())
	}

	var before, after *model.Post
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, `
				SELECT `+postColumns+`
				FROM posts
				WHERE id = $1
				FOR UPDATE
			`, id)
			if qerr != nil {
				return qerr
			}
			b, cerr := collectPostFromRows(rows)
			rows.Close()
			if cerr != nil {
				return cerr
			}
			before = b

			title := before.Title
			if req.Title != nil {
				title = strings.TrimSpace(*req.Title)
			}
			body := before.Body
			if req.Body != nil {
				body = *req.Body
			}
			status := before.Status
			if req.Status != nil {
				status = *req.Status
			}

			rows, qerr = tx.Query(ctx, `
				UPDATE posts
				SET title = $2, body = $3, status = $4, updated_at = $5
				WHERE id = $1
				RETURNING `+postColumns,
				id, title, body, status, r.timeProvider.Now().UTC(),
			)
			if qerr != nil {
				return qerr
			}
			a, cerr := collectPostFromRows(rows)
			rows.Close()
			if cerr != nil {
				return cerr
			}
			after = a
			return nil
		},
	})
	if err != nil {
		return nil, nil, apperrors.MapDBError(fmt.Errorf("update post: %w", err))
	}
	return before, after, nil
}

// Delete removes a post. Dependent notifications and jobs are removed by
// the schema's ON DELETE CASCADE; already-delivered jobs for a deleted post
// acknowledge as no-ops at processing time.
func (r *PostRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("delete post: %w", err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List returns one page of posts matching the options, newest first, with
// the total match count computed over the same filters.
func (r *PostRepo) List(ctx context.Context, opts *model.PostListOptions) (*model.PostListResult, error) {
	if opts == nil {
		opts = &model.PostListOptions{}
	}
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	where, args := buildPostFilters(opts)

	result := &model.PostListResult{
		Items: []*model.Post{},
		Page:  opts.Page,
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		countQuery := `SELECT count(*) FROM posts` + where
		if cerr := conn.QueryRow(ctx, countQuery, args...).Scan(&result.TotalCount); cerr != nil {
			return fmt.Errorf("count posts: %w", cerr)
		}

		pageArgs := append(args, opts.PageSize, opts.Offset())
		listQuery := fmt.Sprintf(
			`SELECT %s FROM posts%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			postColumns, where, len(args)+1, len(args)+2,
		)
		rows, qerr := conn.Query(ctx, listQuery, pageArgs...)
		if qerr != nil {
			return fmt.Errorf("list posts: %w", qerr)
		}
		defer rows.Close()

		for rows.Next() {
			p, serr := scanPostFromRow(rows)
			if serr != nil {
				return serr
			}
			result.Items = append(result.Items, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	result.TotalPages = model.TotalPagesFor(result.TotalCount, opts.PageSize)
	return result, nil
}

// buildPostFilters composes the WHERE clause for List. Filters are ANDed;
// absent filters impose no constraint.
func buildPostFilters(opts *model.PostListOptions) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if opts.Status != nil {
		conds = append(conds, "status = "+next())
		args = append(args, *opts.Status)
	}
	if opts.UserID != nil {
		conds = append(conds, "user_id = "+next())
		args = append(args, *opts.UserID)
	}
	if opts.SearchQuery != nil && strings.TrimSpace(*opts.SearchQuery) != "" {
		pattern := "%" + escapeLike(strings.TrimSpace(*opts.SearchQuery)) + "%"
		p := next()
		conds = append(conds, "(title ILIKE "+p+" OR body ILIKE "+p+")")
		args = append(args, pattern)
	}
	if opts.CreatedFrom != nil {
		conds = append(conds, "created_at >= "+next())
		args = append(args, opts.CreatedFrom.UTC())
	}
	if opts.CreatedTo != nil {
		conds = append(conds, "created_at <= "+next())
		args = append(args, opts.CreatedTo.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// CountByStatus aggregates post counts by status, optionally scoped to one author.
func (r *PostRepo) CountByStatus(ctx context.Context, userID *string) (*model.PostStatusCounts, error) {
	query := `
	SELECT
	  count(*) FILTER (WHERE status = 'published') AS published,
	  count(*) FILTER (WHERE status = 'draft')     AS draft,
	  count(*)                                     AS total
	FROM posts
	`
	var (
		counts model.PostStatusCounts
		err    error
	)
	if userID != nil {
		err = r.DB.QueryRowContext(ctx, query+` WHERE user_id = $1`, *userID).
			Scan(&counts.Published, &counts.Draft, &counts.Total)
	} else {
		err = r.DB.QueryRowContext(ctx, query).
			Scan(&counts.Published, &counts.Draft, &counts.Total)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("count posts by status: %w", err))
	}
	return &counts, nil
}

func collectPostFromRows(rows pgx.Rows) (*model.Post, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	p, err := scanPostFromRow(rows)
	if err != nil {
		return nil, err
	}
	return p, rows.Err()
}

func scanPostFromRow(scanner rowScanner) (*model.Post, error) {
	p := &model.Post{}
	if err := scanner.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Body,
		&p.Slug,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return p, nil
}
