package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/miniblog/miniblog/internal/errors"

	"github.com/miniblog/miniblog/internal/data/pgxutil"
	"github.com/miniblog/miniblog/internal/domain/model"
)

// UserRepo serves user lookups for the notification pipeline.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user *model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT id, email, username, role, created_at, updated_at
			FROM users
			WHERE id = $1
		`, id)
		u := &model.User{}
		if serr := row.Scan(&u.ID, &u.Email, &u.Username, &u.Role, &u.CreatedAt, &u.UpdatedAt); serr != nil {
			return serr
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get user: %w", err))
	}
	return user, nil
}
