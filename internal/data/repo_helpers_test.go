package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/miniblog/miniblog/internal/domain/model"
)

func stringPtr(s string) *string { return &s }

func statusPtr(s model.PostStatus) *model.PostStatus { return &s }

// createTestUser inserts a user row with unique email and username and
// returns its id.
func createTestUser(t *testing.T, db *sql.DB) string {
	t.Helper()

	suffix := uuid.New().String()[:8]
	var id string
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO users(email, username)
		VALUES ($1, $2)
		RETURNING id
	`, fmt.Sprintf("author-%s@example.com", suffix), "author-"+suffix).Scan(&id)
	require.NoError(t, err)
	return id
}

// createTestPost creates a post through the repository so slug derivation
// matches production behavior.
func createTestPost(t *testing.T, db *sql.DB, userID string, status model.PostStatus) *model.Post {
	t.Helper()

	repo := NewPostRepo(db, PostRepoConfig{})
	post, err := repo.Create(context.Background(), &model.CreatePostRequest{
		UserID: userID,
		Title:  "Test Post " + uuid.New().String()[:8],
		Body:   "A body long enough to pass validation.",
		Status: status,
	})
	require.NoError(t, err)
	require.NotNil(t, post)
	return post
}

func enqueueTestJob(t *testing.T, repo *JobRepo, postID string) *model.Job {
	t.Helper()

	job, err := repo.Enqueue(context.Background(), &model.EnqueueJobRequest{
		Type:   model.JobTypeNotification,
		PostID: postID,
	})
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}
