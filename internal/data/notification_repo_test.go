package data

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniblog/miniblog/internal/domain/model"
	"github.com/miniblog/miniblog/internal/testutil"
)

func TestNotificationRepo_Create(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("inserts a notification", func(t *testing.T) {
		testutil.WithTestDB(t, func(db *sql.DB) {
			repo := NewNotificationRepo(db, NotificationRepoConfig{})
			userID := createTestUser(t, db)
			post := createTestPost(t, db, userID, model.PostStatusPublished)

			notification, created, err := repo.Create(context.Background(), &model.CreateNotificationRequest{
				UserID:  userID,
				PostID:  post.ID,
				Message: "Your post was published.",
				Type:    model.NotificationTypePostPublished,
			})
			require.NoError(t, err)
			assert.True(t, created)
			require.NotNil(t, notification)

			assert.NotEmpty(t, notification.ID)
			assert.Equal(t, userID, notification.UserID)
			assert.Equal(t, post.ID, notification.PostID)
			assert.Equal(t, "Your post was published.", notification.Message)
			assert.Equal(t, model.NotificationTypePostPublished, notification.Type)
			assert.False(t, notification.Read)
			assert.NotZero(t, notification.CreatedAt)
		})
	})

	t.Run("duplicate post and type is a no-op", func(t *testing.T) {
		testutil.WithTestDB(t, func(db *sql.DB) {
			repo := NewNotificationRepo(db, NotificationRepoConfig{})
			userID := createTestUser(t, db)
			post := createTestPost(t, db, userID, model.PostStatusPublished)

			req := &model.CreateNotificationRequest{
				UserID:  userID,
				PostID:  post.ID,
				Message: "Your post was published.",
				Type:    model.NotificationTypePostPublished,
			}

			_, created, err := repo.Create(context.Background(), req)
			require.NoError(t, err)
			require.True(t, created)

			// A redelivered job acknowledges without a second row.
			notification, created, err := repo.Create(context.Background(), req)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Nil(t, notification)

			count, err := repo.UnreadCount(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	})

	t.Run("concurrent duplicate delivery records exactly one row", func(t *testing.T) {
		testutil.WithTestDB(t, func(db *sql.DB) {
			repo := NewNotificationRepo(db, NotificationRepoConfig{})
			userID := createTestUser(t, db)
			post := createTestPost(t, db, userID, model.PostStatusPublished)

			req := &model.CreateNotificationRequest{
				UserID:  userID,
				PostID:  post.ID,
				Message: "Your post was published.",
				Type:    model.NotificationTypePostPublished,
			}

			// Two workers delivering the same redelivered job at once.
			const workers = 2
			createdCh := make(chan bool, workers)
			errCh := make(chan error, workers)
			start := make(chan struct{})

			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, created, err := repo.Create(context.Background(), req)
					createdCh <- created
					errCh <- err
				}()
			}
			close(start)
			wg.Wait()
			close(createdCh)
			close(errCh)

			for err := range errCh {
				require.NoError(t, err)
			}
			inserts := 0
			for created := range createdCh {
				if created {
					inserts++
				}
			}
			assert.Equal(t, 1, inserts)

			var rows int
			require.NoError(t, db.QueryRow(
				`SELECT count(*) FROM notifications WHERE post_id = $1`, post.ID,
			).Scan(&rows))
			assert.Equal(t, 1, rows)
		})
	})

	t.Run("different types for one post both land", func(t *testing.T) {
		testutil.WithTestDB(t, func(db *sql.DB) {
			repo := NewNotificationRepo(db, NotificationRepoConfig{})
			userID := createTestUser(t, db)
			post := createTestPost(t, db, userID, model.PostStatusPublished)

			_, created, err := repo.Create(context.Background(), &model.CreateNotificationRequest{
				UserID: userID, PostID: post.ID, Message: "published", Type: model.NotificationTypePostPublished,
			})
			require.NoError(t, err)
			require.True(t, created)

			_, created, err = repo.Create(context.Background(), &model.CreateNotificationRequest{
				UserID: userID, PostID: post.ID, Message: "new comment", Type: model.NotificationTypeCommentAdded,
			})
			require.NoError(t, err)
			assert.True(t, created)
		})
	})

	t.Run("invalid request", func(t *testing.T) {
		repo := NewNotificationRepo(nil, NotificationRepoConfig{})

		notification, created, err := repo.Create(context.Background(), &model.CreateNotificationRequest{
			PostID:  "post-1",
			Message: "missing recipient",
			Type:    model.NotificationTypePostPublished,
		})
		require.Error(t, err)
		assert.False(t, created)
		assert.Nil(t, notification)
	})
}

func TestNotificationRepo_ListUnread(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewNotificationRepo(db, NotificationRepoConfig{})
		userID := createTestUser(t, db)
		otherID := createTestUser(t, db)

		var ids []string
		for i := 0; i < 3; i++ {
			post := createTestPost(t, db, userID, model.PostStatusPublished)
			n, created, err := repo.Create(context.Background(), &model.CreateNotificationRequest{
				UserID:  userID,
				PostID:  post.ID,
				Message: fmt.Sprintf("notification %d", i),
				Type:    model.NotificationTypePostPublished,
			})
			require.NoError(t, err)
			require.True(t, created)
			ids = append(ids, n.ID)
		}

		t.Run("newest first", func(t *testing.T) {
			notifications, err := repo.ListUnread(context.Background(), userID, 0)
			require.NoError(t, err)
			require.Len(t, notifications, 3)

			for i, n := range notifications {
				assert.Equal(t, ids[len(ids)-1-i], n.ID)
				assert.False(t, n.Read)
			}
		})

		t.Run("limit applies", func(t *testing.T) {
			notifications, err := repo.ListUnread(context.Background(), userID, 2)
			require.NoError(t, err)
			assert.Len(t, notifications, 2)
		})

		t.Run("scoped to the recipient", func(t *testing.T) {
			notifications, err := repo.ListUnread(context.Background(), otherID, 0)
			require.NoError(t, err)
			assert.Empty(t, notifications)
		})

		t.Run("read notifications drop out", func(t *testing.T) {
			updated, err := repo.MarkRead(context.Background(), userID, ids[0])
			require.NoError(t, err)
			require.True(t, updated)

			notifications, err := repo.ListUnread(context.Background(), userID, 0)
			require.NoError(t, err)
			assert.Len(t, notifications, 2)
		})
	})
}

func TestNotificationRepo_UnreadCount(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewNotificationRepo(db, NotificationRepoConfig{})
		userID := createTestUser(t, db)

		count, err := repo.UnreadCount(context.Background(), userID)
		require.NoError(t, err)
		assert.Zero(t, count)

		post := createTestPost(t, db, userID, model.PostStatusPublished)
		_, _, err = repo.Create(context.Background(), &model.CreateNotificationRequest{
			UserID:  userID,
			PostID:  post.ID,
			Message: "Your post was published.",
			Type:    model.NotificationTypePostPublished,
		})
		require.NoError(t, err)

		count, err = repo.UnreadCount(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestNotificationRepo_MarkRead(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewNotificationRepo(db, NotificationRepoConfig{})
		userID := createTestUser(t, db)
		stranger := createTestUser(t, db)
		post := createTestPost(t, db, userID, model.PostStatusPublished)

		notification, created, err := repo.Create(context.Background(), &model.CreateNotificationRequest{
			UserID:  userID,
			PostID:  post.ID,
			Message: "Your post was published.",
			Type:    model.NotificationTypePostPublished,
		})
		require.NoError(t, err)
		require.True(t, created)

		t.Run("someone else's notification", func(t *testing.T) {
			updated, err := repo.MarkRead(context.Background(), stranger, notification.ID)
			require.NoError(t, err)
			assert.False(t, updated)
		})

		t.Run("owner marks it read", func(t *testing.T) {
			updated, err := repo.MarkRead(context.Background(), userID, notification.ID)
			require.NoError(t, err)
			assert.True(t, updated)

			count, err := repo.UnreadCount(context.Background(), userID)
			require.NoError(t, err)
			assert.Zero(t, count)
		})

		t.Run("already read", func(t *testing.T) {
			updated, err := repo.MarkRead(context.Background(), userID, notification.ID)
			require.NoError(t, err)
			assert.False(t, updated)
		})

		t.Run("missing notification", func(t *testing.T) {
			updated, err := repo.MarkRead(context.Background(), userID, "00000000-0000-0000-0000-000000000000")
			require.NoError(t, err)
			assert.False(t, updated)
		})
	})
}
