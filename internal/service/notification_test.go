package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/miniblog/miniblog/internal/domain/model"
	"github.com/miniblog/miniblog/internal/mocks"
)

func TestNewNotificationService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("success", func(t *testing.T) {
		svc, err := NewNotificationService(NotificationServiceOptions{
			Repo: mocks.NewMockNotificationRepository(ctrl),
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
		assert.Equal(t, defaultUnreadCountTTL, svc.unreadCountTTL)
	})

	t.Run("custom ttl", func(t *testing.T) {
		svc, err := NewNotificationService(NotificationServiceOptions{
			Repo:           mocks.NewMockNotificationRepository(ctrl),
			UnreadCountTTL: time.Minute,
		})
		require.NoError(t, err)
		assert.Equal(t, time.Minute, svc.unreadCountTTL)
	})

	t.Run("missing repo", func(t *testing.T) {
		_, err := NewNotificationService(NotificationServiceOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NotificationRepository is required")
	})
}

func TestNotificationService_Create_InvalidatesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{Repo: repo, Cache: cache})

	req := &model.CreateNotificationRequest{
		UserID:  "user-1",
		PostID:  "post-1",
		Message: "Your post 'Hello' has been published!",
		Type:    model.NotificationTypePostPublished,
	}
	stored := &model.Notification{ID: "n-1", UserID: "user-1", PostID: "post-1"}
	repo.EXPECT().Create(gomock.Any(), req).Return(stored, true, nil)
	cache.EXPECT().Delete(gomock.Any(), "notifications:unread_count:user-1").Return(true, nil)

	n, created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, stored, n)
}

func TestNotificationService_Create_DuplicateIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{Repo: repo, Cache: cache})

	req := &model.CreateNotificationRequest{
		UserID:  "user-1",
		PostID:  "post-1",
		Message: "Your post 'Hello' has been published!",
		Type:    model.NotificationTypePostPublished,
	}
	// Duplicate insert: no row, no error, and no cache invalidation.
	repo.EXPECT().Create(gomock.Any(), req).Return(nil, false, nil)

	n, created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, n)
}

func TestNotificationService_UnreadCount_CacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{Repo: repo, Cache: cache})

	cache.EXPECT().Get(gomock.Any(), "notifications:unread_count:user-1").Return([]byte("7"), nil)

	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestNotificationService_UnreadCount_CacheMissPopulates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{
		Repo:           repo,
		Cache:          cache,
		UnreadCountTTL: 30 * time.Second,
	})

	cache.EXPECT().Get(gomock.Any(), "notifications:unread_count:user-1").Return(nil, nil)
	repo.EXPECT().UnreadCount(gomock.Any(), "user-1").Return(3, nil)
	cache.EXPECT().Set(gomock.Any(), "notifications:unread_count:user-1", []byte("3"), 30*time.Second).Return(nil)

	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNotificationService_UnreadCount_CacheFailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{Repo: repo, Cache: cache})

	cacheErr := errors.New("redis down")
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, cacheErr)
	repo.EXPECT().UnreadCount(gomock.Any(), "user-1").Return(5, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(cacheErr)

	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestNotificationService_UnreadCount_NoCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{Repo: repo})

	repo.EXPECT().UnreadCount(gomock.Any(), "user-1").Return(2, nil)

	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNotificationService_MarkRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	cache := mocks.NewMockCacheRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{Repo: repo, Cache: cache})

	t.Run("updated invalidates cache", func(t *testing.T) {
		repo.EXPECT().MarkRead(gomock.Any(), "user-1", "n-1").Return(true, nil)
		cache.EXPECT().Delete(gomock.Any(), "notifications:unread_count:user-1").Return(true, nil)

		updated, err := svc.MarkRead(context.Background(), "user-1", "n-1")
		require.NoError(t, err)
		assert.True(t, updated)
	})

	t.Run("not found leaves cache alone", func(t *testing.T) {
		repo.EXPECT().MarkRead(gomock.Any(), "user-1", "missing").Return(false, nil)

		updated, err := svc.MarkRead(context.Background(), "user-1", "missing")
		require.NoError(t, err)
		assert.False(t, updated)
	})
}

func TestNotificationService_ListUnread(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockNotificationRepository(ctrl)
	svc := MustNewNotificationService(NotificationServiceOptions{Repo: repo})

	items := []*model.Notification{{ID: "n-2"}, {ID: "n-1"}}
	repo.EXPECT().ListUnread(gomock.Any(), "user-1", 20).Return(items, nil)

	got, err := svc.ListUnread(context.Background(), "user-1", 20)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}
