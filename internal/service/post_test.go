package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/miniblog/miniblog/internal/domain/model"
	"github.com/miniblog/miniblog/internal/mocks"
)

type stubEnqueuer struct {
	requests []*model.EnqueueJobRequest
	job      *model.Job
	err      error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, req *model.EnqueueJobRequest) (*model.Job, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if s.job != nil {
		return s.job, nil
	}
	return &model.Job{ID: "job-1", Type: req.Type, PostID: req.PostID}, nil
}

func stringPtr(s string) *string { return &s }

func statusPtr(s model.PostStatus) *model.PostStatus { return &s }

func TestNewPostService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("success", func(t *testing.T) {
		svc, err := NewPostService(PostServiceOptions{Repo: mocks.NewMockPostRepository(ctrl)})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("missing repo", func(t *testing.T) {
		svc, err := NewPostService(PostServiceOptions{})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "PostRepository is required")
	})
}

func TestMustNewPostService_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNewPostService(PostServiceOptions{})
	})
}

func TestPostService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPostRepository(ctrl)
	enqueuer := &stubEnqueuer{}
	svc := MustNewPostService(PostServiceOptions{Repo: repo, Enqueuer: enqueuer})

	req := &model.CreatePostRequest{
		UserID: "user-1",
		Title:  "Hello World",
		Body:   "a body with enough characters",
		Status: model.PostStatusPublished,
	}
	created := &model.Post{ID: "post-1", UserID: "user-1", Status: model.PostStatusPublished}
	repo.EXPECT().Create(gomock.Any(), req).Return(created, nil)

	post, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, created, post)

	// Creating directly as published is not a transition.
	assert.Empty(t, enqueuer.requests)
}

func TestPostService_Update_PublicationEnqueuesJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPostRepository(ctrl)
	enqueuer := &stubEnqueuer{}
	svc := MustNewPostService(PostServiceOptions{Repo: repo, Enqueuer: enqueuer})

	req := &model.UpdatePostRequest{Status: statusPtr(model.PostStatusPublished)}
	before := &model.Post{ID: "post-1", Status: model.PostStatusDraft}
	after := &model.Post{ID: "post-1", Status: model.PostStatusPublished}
	repo.EXPECT().Update(gomock.Any(), "post-1", req).Return(before, after, nil)

	post, err := svc.Update(context.Background(), "post-1", req)
	require.NoError(t, err)
	assert.Equal(t, after, post)

	require.Len(t, enqueuer.requests, 1)
	assert.Equal(t, model.JobTypeNotification, enqueuer.requests[0].Type)
	assert.Equal(t, "post-1", enqueuer.requests[0].PostID)
}

func TestPostService_Update_NoTransitionNoJob(t *testing.T) {
	tests := []struct {
		name   string
		before model.PostStatus
		after  model.PostStatus
	}{
		{name: "draft stays draft", before: model.PostStatusDraft, after: model.PostStatusDraft},
		{name: "published stays published", before: model.PostStatusPublished, after: model.PostStatusPublished},
		{name: "unpublish", before: model.PostStatusPublished, after: model.PostStatusDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := mocks.NewMockPostRepository(ctrl)
			enqueuer := &stubEnqueuer{}
			svc := MustNewPostService(PostServiceOptions{Repo: repo, Enqueuer: enqueuer})

			req := &model.UpdatePostRequest{Body: stringPtr("updated body with enough characters")}
			repo.EXPECT().Update(gomock.Any(), "post-1", req).Return(
				&model.Post{ID: "post-1", Status: tt.before},
				&model.Post{ID: "post-1", Status: tt.after},
				nil,
			)

			_, err := svc.Update(context.Background(), "post-1", req)
			require.NoError(t, err)
			assert.Empty(t, enqueuer.requests)
		})
	}
}

func TestPostService_Update_EnqueueFailureDoesNotFailUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPostRepository(ctrl)
	enqueuer := &stubEnqueuer{err: errors.New("queue unavailable")}
	svc := MustNewPostService(PostServiceOptions{Repo: repo, Enqueuer: enqueuer})

	req := &model.UpdatePostRequest{Status: statusPtr(model.PostStatusPublished)}
	repo.EXPECT().Update(gomock.Any(), "post-1", req).Return(
		&model.Post{ID: "post-1", Status: model.PostStatusDraft},
		&model.Post{ID: "post-1", Status: model.PostStatusPublished},
		nil,
	)

	post, err := svc.Update(context.Background(), "post-1", req)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, post.Status)
	assert.Len(t, enqueuer.requests, 1)
}

func TestPostService_Update_NilEnqueuer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPostRepository(ctrl)
	svc := MustNewPostService(PostServiceOptions{Repo: repo})

	req := &model.UpdatePostRequest{Status: statusPtr(model.PostStatusPublished)}
	repo.EXPECT().Update(gomock.Any(), "post-1", req).Return(
		&model.Post{ID: "post-1", Status: model.PostStatusDraft},
		&model.Post{ID: "post-1", Status: model.PostStatusPublished},
		nil,
	)

	_, err := svc.Update(context.Background(), "post-1", req)
	assert.NoError(t, err)
}

func TestPostService_Update_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPostRepository(ctrl)
	enqueuer := &stubEnqueuer{}
	svc := MustNewPostService(PostServiceOptions{Repo: repo, Enqueuer: enqueuer})

	repoErr := errors.New("db down")
	repo.EXPECT().Update(gomock.Any(), "post-1", gomock.Any()).Return(nil, nil, repoErr)

	_, err := svc.Update(context.Background(), "post-1", &model.UpdatePostRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, repoErr)
	assert.Empty(t, enqueuer.requests)
}

func TestPostService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPostRepository(ctrl)
	svc := MustNewPostService(PostServiceOptions{Repo: repo})

	repo.EXPECT().Delete(gomock.Any(), "post-1").Return(true, nil)
	deleted, err := svc.Delete(context.Background(), "post-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	repo.EXPECT().Delete(gomock.Any(), "missing").Return(false, nil)
	deleted, err = svc.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPostService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPostRepository(ctrl)
	svc := MustNewPostService(PostServiceOptions{Repo: repo})

	opts := &model.PostListOptions{Page: 1, PageSize: 10}
	result := &model.PostListResult{Page: 1, TotalPages: 1, TotalCount: 2}
	repo.EXPECT().List(gomock.Any(), opts).Return(result, nil)

	got, err := svc.List(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, result, got)
}
