package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/miniblog/miniblog/config"
	"github.com/miniblog/miniblog/internal/core"
	"github.com/miniblog/miniblog/internal/domain/model"
	"github.com/miniblog/miniblog/internal/mocks"
)

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:        time.Hour,
		CompletedMaxAge: 24 * time.Hour,
		DeadMaxAge:      7 * 24 * time.Hour,
		DeadReportLimit: 50,
		BatchSize:       100,
	}
}

func TestNewReaperService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("success", func(t *testing.T) {
		svc, err := NewReaperService(ReaperServiceOptions{
			Repo:   mocks.NewMockReaperRepository(ctrl),
			Config: testReaperConfig(),
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("missing repo", func(t *testing.T) {
		_, err := NewReaperService(ReaperServiceOptions{Config: testReaperConfig()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ReaperRepository is required")
	})
}

func TestReaperService_RunOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockReaperRepository(ctrl)
	cfg := testReaperConfig()
	svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg})
	ctx := context.Background()

	dead := []core.DeadJobSummary{
		{JobID: "job-1", PostID: "post-1", AttemptCount: 3, LastError: "post fetch failed"},
	}
	repo.EXPECT().ListDeadJobs(ctx, model.JobTypeNotification, cfg.DeadReportLimit).Return(dead, nil)
	repo.EXPECT().DeleteOldJobs(ctx, core.DeleteOldJobsParams{
		Status:    model.JobStatusCompleted,
		MaxAge:    cfg.CompletedMaxAge,
		BatchSize: cfg.BatchSize,
	}).Return(int64(5), nil)
	repo.EXPECT().DeleteOldJobs(ctx, core.DeleteOldJobsParams{
		Status:    model.JobStatusDead,
		MaxAge:    cfg.DeadMaxAge,
		BatchSize: cfg.BatchSize,
	}).Return(int64(0), nil)

	err := svc.RunOnce(ctx)
	assert.NoError(t, err)
}

func TestReaperService_RunOnce_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockReaperRepository(ctrl)
	svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})

	listErr := errors.New("db down")
	repo.EXPECT().ListDeadJobs(gomock.Any(), model.JobTypeNotification, gomock.Any()).Return(nil, listErr)

	err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, listErr)
}

func TestReaperService_RunOnce_DeleteError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockReaperRepository(ctrl)
	svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})

	deleteErr := errors.New("db down")
	repo.EXPECT().ListDeadJobs(gomock.Any(), model.JobTypeNotification, gomock.Any()).Return(nil, nil)
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), deleteErr)

	err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, deleteErr)
}

func TestReaperService_Run_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockReaperRepository(ctrl)
	cfg := testReaperConfig()
	cfg.Interval = 10 * time.Millisecond
	svc := MustNewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg})

	repo.EXPECT().ListDeadJobs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().DeleteOldJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
