package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/miniblog/miniblog/internal/data"
	"github.com/miniblog/miniblog/internal/domain/model"
)

func TestQueueStatsEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	f.jobs.EXPECT().Stats(gomock.Any(), model.JobTypeNotification).
		Return(&model.JobStats{Pending: 2, Running: 1, Completed: 9, Dead: 1}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/jobs/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending":2,"running":1,"completed":9,"dead":1}`, rec.Body.String())
}

func TestGetJobEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	t.Run("found", func(t *testing.T) {
		f.jobs.EXPECT().GetByID(gomock.Any(), "job-1").
			Return(&model.Job{ID: "job-1", Type: model.JobTypeNotification, Status: model.JobStatusPending}, nil)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "job-1")
	})

	t.Run("not found", func(t *testing.T) {
		f.jobs.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, data.ErrJobNotFound)

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
