package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/miniblog/miniblog/internal/mocks"
	"github.com/miniblog/miniblog/internal/service"
)

// routerFixture wires real services over mocked repositories so handler tests
// exercise the full request path through the mux.
type routerFixture struct {
	posts         *mocks.MockPostRepository
	notifications *mocks.MockNotificationRepository
	jobs          *mocks.MockJobRepository
	users         *mocks.MockUserRepository
	handler       http.Handler
}

func newRouterFixture(t *testing.T, ctrl *gomock.Controller) *routerFixture {
	t.Helper()

	f := &routerFixture{
		posts:         mocks.NewMockPostRepository(ctrl),
		notifications: mocks.NewMockNotificationRepository(ctrl),
		jobs:          mocks.NewMockJobRepository(ctrl),
		users:         mocks.NewMockUserRepository(ctrl),
	}

	postSvc := service.MustNewPostService(service.PostServiceOptions{Repo: f.posts})
	notificationSvc := service.MustNewNotificationService(service.NotificationServiceOptions{Repo: f.notifications})
	jobSvc := service.MustNewJobService(service.JobServiceOptions{
		Repo:         f.jobs,
		DefaultLease: 30 * time.Second,
	})
	statsSvc, err := service.NewStatsService(service.StatsServiceOptions{
		Posts:         f.posts,
		Notifications: notificationSvc,
		Jobs:          f.jobs,
		Users:         f.users,
	})
	require.NoError(t, err)

	t.Cleanup(jobSvc.Shutdown)

	f.handler = NewRouter(RouterServices{
		Posts:         postSvc,
		Notifications: notificationSvc,
		Jobs:          jobSvc,
		Stats:         statsSvc,
	})
	return f
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
