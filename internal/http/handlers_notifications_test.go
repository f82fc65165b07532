package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/miniblog/miniblog/internal/domain/model"
)

func TestListUnreadNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	items := []*model.Notification{
		{ID: "n-2", UserID: "user-1", Type: model.NotificationTypePostPublished, Message: "Your post 'Second' has been published!"},
		{ID: "n-1", UserID: "user-1", Type: model.NotificationTypePostPublished, Message: "Your post 'First' has been published!"},
	}
	f.notifications.EXPECT().ListUnread(gomock.Any(), "user-1", 50).Return(items, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/users/user-1/notifications", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Items []*model.Notification `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "n-2", got.Items[0].ID)
}

func TestListUnreadNotifications_CustomLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	f.notifications.EXPECT().ListUnread(gomock.Any(), "user-1", 5).Return(nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/users/user-1/notifications?limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnreadCountEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	f.notifications.EXPECT().UnreadCount(gomock.Any(), "user-1").Return(3, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/users/user-1/notifications/count", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":3}`, rec.Body.String())
}

func TestMarkReadEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	t.Run("updated", func(t *testing.T) {
		f.notifications.EXPECT().MarkRead(gomock.Any(), "user-1", "n-1").Return(true, nil)

		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/users/user-1/notifications/n-1/read", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		f.notifications.EXPECT().MarkRead(gomock.Any(), "user-1", "missing").Return(false, nil)

		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/users/user-1/notifications/missing/read", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRouterFixture(t, ctrl)

	f.users.EXPECT().GetByID(gomock.Any(), "user-1").
		Return(&model.User{ID: "user-1", Role: model.UserRoleMember}, nil)
	f.posts.EXPECT().CountByStatus(gomock.Any(), gomock.Not(gomock.Nil())).
		Return(&model.PostStatusCounts{Published: 2, Draft: 1, Total: 3}, nil)
	f.notifications.EXPECT().UnreadCount(gomock.Any(), "user-1").Return(4, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/users/user-1/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Posts  model.PostStatusCounts `json:"posts"`
		Unread int                    `json:"unread_notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Posts.Total)
	assert.Equal(t, 4, got.Unread)
}
