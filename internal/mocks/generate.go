// Package mocks provides gomock implementations of the core repository ports.
//
// The mocks are generated with go.uber.org/mock via the go:generate directives
// below. To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	repo := mocks.NewMockJobRepository(ctrl)
//	repo.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=post_repository_mock.go github.com/miniblog/miniblog/internal/core PostRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=notification_repository_mock.go github.com/miniblog/miniblog/internal/core NotificationRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/miniblog/miniblog/internal/core JobRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/miniblog/miniblog/internal/core UserRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/miniblog/miniblog/internal/core CacheRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=reaper_repository_mock.go github.com/miniblog/miniblog/internal/core ReaperRepository
