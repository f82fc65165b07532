package httpx

import (
	"log/slog"
	"net/http"

	"github.com/miniblog/miniblog/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Posts         *service.PostService
	Notifications *service.NotificationService
	Jobs          *service.JobService
	Stats         *service.StatsService
	Logger        *slog.Logger // Logger for HTTP errors (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	postHandlers := &PostHandlers{Svc: services.Posts}
	notificationHandlers := &NotificationHandlers{Svc: services.Notifications, Stats: services.Stats}

	mux.HandleFunc("GET /api/posts", postHandlers.ListPosts)
	mux.HandleFunc("POST /api/posts", postHandlers.CreatePost)
	mux.HandleFunc("GET /api/posts/{id}", postHandlers.GetPost)
	mux.HandleFunc("PATCH /api/posts/{id}", postHandlers.UpdatePost)
	mux.HandleFunc("DELETE /api/posts/{id}", postHandlers.DeletePost)
	mux.HandleFunc("GET /api/posts/slug/{slug}", postHandlers.GetPostBySlug)

	mux.HandleFunc("GET /api/users/{user_id}/notifications", notificationHandlers.ListUnread)
	mux.HandleFunc("GET /api/users/{user_id}/notifications/count", notificationHandlers.UnreadCount)
	mux.HandleFunc("POST /api/users/{user_id}/notifications/{id}/read", notificationHandlers.MarkRead)
	mux.HandleFunc("GET /api/users/{user_id}/dashboard", notificationHandlers.Dashboard)

	if services.Jobs != nil {
		jobHandlers := &JobHandlers{Svc: services.Jobs}
		mux.HandleFunc("GET /api/jobs/stats", jobHandlers.QueueStats)
		mux.HandleFunc("GET /api/jobs/{id}", jobHandlers.GetJob)
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return withRequestLogging(mux, services.Logger)
}

// withRequestLogging logs each request at debug level when a logger is set.
func withRequestLogging(next http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.DebugContext(r.Context(), "http request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
