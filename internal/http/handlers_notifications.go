package httpx

import (
	"errors"
	"net/http"

	"github.com/miniblog/miniblog/internal/service"
)

// NotificationHandlers provides HTTP handlers for the notification read model.
type NotificationHandlers struct {
	Svc   *service.NotificationService
	Stats *service.StatsService
}

// ListUnread handles HTTP requests for a recipient's unread notifications.
func (h *NotificationHandlers) ListUnread(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("user id is required")})
		return
	}
	limit := parseIntQuery(r, "limit", 50)

	notifications, err := h.Svc.ListUnread(r.Context(), userID, limit)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": notifications})
}

// UnreadCount handles HTTP requests for a recipient's unread badge count.
func (h *NotificationHandlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("user id is required")})
		return
	}

	count, err := h.Svc.UnreadCount(r.Context(), userID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead handles HTTP requests to mark one notification as read.
func (h *NotificationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	notificationID := r.PathValue("id")
	if userID == "" || notificationID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("user id and notification id are required")})
		return
	}

	updated, err := h.Svc.MarkRead(r.Context(), userID, notificationID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if !updated {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("notification not found or already read")})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handles HTTP requests for a user's dashboard aggregates.
func (h *NotificationHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("user id is required")})
		return
	}
	if h.Stats == nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("dashboard not available")})
		return
	}

	stats, err := h.Stats.ForUser(r.Context(), userID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
