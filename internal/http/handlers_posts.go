package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/miniblog/miniblog/internal/domain/model"
	"github.com/miniblog/miniblog/internal/service"
)

// PostHandlers provides HTTP handlers for post operations.
type PostHandlers struct {
	Svc *service.PostService
}

// CreatePost handles HTTP requests to create a new post.
func (h *PostHandlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePostRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		req.Status = model.PostStatusDraft
	}

	post, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, post)
}

// GetPost handles HTTP requests to fetch one post by ID.
func (h *PostHandlers) GetPost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("post id is required")})
		return
	}

	post, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, post)
}

// GetPostBySlug handles HTTP requests to fetch one post by slug.
func (h *PostHandlers) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("slug is required")})
		return
	}

	post, err := h.Svc.GetBySlug(r.Context(), slug)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, post)
}

// UpdatePost handles HTTP requests to update a post. Publishing a draft this
// way triggers the notification pipeline.
func (h *PostHandlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("post id is required")})
		return
	}

	var req model.UpdatePostRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	post, err := h.Svc.Update(r.Context(), id, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, post)
}

// DeletePost handles HTTP requests to delete a post.
func (h *PostHandlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("post id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("post not found")})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPosts handles HTTP requests for the filtered, paginated post listing.
//
// Query parameters: status, user_id, q, created_from, created_to (RFC 3339
// or YYYY-MM-DD), page, page_size. Filters combine with AND.
func (h *PostHandlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	opts, err := parsePostListOptions(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: err})
		return
	}

	result, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func parsePostListOptions(r *http.Request) (*model.PostListOptions, error) {
	q := r.URL.Query()
	opts := &model.PostListOptions{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", model.DefaultPageSize),
	}

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		var status model.PostStatus
		if err := status.UnmarshalText([]byte(v)); err != nil {
			return nil, err
		}
		opts.Status = &status
	}
	if v := strings.TrimSpace(q.Get("user_id")); v != "" {
		opts.UserID = &v
	}
	if v := strings.TrimSpace(q.Get("q")); v != "" {
		opts.SearchQuery = &v
	}

	from, err := parseTimeQuery(q.Get("created_from"), false)
	if err != nil {
		return nil, err
	}
	opts.CreatedFrom = from

	to, err := parseTimeQuery(q.Get("created_to"), true)
	if err != nil {
		return nil, err
	}
	opts.CreatedTo = to

	return opts, nil
}

// parseTimeQuery accepts RFC 3339 timestamps or bare dates. A bare date used
// as an upper bound covers the whole day.
func parseTimeQuery(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.New("time must be RFC 3339 or YYYY-MM-DD: " + strconv.Quote(value))
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
