package httpx

import (
	"errors"
	"net/http"

	"github.com/miniblog/miniblog/internal/data"
	"github.com/miniblog/miniblog/internal/domain/model"
	"github.com/miniblog/miniblog/internal/service"
)

// JobHandlers provides HTTP handlers for queue introspection.
type JobHandlers struct {
	Svc *service.JobService
}

// QueueStats handles HTTP requests for notification queue counters.
func (h *JobHandlers) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context(), model.JobTypeNotification)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// GetJob handles HTTP requests to inspect a single job.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := h.Svc.GetByID(r.Context(), id)
	if errors.Is(err, data.ErrJobNotFound) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
		return
	}
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
