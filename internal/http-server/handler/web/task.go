package web

import (
	"errors"
	"net/http"

	"image-enhancer/internal/enhancer"
	"image-enhancer/internal/presentation"

	"github.com/go-chi/chi/v5"
)

// Task shows a job. In-app navigation aimed at the overlay container gets
// the overlay fragment; everything else gets the standalone page. Both
// come from the same resolution.
func (h *WebHandler) Task(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mode := presentation.ModeFromRequest(r)

	w.Header().Add("Vary", presentation.VaryHeader)

	view, err := presentation.Resolve(r.Context(), h.usecase, id)
	if err != nil {
		h.handleTaskError(w, r, err, id)
		return
	}

	h.logger.Info().Str("job_id", id).Str("mode", mode.String()).Msg("Job resolved")

	if mode == presentation.Overlay {
		h.renderFragment(w, http.StatusOK, "task_overlay", view)
		return
	}
	h.renderPage(w, http.StatusOK, pageTask, view)
}

func (h *WebHandler) handleTaskError(w http.ResponseWriter, r *http.Request, err error, id string) {
	switch {
	case errors.Is(err, enhancer.ErrNotFound):
		h.logger.Info().Err(err).Str("job_id", id).Msg("Job not found")
		h.NotFound(w, r)
	default:
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to resolve job")
		h.renderStatusPage(w, r, http.StatusBadGateway, msgBadGateway)
	}
}
