package web

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"

	"image-enhancer/internal/domain"
	"image-enhancer/internal/http-server/handler/web/dto"
	"image-enhancer/internal/usecase/job"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	eventProgress = "progress"
	eventDone     = "done"
	eventFailed   = "failed"
	eventClose    = "close"
)

// Events streams one submission as server-sent events: progress samples,
// then done or failed, then close. The subscription is disposed when the
// browser goes away, so nothing is written after that.
func (h *WebHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	op, err := h.usecase.Operation(token)
	if err != nil {
		if errors.Is(err, job.ErrUnknownSubmission) {
			h.logger.Info().Str("token", token).Msg("Events requested for unknown submission")
			h.respondError(w, http.StatusNotFound, "Submission not found", nil)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to load submission", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, ErrStreamingUnsupported.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := op.Subscribe()
	defer sub.Dispose()

	for {
		ev, ok := sub.Next(ctx)
		if !ok {
			return
		}

		name, body, err := h.renderEvent(ev)
		if err != nil {
			h.logger.Error().Err(err).Str("token", token).Msg("Failed to render submission event")
			return
		}

		if err := writeEvent(w, name, body); err != nil {
			h.logger.Debug().Err(err).Str("token", token).Msg("Event stream closed by client")
			return
		}

		if ev.Terminal() {
			_ = writeEvent(w, eventClose, nil)
			flusher.Flush()
			h.logger.Debug().Str("token", token).Str("outcome", string(ev.Kind)).Msg("Event stream finished")
			return
		}
		flusher.Flush()
	}
}

func (h *WebHandler) renderEvent(ev domain.SubmissionEvent) (string, []byte, error) {
	switch ev.Kind {
	case domain.EventProgress:
		body, err := h.renderer.fragment("progress_bar", dto.ProgressBar{
			Percent:  int(math.Round(ev.Progress * 100)),
			Uploaded: ev.UploadComplete(),
		})
		return eventProgress, body, err
	case domain.EventSucceeded:
		body, err := h.renderer.fragment("submission_done", dto.SubmissionDone{
			JobID:     ev.Job.ID,
			NextToken: uuid.NewString(),
		})
		return eventDone, body, err
	case domain.EventFailed:
		body, err := h.renderer.fragment("submission_failed", dto.SubmissionFailed{
			Notification: dto.Notification{Level: notificationDanger, Message: h.failureMessage(ev.Err)},
			NextToken:    uuid.NewString(),
		})
		return eventFailed, body, err
	default:
		return "", nil, fmt.Errorf("unknown submission event %q", ev.Kind)
	}
}

// writeEvent frames body as one SSE event. Every line of a multi-line
// fragment gets its own data field.
func writeEvent(w http.ResponseWriter, name string, body []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", name)

	lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
	for _, line := range lines {
		buf.WriteString("data: ")
		buf.Write(bytes.TrimRight(line, "\r"))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	_, err := w.Write(buf.Bytes())
	return err
}
