package web

import (
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"image-enhancer/internal/domain"
	"image-enhancer/internal/enhancer"
	"image-enhancer/internal/http-server/handler/web/dto"
	"image-enhancer/internal/presentation"
	"image-enhancer/internal/usecase/job"

	"github.com/go-playground/validator/v10"
)

const (
	maxMemory          = 32 << 20
	multipartOverhead  = 1 << 20
	fieldImage         = "image"
	notificationDanger = "danger"
	toastsTarget       = "toasts"
)

// Submit accepts the form. htmx callers get a progress panel at once and
// follow the submission over the event stream; plain form posts wait for
// the outcome and are redirected to the job or shown the form again.
func (h *WebHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.handleSubmitError(w, r, dto.SubmitForm{}, job.ErrFileTooLarge)
			return
		}
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		h.handleSubmitError(w, r, dto.SubmitForm{}, fmt.Errorf("%w: %w", ErrInvalidForm, err))
		return
	}

	form := dto.SubmitForm{Scale: domain.DefaultScale}
	if err := h.decoder.Decode(&form, r.MultipartForm.Value); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode submission form")
		h.handleSubmitError(w, r, form, fmt.Errorf("%w: %w", ErrInvalidForm, err))
		return
	}

	if err := h.validate.Struct(form); err != nil {
		h.handleSubmitError(w, r, form, validationError(err))
		return
	}

	file, header, err := r.FormFile(fieldImage)
	if err != nil {
		h.handleSubmitError(w, r, form, ErrMissingImage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read upload")
		h.handleSubmitError(w, r, form, fmt.Errorf("%w: %w", ErrInvalidForm, err))
		return
	}

	op, err := h.usecase.Submit(ctx, job.SubmitParams{
		Token:     form.Token,
		Model:     form.Model,
		Scale:     form.Scale,
		SkipAlpha: form.SkipAlpha,
		Filename:  header.Filename,
		Data:      data,
	})
	if err != nil {
		h.handleSubmitError(w, r, form, err)
		return
	}

	if presentation.IsHTMX(r) {
		h.renderFragment(w, http.StatusAccepted, "progress", dto.ProgressPanel{
			Token:     op.Token(),
			Filename:  header.Filename,
			Thumbnail: h.thumbnail(data),
		})
		return
	}

	terminal, err := op.Wait(ctx)
	if err != nil {
		h.logger.Info().Str("token", op.Token()).Msg("Client left before the submission finished")
		return
	}

	if terminal.Kind == domain.EventSucceeded {
		http.Redirect(w, r, "/tasks/"+url.PathEscape(terminal.Job.ID), http.StatusSeeOther)
		return
	}

	h.renderFormWithNotification(w, r, http.StatusBadGateway, form, h.failureMessage(terminal.Err))
}

func (h *WebHandler) thumbnail(data []byte) template.URL {
	if h.thumbnailer == nil {
		return ""
	}
	dataURL, err := h.thumbnailer.DataURL(data)
	if err != nil {
		h.logger.Debug().Err(err).Msg("No preview for upload")
		return ""
	}
	// Built from our own PNG encoding, never from user input.
	return template.URL(dataURL)
}

// failureMessage is what the user reads when a submission failed: the
// service's own message when it sent one, the generic text otherwise.
func (h *WebHandler) failureMessage(err error) string {
	var subErr *enhancer.SubmissionError
	if errors.As(err, &subErr) && subErr.Message != "" {
		return h.sanitize(subErr.Message)
	}
	return msgSubmissionFailed
}

// sanitize strips markup from text that came from the service. The result
// is plain text; html/template escapes it again on output.
func (h *WebHandler) sanitize(s string) string {
	clean := strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(s)))
	if clean == "" {
		return msgSubmissionFailed
	}
	return clean
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}

	for _, fe := range verrs {
		switch fe.Field() {
		case "Scale":
			return fmt.Errorf("%w: %s", job.ErrInvalidScale, fe.Error())
		case "Model":
			return fmt.Errorf("%w: %s", job.ErrInvalidSelection, fe.Error())
		case "Token":
			return fmt.Errorf("%w: %s", job.ErrMissingToken, fe.Error())
		}
	}
	return fmt.Errorf("%w: %w", ErrInvalidForm, err)
}

func (h *WebHandler) handleSubmitError(w http.ResponseWriter, r *http.Request, form dto.SubmitForm, err error) {
	var (
		status  int
		message string
	)

	switch {
	case errors.Is(err, job.ErrSubmissionInFlight):
		h.logger.Info().Str("token", form.Token).Msg("Duplicate submission rejected")
		status, message = http.StatusConflict, msgInFlight
	case errors.Is(err, job.ErrFileTooLarge):
		h.logger.Warn().Err(err).Msg("Upload too large")
		status, message = http.StatusRequestEntityTooLarge, msgFileTooLarge
	case errors.Is(err, job.ErrInvalidScale):
		status, message = http.StatusUnprocessableEntity, msgInvalidScale
	case errors.Is(err, job.ErrInvalidSelection):
		h.logger.Warn().Err(err).Str("model", form.Model).Msg("Invalid model selection")
		status, message = http.StatusUnprocessableEntity, msgInvalidSelection
	case errors.Is(err, job.ErrInvalidImage):
		h.logger.Warn().Err(err).Msg("Upload is not an image")
		status, message = http.StatusUnprocessableEntity, msgInvalidImage
	case errors.Is(err, ErrMissingImage):
		status, message = http.StatusUnprocessableEntity, msgMissingImage
	case errors.Is(err, job.ErrMissingToken), errors.Is(err, ErrInvalidForm):
		status, message = http.StatusBadRequest, msgInvalidForm
	case errors.Is(err, enhancer.ErrServiceUnavailable):
		h.logger.Warn().Err(err).Msg("Catalog unavailable during submission")
		status, message = http.StatusServiceUnavailable, msgServiceUnavailable
	default:
		h.logger.Error().Err(err).Msg("Submission failed")
		status, message = http.StatusInternalServerError, msgSubmissionFailed
	}

	if presentation.IsHTMX(r) {
		retargetToToasts(w)
		h.renderFragment(w, status, "toast", dto.Notification{Level: notificationDanger, Message: message})
		return
	}

	h.renderFormWithNotification(w, r, status, form, message)
}

func (h *WebHandler) renderFormWithNotification(w http.ResponseWriter, r *http.Request, status int, form dto.SubmitForm, message string) {
	catalog, err := h.usecase.Catalog(r.Context())
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	note := &dto.Notification{Level: notificationDanger, Message: message}
	h.renderPage(w, status, pageForm, h.formPage(catalog, form.Model, form.Scale, form.SkipAlpha, note))
}
