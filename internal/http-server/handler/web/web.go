package web

import (
	"errors"
	"net/http"

	"image-enhancer/internal/domain"
	"image-enhancer/internal/enhancer"
	"image-enhancer/internal/http-server/handler/web/dto"
	"image-enhancer/internal/presentation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/microcosm-cc/bluemonday"
	"github.com/wb-go/wbf/zlog"
)

type WebHandler struct {
	usecase       jobUsecase
	thumbnailer   thumbnailer
	renderer      *renderer
	decoder       *schema.Decoder
	validate      *validator.Validate
	sanitizer     *bluemonday.Policy
	maxUploadSize int64
	logger        *zlog.Zerolog
}

func NewWebHandler(usecase jobUsecase, thumbnailer thumbnailer, maxUploadSize int64, logger *zlog.Zerolog) (*WebHandler, error) {
	rd, err := newRenderer()
	if err != nil {
		return nil, err
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	if maxUploadSize <= 0 {
		maxUploadSize = domain.DefaultMaxUploadSize
	}

	return &WebHandler{
		usecase:       usecase,
		thumbnailer:   thumbnailer,
		renderer:      rd,
		decoder:       decoder,
		validate:      validator.New(),
		sanitizer:     bluemonday.StrictPolicy(),
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}, nil
}

// Index renders the submission form. Without a catalog there is nothing to
// choose from, so an unavailable service gets a retry page instead.
func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.usecase.Catalog(r.Context())
	if err != nil {
		h.handleCatalogError(w, r, err)
		return
	}

	h.renderPage(w, http.StatusOK, pageForm, h.formPage(catalog, "", domain.DefaultScale, false, nil))
}

func (h *WebHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// NotFound is the router's generic 404 page.
func (h *WebHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderStatusPage(w, r, http.StatusNotFound, msgNotFound)
}

func (h *WebHandler) renderStatusPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	retargetToBody(w, r)
	h.renderPage(w, status, pageError, dto.ErrorPage{
		Status:  status,
		Title:   http.StatusText(status),
		Message: message,
	})
}

// retargetToBody makes htmx replace the whole page with a full-page
// response instead of swapping it into the element that asked.
func retargetToBody(w http.ResponseWriter, r *http.Request) {
	if presentation.IsHTMX(r) {
		w.Header().Set("HX-Retarget", "body")
		w.Header().Set("HX-Reswap", "innerHTML")
	}
}

// retargetToToasts sends an error toast to the toast stack so it never
// replaces a submission panel that is still streaming.
func retargetToToasts(w http.ResponseWriter) {
	w.Header().Set("HX-Retarget", "#"+toastsTarget)
	w.Header().Set("HX-Reswap", "beforeend")
}

func (h *WebHandler) formPage(catalog domain.Catalog, selected string, scale int, skipAlpha bool, note *dto.Notification) dto.FormPage {
	groups := make([]dto.AlgorithmGroup, 0, len(catalog.Algorithms))
	for _, algo := range catalog.Algorithms {
		group := dto.AlgorithmGroup{Name: algo.Name}
		for _, model := range algo.Models {
			key := domain.Selection{Algorithm: algo.Name, Model: model}.Key()
			group.Options = append(group.Options, dto.ModelOption{
				Key:      key,
				Label:    model,
				Selected: key == selected,
			})
		}
		groups = append(groups, group)
	}

	if scale < domain.MinScale || scale > domain.MaxScale {
		scale = domain.DefaultScale
	}

	return dto.FormPage{
		Token:        uuid.NewString(),
		Groups:       groups,
		Scale:        scale,
		MinScale:     domain.MinScale,
		MaxScale:     domain.MaxScale,
		ScaleMarks:   domain.ScaleMarks,
		SkipAlpha:    skipAlpha,
		MaxUploadMB:  h.maxUploadSize >> 20,
		Notification: note,
	}
}

func (h *WebHandler) handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, enhancer.ErrServiceUnavailable):
		h.logger.Warn().Err(err).Msg("Catalog unavailable")
		retargetToBody(w, r)
		h.renderPage(w, http.StatusServiceUnavailable, pageUnavailable, dto.UnavailablePage{Message: msgServiceUnavailable})
	default:
		h.logger.Error().Err(err).Msg("Failed to load catalog")
		h.renderStatusPage(w, r, http.StatusInternalServerError, "")
	}
}
