package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"image-enhancer/internal/http-server/handler/web/dto"
)

//go:embed templates
var templateFS embed.FS

const (
	pageForm        = "form"
	pageTask        = "task"
	pageUnavailable = "unavailable"
	pageError       = "error"
)

var pageNames = []string{pageForm, pageTask, pageUnavailable, pageError}

var templateFuncs = template.FuncMap{
	"pathEscape": url.PathEscape,
	"progressBar": func(percent int) dto.ProgressBar {
		return dto.ProgressBar{Percent: percent}
	},
	"submitControl": func(busy, oob bool) dto.SubmitControl {
		return dto.SubmitControl{Busy: busy, OOB: oob}
	},
}

// renderer holds one template set per full page, each made of the layout,
// the shared partials and the page itself, plus the partials alone for
// fragments.
type renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

func newRenderer() (*renderer, error) {
	fragments, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse partials: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		base, err := fragments.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone partials for %s: %w", name, err)
		}
		page, err := base.ParseFS(templateFS, "templates/layout.gohtml", "templates/pages/"+name+".gohtml")
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = page
	}

	return &renderer{pages: pages, fragments: fragments}, nil
}

func (rd *renderer) page(name string, data any) ([]byte, error) {
	tmpl, ok := rd.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "layout", data); err != nil {
		return nil, fmt.Errorf("failed to execute page %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (rd *renderer) fragment(name string, data any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rd.fragments.ExecuteTemplate(buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to execute fragment %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (h *WebHandler) renderPage(w http.ResponseWriter, status int, name string, data any) {
	body, err := h.renderer.page(name, data)
	if err != nil {
		h.logger.Error().Err(err).Str("page", name).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, body)
}

func (h *WebHandler) renderFragment(w http.ResponseWriter, status int, name string, data any) {
	body, err := h.renderer.fragment(name, data)
	if err != nil {
		h.logger.Error().Err(err).Str("fragment", name).Msg("Failed to render fragment")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, body)
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *WebHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Interface("data", data).Msg("Failed to encode response")
	}
}

func (h *WebHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}
