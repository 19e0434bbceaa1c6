package router

import (
	"net/http"

	"image-enhancer/internal/http-server/handler/web"
	"image-enhancer/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	WebHandler *web.WebHandler
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RecoveryMiddleware)

	r.Use(func(next http.Handler) http.Handler {
		logged := middleware.LoggingMiddleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}
			logged.ServeHTTP(w, r)
		})
	})

	r.NotFound(h.WebHandler.NotFound)

	r.Get("/", h.WebHandler.Index)
	r.Get("/healthz", h.WebHandler.Health)

	r.Post("/submissions", h.WebHandler.Submit)
	r.Get("/submissions/{token}/events", h.WebHandler.Events)

	r.Get("/tasks/{id}", h.WebHandler.Task)

	return r
}
