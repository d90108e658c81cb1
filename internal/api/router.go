package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/adrctl/internal/adrservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *adrservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)
	r.Get("/records/{name}", h.GetRecord)
	r.Put("/records/{name}/status", h.ChangeStatus)
	r.Post("/records/{name}/links", h.AddLink)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
