package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/platelog/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journal.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records.
	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)
	r.Get("/records/count", h.CountRecords)
	r.Get("/records/{id}", h.GetRecord)
	r.Patch("/records/{id}", h.UpdateRecord)
	r.Delete("/records/{id}", h.DeleteRecord)
	r.Post("/records/{id}/tags/{tagID}", h.AttachTag)
	r.Delete("/records/{id}/tags/{tagID}", h.DetachTag)

	// Photos.
	r.Get("/records/{id}/photo", h.ServePhoto)
	r.Put("/records/{id}/photo", h.UploadPhoto)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)
	r.Post("/tags/defaults", h.CreateDefaultTags)
	r.Delete("/tags/{id}", h.DeleteTag)

	// Filters and browsing state.
	r.Get("/filters/presets", h.Presets)
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.UpdateSelection)

	// Awards.
	r.Post("/awards/check", h.CheckAward)
	r.Get("/awards", h.ListAwards)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
