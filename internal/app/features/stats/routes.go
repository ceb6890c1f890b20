// internal/app/features/stats/routes.go
package stats

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for the completion-stats endpoints.
// Mount under /administrations/{administrationID}/stats.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{orgID}", h.Get)
	return r
}
