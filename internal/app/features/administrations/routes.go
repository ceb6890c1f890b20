// internal/app/features/administrations/routes.go
package administrations

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for the administration CRUD endpoints.
// Mount under /administrations.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{administrationID}", h.Get)
	r.Put("/{administrationID}", h.Update)
	r.Delete("/{administrationID}", h.Delete)
	r.Get("/{administrationID}/orgs", h.Orgs)
	return r
}
