// internal/app/features/administrations/handler.go

// Package administrations exposes the JSON CRUD surface for administration
// documents. Handlers only write the administrations collection; the change
// watcher picks the writes up and drives assignment fan-out asynchronously.
package administrations

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	adminstore "github.com/dalemusser/cohorthub/internal/app/store/administrations"
	"github.com/dalemusser/cohorthub/internal/app/system/paging"
	"github.com/dalemusser/cohorthub/internal/app/system/queue"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the administration CRUD endpoints.
type Handler struct {
	admins   *adminstore.Store
	queue    *queue.Queue
	validate *validator.Validate
	log      *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		admins:   adminstore.New(db),
		queue:    queue.New(db, logger),
		validate: validator.New(),
		log:      logger,
	}
}

// parsePayload decodes and validates a request body.
func (h *Handler) parsePayload(r *http.Request) (administrationPayload, error) {
	var p administrationPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := h.validate.Struct(p); err != nil {
		return p, err
	}
	if p.Orgs.IsEmpty() {
		return p, errors.New("orgs must reference at least one organization")
	}
	return p, nil
}

// List handles GET /administrations?before=&after= with keyset pagination
// over administration names.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	before := r.URL.Query().Get("before")
	after := r.URL.Query().Get("after")

	cfg := paging.ConfigureKeyset(before, after)
	docs, err := h.admins.List(r.Context(), cfg)
	if err != nil {
		h.log.Error("administration list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}

	if cfg.Direction == paging.Backward {
		paging.Reverse(docs)
	}
	page := paging.TrimPage(&docs, before, after)
	prev, next := paging.BuildCursors(docs,
		func(a models.Administration) string { return a.Name },
		func(a models.Administration) string { return a.ID })

	resp := listResponse{Administrations: docs}
	if page.HasPrev {
		resp.PrevCursor = prev
	}
	if page.HasNext {
		resp.NextCursor = next
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /administrations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := h.parsePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a := p.toModel()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	created, err := h.admins.Create(r.Context(), a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			writeError(w, http.StatusConflict, fmt.Errorf("administration %q already exists", a.ID))
			return
		}
		h.log.Error("administration create failed", zap.String("id", a.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("create failed"))
		return
	}

	h.log.Info("administration created",
		zap.String("id", created.ID),
		zap.String("name", created.Name),
		zap.Int("orgs", created.Orgs.Len()))
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /administrations/{administrationID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "administrationID")
	a, err := h.admins.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, adminstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.log.Error("administration get failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}

	pending, err := h.queue.PendingCount(r.Context(), id)
	if err != nil {
		h.log.Warn("pending task count failed", zap.String("id", id), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, administrationResponse{Administration: a, PendingSyncTasks: pending})
}

// Update handles PUT /administrations/{administrationID}. The full document
// is replaced; derived fields (minimal orgs, sync marker) are recomputed by
// the sync engine after the write.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "administrationID")
	p, err := h.parsePayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if p.ID != "" && p.ID != id {
		writeError(w, http.StatusBadRequest, errors.New("body id does not match URL"))
		return
	}

	existing, err := h.admins.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, adminstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.log.Error("administration get failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}

	a := p.toModel()
	a.ID = id
	a.DateCreated = existing.DateCreated
	if a.CreatedBy == "" {
		a.CreatedBy = existing.CreatedBy
	}
	if err := h.admins.Replace(r.Context(), a); err != nil {
		h.log.Error("administration update failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("update failed"))
		return
	}

	h.log.Info("administration updated", zap.String("id", id))
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /administrations/{administrationID}. Assignment
// cleanup cascades asynchronously through the delete change event.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "administrationID")
	if err := h.admins.Delete(r.Context(), id); err != nil {
		if errors.Is(err, adminstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.log.Error("administration delete failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("delete failed"))
		return
	}

	h.log.Info("administration deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// Orgs handles GET /administrations/{administrationID}/orgs?scope=assigned|read
// and returns the denormalized org closure docs.
func (h *Handler) Orgs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "administrationID")
	scope := models.OrgScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = models.ScopeAssigned
	}
	if scope != models.ScopeAssigned && scope != models.ScopeRead {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown scope %q", scope))
		return
	}

	docs, err := h.admins.OrgDocs(r.Context(), id, scope)
	if err != nil {
		h.log.Error("administration orgs lookup failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
