// internal/app/features/stats/handler.go

// Package stats exposes read-only completion-stats endpoints. The documents
// themselves are maintained by the stats aggregator; these handlers only
// query them.
package stats

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	statsstore "github.com/dalemusser/cohorthub/internal/app/store/stats"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	stats *statsstore.Store
	log   *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{stats: statsstore.New(db), log: logger}
}

// List handles GET /administrations/{administrationID}/stats and returns
// every per-org stats document plus the total, total first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "administrationID")

	docs, err := h.stats.ForAdministration(r.Context(), adminID)
	if err != nil {
		h.log.Error("stats list failed", zap.String("administration", adminID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}

	sort.Slice(docs, func(i, j int) bool {
		if (docs[i].OrgID == models.StatsTotalOrg) != (docs[j].OrgID == models.StatsTotalOrg) {
			return docs[i].OrgID == models.StatsTotalOrg
		}
		return docs[i].OrgID < docs[j].OrgID
	})
	writeJSON(w, http.StatusOK, docs)
}

// Get handles GET /administrations/{administrationID}/stats/{orgID}.
// Use the org ID "total" for the administration-wide rollup.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "administrationID")
	orgID := chi.URLParam(r, "orgID")

	st, err := h.stats.Get(r.Context(), adminID, orgID)
	if err != nil {
		if errors.Is(err, statsstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.log.Error("stats get failed",
			zap.String("administration", adminID),
			zap.String("org", orgID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
