// internal/app/store/administrations/adminstore.go
package adminstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/limits"
	"github.com/dalemusser/cohorthub/internal/app/system/paging"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("administration not found")

// Store owns the administrations collection and its denormalized
// administration_orgs side collection.
type Store struct {
	c    *mongo.Collection
	orgs *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:    db.Collection("administrations"),
		orgs: db.Collection("administration_orgs"),
	}
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Administration, error) {
	var a models.Administration
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return models.Administration{}, fmt.Errorf("administration %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Administration{}, err
	}
	return a, nil
}

// List returns one keyset page of administrations sorted by name.
// The caller fetches PageSize+1 rows; use paging.TrimPage on the result.
func (s *Store) List(ctx context.Context, cfg paging.KeysetConfig) ([]models.Administration, error) {
	filter := bson.M{}
	if win := cfg.KeysetWindow("name"); win != nil {
		filter = win
	}
	find := options.Find()
	cfg.ApplyToFind(find, "name")

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	var out []models.Administration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, a models.Administration) (models.Administration, error) {
	now := time.Now().UTC()
	if a.DateCreated.IsZero() {
		a.DateCreated = now
	}
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Administration{}, err
	}
	return a, nil
}

func (s *Store) Replace(ctx context.Context, a models.Administration) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("administration %q: %w", a.ID, ErrNotFound)
	}
	return nil
}

// Delete removes the administration and cascades its denormalized org docs.
// Stats documents are left for the aggregator's decrements to zero out and
// for post-hoc reporting.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.orgs.DeleteMany(ctx, bson.M{"administration_id": id}); err != nil {
		return err
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("administration %q: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteOrgDocs removes every administration_orgs doc for an
// administration. Used by the delete handler, which runs after the
// administration document itself is already gone.
func (s *Store) DeleteOrgDocs(ctx context.Context, adminID string) error {
	_, err := s.orgs.DeleteMany(ctx, bson.M{"administration_id": adminID})
	return err
}

// SetDerived writes the derived minimal org set back onto the
// administration, stamping the sync marker so the administration watcher
// ignores the echo.
func (s *Store) SetDerived(ctx context.Context, id string, minimal models.OrgRefSet) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"minimal_orgs": minimal,
		"last_synced":  now,
		"updated_at":   now,
	}})
	return err
}

// ReplaceOrgDocs rewrites the administration_orgs documents for one scope:
// upserts a doc per org in the set and deletes docs for orgs no longer
// present. One document per organization, each carrying the administration
// summary for org-scoped querying.
func (s *Store) ReplaceOrgDocs(ctx context.Context, adminID string, scope models.OrgScope, orgs models.OrgRefSet, summary models.AdminSummary) error {
	now := time.Now().UTC()

	var ops []mongo.WriteModel
	keep := make([]string, 0, orgs.Len())
	for _, kind := range models.OrgKinds {
		for _, orgID := range orgs.Of(kind) {
			doc := models.AdministrationOrg{
				ID:               models.AdministrationOrgID(adminID, scope, kind, orgID),
				AdministrationID: adminID,
				Scope:            scope,
				OrgKind:          kind,
				OrgID:            orgID,
				Summary:          summary,
				UpdatedAt:        now,
			}
			keep = append(keep, doc.ID)
			ops = append(ops, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": doc.ID}).
				SetReplacement(doc).
				SetUpsert(true))
		}
	}

	if len(ops) > 0 {
		if _, err := s.orgs.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("administration_orgs upsert: %w", err)
		}
	}

	_, err := s.orgs.DeleteMany(ctx, bson.M{
		"administration_id": adminID,
		"scope":             scope,
		"_id":               bson.M{"$nin": keep},
	})
	if err != nil {
		return fmt.Errorf("administration_orgs prune: %w", err)
	}
	return nil
}

// OrgDocs returns the denormalized org docs for one scope.
func (s *Store) OrgDocs(ctx context.Context, adminID string, scope models.OrgScope) ([]models.AdministrationOrg, error) {
	cur, err := s.orgs.Find(ctx, bson.M{"administration_id": adminID, "scope": scope})
	if err != nil {
		return nil, err
	}
	var out []models.AdministrationOrg
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OpenIDsForOrgs returns the administration IDs whose assigned-scope org
// docs reference any of the given orgs and whose close date is still in the
// future. Used when a user's enrollment changes. Queries are chunked to
// limits.MaxInQuery IDs per $in clause.
func (s *Store) OpenIDsForOrgs(ctx context.Context, orgs models.OrgRefSet, now time.Time) ([]string, error) {
	idSet := make(map[string]bool)
	for _, kind := range models.OrgKinds {
		ids := orgs.Of(kind)
		for start := 0; start < len(ids); start += limits.MaxInQuery {
			end := start + limits.MaxInQuery
			if end > len(ids) {
				end = len(ids)
			}
			cur, err := s.orgs.Find(ctx, bson.M{
				"scope":               models.ScopeAssigned,
				"org_kind":            kind,
				"org_id":              bson.M{"$in": ids[start:end]},
				"summary.date_closed": bson.M{"$gt": now},
			})
			if err != nil {
				return nil, err
			}
			var docs []models.AdministrationOrg
			if err := cur.All(ctx, &docs); err != nil {
				return nil, err
			}
			for _, d := range docs {
				idSet[d.AdministrationID] = true
			}
		}
	}
	out := make([]string, 0, len(idSet))
	for id := range idSet {
		out = append(out, id)
	}
	return out, nil
}
