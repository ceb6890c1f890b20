// internal/app/sync/engine/engine.go

// Package engine drives assignment synchronization.
//
// Administration writes resolve the assigned org set to its derived
// closures, rewrite the denormalized administration_orgs docs, and fan out
// per-org-chunk sync tasks through the queue. Task workers expand a chunk to
// its member users and reconcile each one; user enrollment writes reconcile
// that single user against every administration the change could affect.
// Every path funnels into reconcile.Decide, so redelivered tasks and
// overlapping triggers converge on the same state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	adminstore "github.com/dalemusser/cohorthub/internal/app/store/administrations"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	userstore "github.com/dalemusser/cohorthub/internal/app/store/users"
	"github.com/dalemusser/cohorthub/internal/app/sync/orggraph"
	"github.com/dalemusser/cohorthub/internal/app/sync/reconcile"
	"github.com/dalemusser/cohorthub/internal/app/system/changes"
	"github.com/dalemusser/cohorthub/internal/app/system/limits"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/queue"
	"github.com/dalemusser/cohorthub/internal/app/system/txn"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Engine wires the resolver, reconciler, stores, and queue together.
type Engine struct {
	client      *mongo.Client
	admins      *adminstore.Store
	users       *userstore.Store
	assignments *assignmentstore.Store
	resolver    *orggraph.Resolver
	queue       *queue.Queue
	rec         *reconcile.Reconciler
	policy      queue.RetryPolicy
	log         *zap.Logger

	// restrictToOpen limits enrollment-triggered reconciliation to
	// administrations whose close date has not passed; closed ones keep the
	// assignments they have.
	restrictToOpen bool

	chunkSize int
}

// Options tune the engine beyond its wiring.
type Options struct {
	RestrictToOpen bool
	ChunkSize      int // org refs per fan-out task; defaults to limits.OrgChunkSize
	Retry          queue.RetryPolicy
}

func New(client *mongo.Client, admins *adminstore.Store, users *userstore.Store,
	assignments *assignmentstore.Store, resolver *orggraph.Resolver, q *queue.Queue,
	rec *reconcile.Reconciler, opts Options, log *zap.Logger) *Engine {

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = limits.OrgChunkSize
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = queue.DefaultRetryPolicy
	}
	return &Engine{
		client:         client,
		admins:         admins,
		users:          users,
		assignments:    assignments,
		resolver:       resolver,
		queue:          q,
		rec:            rec,
		policy:         opts.Retry,
		log:            log,
		restrictToOpen: opts.RestrictToOpen,
		chunkSize:      opts.ChunkSize,
	}
}

// HandleAdministrationWrite is the administrations change-stream handler.
func (e *Engine) HandleAdministrationWrite(ctx context.Context, ev changes.Event[models.Administration]) error {
	defer metrics.ObserveHandler("administrations", time.Now())

	switch ev.Kind() {
	case changes.Deleted:
		return e.handleAdministrationDeleted(ctx, *ev.Previous)
	case changes.Updated:
		if models.OnlyDerivedChanged(*ev.Previous, *ev.Current) {
			return nil
		}
		return e.syncAdministration(ctx, *ev.Current, models.SyncModeUpdate)
	default:
		return e.syncAdministration(ctx, *ev.Current, models.SyncModeAdd)
	}
}

// syncAdministration derives the org closures, rewrites the denormalized
// docs, and enqueues per-chunk fan-out tasks. In update mode the fan-out
// additionally covers orgs removed from the administration, so their users'
// assignments get reconciled away.
func (e *Engine) syncAdministration(ctx context.Context, admin models.Administration, mode string) error {
	prevDocs, err := e.admins.OrgDocs(ctx, admin.ID, models.ScopeAssigned)
	if err != nil {
		return fmt.Errorf("previous org docs: %w", err)
	}
	var prevExhaustive models.OrgRefSet
	for _, d := range prevDocs {
		prevExhaustive.Add(d.OrgKind, d.OrgID)
	}

	orgs, err := e.resolver.OnlyExisting(ctx, admin.Orgs)
	if err != nil {
		return fmt.Errorf("filter orgs: %w", err)
	}
	minimal, err := e.resolver.Minimal(ctx, orgs)
	if err != nil {
		return fmt.Errorf("minimal orgs: %w", err)
	}
	exhaustive, err := e.resolver.Exhaustive(ctx, minimal, false)
	if err != nil {
		return fmt.Errorf("exhaustive orgs: %w", err)
	}
	read, err := e.resolver.Read(ctx, exhaustive)
	if err != nil {
		return fmt.Errorf("read orgs: %w", err)
	}

	summary := models.SummaryOf(admin)
	if err := e.admins.ReplaceOrgDocs(ctx, admin.ID, models.ScopeAssigned, exhaustive, summary); err != nil {
		return err
	}
	if err := e.admins.ReplaceOrgDocs(ctx, admin.ID, models.ScopeRead, read, summary); err != nil {
		return err
	}
	if err := e.admins.SetDerived(ctx, admin.ID, minimal); err != nil {
		return fmt.Errorf("set derived orgs: %w", err)
	}

	fanout := minimal
	if mode == models.SyncModeUpdate {
		fanout = fanout.Union(prevExhaustive.Subtract(exhaustive))
	}

	admin.MinimalOrgs = minimal
	chunks := fanout.Chunk(e.chunkSize)
	for _, chunk := range chunks {
		task := models.SyncTask{
			AdministrationID: admin.ID,
			Administration:   admin,
			OrgChunk:         chunk,
			Mode:             mode,
		}
		if err := e.queue.Enqueue(ctx, task, e.policy); err != nil {
			return fmt.Errorf("enqueue sync task: %w", err)
		}
	}

	e.log.Info("administration sync dispatched",
		zap.String("administration_id", admin.ID),
		zap.String("mode", mode),
		zap.Int("minimal_orgs", minimal.Len()),
		zap.Int("exhaustive_orgs", exhaustive.Len()),
		zap.Int("tasks", len(chunks)))
	return nil
}

// handleAdministrationDeleted removes every assignment and denormalized doc
// for the administration. Assignments are deleted by a direct query on
// administration_id rather than an org walk, so users who have since left
// the orgs are still reached.
func (e *Engine) handleAdministrationDeleted(ctx context.Context, prev models.Administration) error {
	ids, err := e.assignments.IDsByAdministration(ctx, prev.ID)
	if err != nil {
		return err
	}
	for start := 0; start < len(ids); start += limits.MaxTxnWrites {
		end := start + limits.MaxTxnWrites
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		err := e.reconcileTxn(ctx, func(sc context.Context) ([]assignmentstore.Mutation, error) {
			muts := make([]assignmentstore.Mutation, len(chunk))
			for i, id := range chunk {
				muts[i] = assignmentstore.Mutation{Delete: id}
			}
			return muts, nil
		})
		if err != nil {
			return err
		}
	}
	if err := e.admins.DeleteOrgDocs(ctx, prev.ID); err != nil {
		return err
	}
	e.log.Info("administration deleted, assignments removed",
		zap.String("administration_id", prev.ID),
		zap.Int("assignments", len(ids)))
	return nil
}

// ProcessTask is the queue handler: reconcile every user reachable from the
// task's org chunk against the administration. Safe to redeliver.
func (e *Engine) ProcessTask(ctx context.Context, task models.SyncTask) error {
	admin, err := e.admins.GetByID(ctx, task.AdministrationID)
	if err != nil {
		if errors.Is(err, adminstore.ErrNotFound) {
			// Deleted since enqueue; the delete handler owns the cleanup.
			return nil
		}
		return err
	}

	orgs, err := e.resolver.OnlyExisting(ctx, admin.Orgs)
	if err != nil {
		return err
	}
	exhaustive, err := e.resolver.Exhaustive(ctx, orgs, false)
	if err != nil {
		return err
	}
	// The chunk closure expands through archived orgs too: users assigned
	// through an org archived after the fact still need their removal
	// processed.
	chunkClosure, err := e.resolver.Exhaustive(ctx, task.OrgChunk, true)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	users := 0
	var batch []models.User

	// Each batch reads and writes its assignments inside one transaction; a
	// run completing between the read and the write conflicts and the retry
	// sees it.
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		group := batch
		batch = nil
		return e.reconcileTxn(ctx, func(sc context.Context) ([]assignmentstore.Mutation, error) {
			var muts []assignmentstore.Mutation
			for i := range group {
				mut, err := e.reconcileUser(sc, group[i], admin, exhaustive, now)
				if err != nil {
					return nil, err
				}
				if mut != nil {
					muts = append(muts, *mut)
				}
			}
			return muts, nil
		})
	}

	err = e.users.ForEachInOrgs(ctx, chunkClosure, func(u models.User) error {
		users++
		batch = append(batch, u)
		if len(batch) >= limits.MaxTxnWrites {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	metrics.FanoutChunkUsers.Observe(float64(users))
	e.log.Debug("sync task processed",
		zap.String("administration_id", task.AdministrationID),
		zap.String("mode", task.Mode),
		zap.Int("users", users))
	return nil
}

// reconcileUser runs one user through the reconciler and converts the
// decision into a pending mutation, or nil for no-op. Callers invoke it
// with the session context of the transaction that will commit the
// mutation, so the assignment read joins that transaction.
func (e *Engine) reconcileUser(ctx context.Context, u models.User, admin models.Administration, exhaustive models.OrgRefSet, now time.Time) (*assignmentstore.Mutation, error) {
	assigning := u.CurrentOrgs().Intersect(exhaustive)
	var read models.OrgRefSet
	if !assigning.IsEmpty() {
		var err error
		read, err = e.resolver.Read(ctx, assigning)
		if err != nil {
			return nil, err
		}
	}

	var existing *models.Assignment
	a, err := e.assignments.Get(ctx, u.ID, admin.ID)
	switch {
	case err == nil:
		existing = &a
	case errors.Is(err, assignmentstore.ErrNotFound):
	default:
		return nil, err
	}

	d := e.rec.Decide(existing, u, admin, assigning, read, now)
	switch d.Action {
	case reconcile.ActionUpsert:
		a := d.Assignment
		return &assignmentstore.Mutation{Upsert: &a}, nil
	case reconcile.ActionDelete:
		return &assignmentstore.Mutation{Delete: d.ID}, nil
	}
	return nil, nil
}

// reconcileTxn runs fn inside one transaction and commits the assignment
// writes it returns. fn reads every document it decides on through the
// session context, so a concurrent write (a run completing, say) conflicts
// with the transaction and the retry re-reads the fresh document instead of
// overwriting it.
func (e *Engine) reconcileTxn(ctx context.Context, fn func(sc context.Context) ([]assignmentstore.Mutation, error)) error {
	var applied []assignmentstore.Mutation
	err := txn.Run(ctx, e.client, e.log, func(sc context.Context) error {
		muts, err := fn(sc)
		if err != nil {
			return err
		}
		applied = muts
		if len(muts) == 0 {
			return nil
		}
		return e.assignments.ApplyBatch(sc, muts)
	})
	if err != nil {
		return err
	}
	for _, m := range applied {
		if m.Upsert != nil {
			metrics.AssignmentWritesTotal.WithLabelValues("upsert").Inc()
		} else {
			metrics.AssignmentWritesTotal.WithLabelValues("delete").Inc()
		}
	}
	return nil
}

// HandleUserWrite is the users change-stream handler: a single user's
// enrollment or profile change re-reconciles that user against every
// administration it could affect.
func (e *Engine) HandleUserWrite(ctx context.Context, ev changes.Event[models.User]) error {
	defer metrics.ObserveHandler("users", time.Now())
	now := time.Now().UTC()

	if ev.Kind() == changes.Deleted || (ev.Current != nil && ev.Current.Archived) {
		u := ev.Previous
		if u == nil {
			u = ev.Current
		}
		return e.retireUser(ctx, *u, now)
	}

	cur := *ev.Current
	var prevOrgs models.OrgRefSet
	profileChanged := true
	if ev.Previous != nil {
		prevOrgs = ev.Previous.CurrentOrgs()
		p, c := models.SnapshotOf(*ev.Previous), models.SnapshotOf(cur)
		profileChanged = p.UserType != c.UserType || p.Name != c.Name || p.Grade != c.Grade ||
			p.BirthMonth != c.BirthMonth || p.BirthYear != c.BirthYear
	}
	curOrgs := cur.CurrentOrgs()
	added := curOrgs.Subtract(prevOrgs)
	removed := prevOrgs.Subtract(curOrgs)

	if added.IsEmpty() && removed.IsEmpty() && !profileChanged {
		return nil
	}

	// Candidate administrations come from two directions: open ones assigned
	// to any org the change touched, and ones the user already holds an
	// assignment for.
	touched := added.Union(removed)
	if profileChanged {
		touched = touched.Union(curOrgs)
	}
	adminIDs := make(map[string]bool)
	if !touched.IsEmpty() {
		ids, err := e.admins.OpenIDsForOrgs(ctx, touched, now)
		if err != nil {
			return err
		}
		for _, id := range ids {
			adminIDs[id] = true
		}
	}
	held, err := e.assignments.ForUser(ctx, cur.ID, e.restrictToOpen, now)
	if err != nil {
		return err
	}
	for _, a := range held {
		adminIDs[a.AdministrationID] = true
	}

	type candidate struct {
		admin      models.Administration
		exhaustive models.OrgRefSet
	}
	var cands []candidate
	for adminID := range adminIDs {
		admin, err := e.admins.GetByID(ctx, adminID)
		if err != nil {
			if errors.Is(err, adminstore.ErrNotFound) {
				continue
			}
			return err
		}
		if e.restrictToOpen && !admin.DateClosed.After(now) {
			continue
		}
		orgs, err := e.resolver.OnlyExisting(ctx, admin.Orgs)
		if err != nil {
			return err
		}
		exhaustive, err := e.resolver.Exhaustive(ctx, orgs, false)
		if err != nil {
			return err
		}
		cands = append(cands, candidate{admin: admin, exhaustive: exhaustive})
	}
	if len(cands) == 0 {
		return nil
	}

	return e.reconcileTxn(ctx, func(sc context.Context) ([]assignmentstore.Mutation, error) {
		var muts []assignmentstore.Mutation
		for _, c := range cands {
			mut, err := e.reconcileUser(sc, cur, c.admin, c.exhaustive, now)
			if err != nil {
				return nil, err
			}
			if mut != nil {
				muts = append(muts, *mut)
			}
		}
		return muts, nil
	})
}

// retireUser applies the ineligibility policy to every assignment of a
// deleted or archived user.
func (e *Engine) retireUser(ctx context.Context, u models.User, now time.Time) error {
	retired := 0
	err := e.reconcileTxn(ctx, func(sc context.Context) ([]assignmentstore.Mutation, error) {
		held, err := e.assignments.ForUser(sc, u.ID, false, now)
		if err != nil {
			return nil, err
		}
		var muts []assignmentstore.Mutation
		for i := range held {
			d := e.rec.Decide(&held[i], u, models.Administration{}, models.OrgRefSet{}, models.OrgRefSet{}, now)
			switch d.Action {
			case reconcile.ActionUpsert:
				a := d.Assignment
				muts = append(muts, assignmentstore.Mutation{Upsert: &a})
			case reconcile.ActionDelete:
				muts = append(muts, assignmentstore.Mutation{Delete: d.ID})
			}
		}
		retired = len(muts)
		return muts, nil
	})
	if err != nil {
		return err
	}
	if retired > 0 {
		e.log.Info("user retired, assignments reconciled",
			zap.String("user_id", u.ID),
			zap.Int("assignments", retired))
	}
	return nil
}
