package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/roster"
)

// SnapshotSource returns the latest mirrored snapshot.
type SnapshotSource interface {
	Snapshot() *roster.Snapshot
}

// EditBuffer is the pending, uncommitted state of one signup.
type EditBuffer struct {
	ID     uuid.UUID
	Fields model.MutableFields
	// BaseVersion is the snapshot version the buffer was seeded from.
	BaseVersion uint64
	// RemoteVersion is the last snapshot version in which the stored record
	// differed from the buffer's seed. Zero when no remote change was seen.
	RemoteVersion uint64
	base          model.MutableFields
}

// Editor holds the edit buffers of one identity. Buffers are never
// overwritten by remote changes.
type Editor struct {
	identity model.Identity
	store    model.SignupStore
	source   SnapshotSource
	logger   *logger.Logger

	mu      sync.Mutex
	buffers map[uuid.UUID]*EditBuffer
}

func NewEditor(identity model.Identity, store model.SignupStore, source SnapshotSource, logger *logger.Logger) *Editor {
	return &Editor{
		identity: identity,
		store:    store,
		source:   source,
		logger:   logger,
		buffers:  make(map[uuid.UUID]*EditBuffer),
	}
}

// BeginEdit seeds a buffer from the mirrored record. An existing buffer for
// the same id is returned unchanged.
func (e *Editor) BeginEdit(id uuid.UUID) (EditBuffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if buf, ok := e.buffers[id]; ok {
		return *buf, nil
	}

	snap := e.source.Snapshot()
	record, err := e.owned(snap, id)
	if err != nil {
		return EditBuffer{}, err
	}

	buf := &EditBuffer{
		ID:          id,
		Fields:      record.Mutable(),
		BaseVersion: snap.Version(),
		base:        record.Mutable(),
	}
	e.buffers[id] = buf
	return *buf, nil
}

// UpdateField changes one buffered field. Meal fields take a boolean, party
// sizes a non-negative integer.
func (e *Editor) UpdateField(id uuid.UUID, field, value string) (EditBuffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf, ok := e.buffers[id]
	if !ok {
		return EditBuffer{}, model.ErrNotEditing
	}

	fields := buf.Fields
	switch field {
	case model.FieldMealLunch, model.FieldMealMidday, model.FieldMealDinner:
		on, err := strconv.ParseBool(value)
		if err != nil {
			return EditBuffer{}, model.NewValidationError(field, "must be true or false")
		}
		switch field {
		case model.FieldMealLunch:
			fields.Meals.Lunch = on
		case model.FieldMealMidday:
			fields.Meals.Midday = on
		case model.FieldMealDinner:
			fields.Meals.Dinner = on
		}
	case model.FieldAdults, model.FieldChildren:
		n, err := strconv.Atoi(value)
		if err != nil {
			return EditBuffer{}, model.NewValidationError(field, "must be a whole number")
		}
		if n < 0 {
			return EditBuffer{}, model.NewValidationError(field, "must not be negative")
		}
		if field == model.FieldAdults {
			fields.Adults = n
		} else {
			fields.Children = n
		}
	default:
		return EditBuffer{}, model.NewValidationError(field, "is not editable")
	}

	buf.Fields = fields
	return *buf, nil
}

// Buffer returns the pending buffer for id.
func (e *Editor) Buffer(id uuid.UUID) (EditBuffer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf, ok := e.buffers[id]
	if !ok {
		return EditBuffer{}, false
	}
	return *buf, true
}

// Commit writes the buffered fields and clears the buffer. Only the owner of
// the record may commit; anyone else gets model.ErrForbidden and nothing is
// written. A failed write keeps the buffer.
func (e *Editor) Commit(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.owned(e.source.Snapshot(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			delete(e.buffers, id)
		}
		return err
	}

	buf, ok := e.buffers[id]
	if !ok {
		return model.ErrNotEditing
	}

	err := e.store.UpdateMutable(context.WithoutCancel(ctx), id, e.identity.OwnerID, buf.Fields)
	if err != nil {
		if errors.Is(err, model.ErrForbidden) || errors.Is(err, model.ErrNotFound) {
			return err
		}
		e.logger.Error("Editor: failed to commit signup",
			"id", id,
			"owner_id", e.identity.OwnerID,
			"error", err.Error())
		return fmt.Errorf("%w: update signup: %w", model.ErrStoreUnavailable, err)
	}

	delete(e.buffers, id)
	e.logger.Info("Editor: signup updated", "id", id, "owner_id", e.identity.OwnerID)
	return nil
}

// Cancel discards the buffer for id.
func (e *Editor) Cancel(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.buffers, id)
}

// Delete removes a signup owned by the identity.
func (e *Editor) Delete(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.owned(e.source.Snapshot(), id); err != nil {
		return err
	}

	err := e.store.SoftDelete(context.WithoutCancel(ctx), id, e.identity.OwnerID)
	if err != nil {
		if errors.Is(err, model.ErrForbidden) || errors.Is(err, model.ErrNotFound) {
			return err
		}
		e.logger.Error("Editor: failed to delete signup",
			"id", id,
			"owner_id", e.identity.OwnerID,
			"error", err.Error())
		return fmt.Errorf("%w: delete signup: %w", model.ErrStoreUnavailable, err)
	}

	delete(e.buffers, id)
	e.logger.Info("Editor: signup deleted", "id", id, "owner_id", e.identity.OwnerID)
	return nil
}

// Reconcile drops buffers whose record left the snapshot and notes remote
// changes to the others. Buffered values are kept.
func (e *Editor) Reconcile(snap *roster.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, buf := range e.buffers {
		record, ok := snap.Get(id)
		if !ok {
			e.logger.Info("Editor: signup removed while editing", "id", id)
			delete(e.buffers, id)
			continue
		}
		if record.Mutable() != buf.base && snap.Version() > buf.RemoteVersion {
			buf.RemoteVersion = snap.Version()
			e.logger.Debug("Editor: signup changed remotely while editing",
				"id", id,
				"version", snap.Version())
		}
	}
}

// Pending returns the number of open buffers.
func (e *Editor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffers)
}

func (e *Editor) owned(snap *roster.Snapshot, id uuid.UUID) (model.Signup, error) {
	record, ok := snap.Get(id)
	if !ok {
		return model.Signup{}, model.ErrNotFound
	}
	if !record.OwnedBy(e.identity) {
		return model.Signup{}, model.ErrForbidden
	}
	return record, nil
}

// Editors hands out one Editor per identity and reconciles them all when
// the mirror publishes.
type Editors struct {
	store  model.SignupStore
	source SnapshotSource
	logger *logger.Logger

	mu      sync.Mutex
	editors map[string]*Editor
}

func NewEditors(store model.SignupStore, source SnapshotSource, logger *logger.Logger) *Editors {
	return &Editors{
		store:   store,
		source:  source,
		logger:  logger,
		editors: make(map[string]*Editor),
	}
}

// For returns the editor of identity, creating it on first use.
func (e *Editors) For(identity model.Identity) *Editor {
	key := identity.OwnerID
	if key == "" {
		key = "email:" + identity.OwnerEmail
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ed, ok := e.editors[key]
	if !ok {
		ed = NewEditor(identity, e.store, e.source, e.logger)
		e.editors[key] = ed
	}
	return ed
}

// Reconcile reconciles every editor against snap.
func (e *Editors) Reconcile(snap *roster.Snapshot) {
	e.mu.Lock()
	editors := make([]*Editor, 0, len(e.editors))
	for _, ed := range e.editors {
		editors = append(editors, ed)
	}
	e.mu.Unlock()

	for _, ed := range editors {
		ed.Reconcile(snap)
	}
}

// Run reconciles on every notification until ctx is done.
func (e *Editors) Run(ctx context.Context, notify <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			e.Reconcile(e.source.Snapshot())
		}
	}
}
