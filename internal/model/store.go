package model

import (
	"context"

	"github.com/google/uuid"
)

// SignupStore defines persistence operations for signups.
type SignupStore interface {
	Create(ctx context.Context, signup Signup) (Signup, error)
	GetByID(ctx context.Context, id uuid.UUID) (Signup, error)
	ExistsByKey(ctx context.Context, key DedupKey) (bool, error)
	// UpdateMutable writes the mutable fields of a signup owned by ownerID.
	// It returns ErrForbidden when the row exists but belongs to someone else.
	UpdateMutable(ctx context.Context, id uuid.UUID, ownerID string, fields MutableFields) error
	// SoftDelete removes a signup owned by ownerID.
	SoftDelete(ctx context.Context, id uuid.UUID, ownerID string) error
}

// ChangeFeed opens standing subscriptions over the whole signup collection.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription delivers change batches until it fails or is closed.
// The first batch is a reset batch holding the full collection ordered by date.
type Subscription interface {
	Changes() <-chan ChangeBatch
	// Err returns the error that ended the subscription, if any.
	Err() error
	Close() error
}

// ChangeKind enumerates change notification kinds.
type ChangeKind int

const (
	// ChangeUpsert inserts or replaces a signup.
	ChangeUpsert ChangeKind = iota
	// ChangeRemove drops a signup.
	ChangeRemove
)

// Change is a single notification for one signup.
type Change struct {
	Kind   ChangeKind
	ID     uuid.UUID
	Signup Signup
}

// ChangeBatch groups changes delivered together.
// A reset batch replaces the whole collection.
type ChangeBatch struct {
	Reset   bool
	Changes []Change
}

// ProfileStore reads user profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, ownerID string) (Profile, error)
}

// Profile is the user profile document.
type Profile struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
}
