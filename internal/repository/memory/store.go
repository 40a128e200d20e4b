// Package memory provides an in-process signup store with live change
// subscriptions. It backs tests and single-node development runs.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/latoalla/roster-server/internal/model"
)

var (
	_ model.SignupStore  = (*Store)(nil)
	_ model.ChangeFeed   = (*Store)(nil)
	_ model.ProfileStore = Profiles{}
)

const subscriptionBuffer = 64

type row struct {
	signup  model.Signup
	deleted bool
}

// Store keeps signups and profiles in memory and fans every write out to
// open subscriptions in commit order.
type Store struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*row
	order    []uuid.UUID
	profiles map[string]model.Profile
	subs     map[*subscription]struct{}
	writes   int
	now      func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		rows:     make(map[uuid.UUID]*row),
		profiles: make(map[string]model.Profile),
		subs:     make(map[*subscription]struct{}),
		now:      time.Now,
	}
}

// Writes returns the number of successful create, update and delete calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// PutProfile stores a profile.
func (s *Store) PutProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// Seed inserts a signup as-is, bypassing validation, and notifies subscribers.
// It is used to load legacy rows.
func (s *Store) Seed(signup model.Signup) model.Signup {
	s.mu.Lock()
	defer s.mu.Unlock()

	if signup.ID == uuid.Nil {
		signup.ID = uuid.New()
	}
	if signup.CreatedAt.IsZero() {
		signup.CreatedAt = s.now()
	}
	signup.UpdatedAt = signup.CreatedAt
	s.insert(signup)
	return signup
}

func (s *Store) Create(ctx context.Context, signup model.Signup) (model.Signup, error) {
	if err := ctx.Err(); err != nil {
		return model.Signup{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if signup.ID == uuid.Nil {
		signup.ID = uuid.New()
	}
	now := s.now()
	signup.CreatedAt = now
	signup.UpdatedAt = now
	s.insert(signup)
	s.writes++

	return signup, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (model.Signup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok || r.deleted {
		return model.Signup{}, model.ErrNotFound
	}
	return r.signup, nil
}

func (s *Store) ExistsByKey(ctx context.Context, key model.DedupKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows {
		if r.deleted || r.signup.Date != key.Date || r.signup.Category() != key.Category {
			continue
		}
		owner := r.signup.OwnerID
		if key.Field == model.OwnerFieldEmail {
			owner = r.signup.OwnerEmail
		}
		if owner == key.Owner {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateMutable(ctx context.Context, id uuid.UUID, ownerID string, fields model.MutableFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.owned(id, ownerID)
	if err != nil {
		return err
	}
	r.signup.Meals = fields.Meals
	r.signup.Adults = fields.Adults
	r.signup.Children = fields.Children
	r.signup.UpdatedAt = s.now()
	s.writes++
	s.publish(model.ChangeBatch{Changes: []model.Change{{Kind: model.ChangeUpsert, ID: id, Signup: r.signup}}})

	return nil
}

func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.owned(id, ownerID)
	if err != nil {
		return err
	}
	r.deleted = true
	r.signup.UpdatedAt = s.now()
	s.writes++
	s.publish(model.ChangeBatch{Changes: []model.Change{{Kind: model.ChangeRemove, ID: id}}})

	return nil
}

// Profiles returns the profile view of the store.
func (s *Store) Profiles() Profiles {
	return Profiles{store: s}
}

// Profiles reads the profiles held by a Store.
type Profiles struct {
	store *Store
}

func (p Profiles) GetByID(ctx context.Context, ownerID string) (model.Profile, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	profile, ok := p.store.profiles[ownerID]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	return profile, nil
}

// Subscribe opens a subscription whose first batch lists every live signup by date.
func (s *Store) Subscribe(ctx context.Context) (model.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live := make([]model.Signup, 0, len(s.order))
	for _, id := range s.order {
		if r := s.rows[id]; !r.deleted {
			live = append(live, r.signup)
		}
	}
	slices.SortStableFunc(live, func(a, b model.Signup) int {
		return cmp.Compare(a.Date, b.Date)
	})

	reset := model.ChangeBatch{Reset: true, Changes: make([]model.Change, 0, len(live))}
	for _, signup := range live {
		reset.Changes = append(reset.Changes, model.Change{Kind: model.ChangeUpsert, ID: signup.ID, Signup: signup})
	}

	sub := &subscription{store: s, changes: make(chan model.ChangeBatch, subscriptionBuffer)}
	sub.changes <- reset
	s.subs[sub] = struct{}{}

	return sub, nil
}

// Disconnect ends every open subscription with err.
func (s *Store) Disconnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		sub.err = err
		s.drop(sub)
	}
}

func (s *Store) insert(signup model.Signup) {
	s.rows[signup.ID] = &row{signup: signup}
	s.order = append(s.order, signup.ID)
	s.publish(model.ChangeBatch{Changes: []model.Change{{Kind: model.ChangeUpsert, ID: signup.ID, Signup: signup}}})
}

func (s *Store) owned(id uuid.UUID, ownerID string) (*row, error) {
	r, ok := s.rows[id]
	if !ok || r.deleted {
		return nil, model.ErrNotFound
	}
	if r.signup.OwnerID == "" || r.signup.OwnerID != ownerID {
		return nil, model.ErrForbidden
	}
	return r, nil
}

// publish must be called with s.mu held. A subscriber that cannot keep up is
// disconnected rather than allowed to miss a batch.
func (s *Store) publish(batch model.ChangeBatch) {
	for sub := range s.subs {
		select {
		case sub.changes <- batch:
		default:
			sub.err = model.ErrStoreUnavailable
			s.drop(sub)
		}
	}
}

func (s *Store) drop(sub *subscription) {
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.changes)
}

type subscription struct {
	store   *Store
	changes chan model.ChangeBatch
	err     error
}

func (sub *subscription) Changes() <-chan model.ChangeBatch {
	return sub.changes
}

func (sub *subscription) Err() error {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	return sub.err
}

func (sub *subscription) Close() error {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	sub.store.drop(sub)
	return nil
}
