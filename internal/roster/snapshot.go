package roster

import (
	"slices"

	"github.com/google/uuid"

	"github.com/latoalla/roster-server/internal/model"
)

// Snapshot is an immutable view of the mirrored collection. Signups keep
// their arrival order.
type Snapshot struct {
	version uint64
	signups []model.Signup
	index   map[uuid.UUID]int
}

var emptySnapshot = &Snapshot{index: map[uuid.UUID]int{}}

func newSnapshot(version uint64, signups []model.Signup) *Snapshot {
	index := make(map[uuid.UUID]int, len(signups))
	for i, s := range signups {
		index[s.ID] = i
	}
	return &Snapshot{version: version, signups: signups, index: index}
}

// NewSnapshot builds a snapshot from signups in the given order. Later
// entries win over earlier ones with the same id.
func NewSnapshot(version uint64, signups []model.Signup) *Snapshot {
	var st state
	st.reset()
	for _, s := range signups {
		st.upsert(s)
	}
	return newSnapshot(version, st.signups)
}

// Version increases with every published change.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of signups.
func (s *Snapshot) Len() int {
	return len(s.signups)
}

// Get returns the signup with the given id.
func (s *Snapshot) Get(id uuid.UUID) (model.Signup, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Signup{}, false
	}
	return s.signups[i], true
}

// Signups returns a copy of the signups in arrival order.
func (s *Snapshot) Signups() []model.Signup {
	return slices.Clone(s.signups)
}

// state is the mutable working copy owned by the mirror goroutine.
type state struct {
	signups []model.Signup
	index   map[uuid.UUID]int
}

func (st *state) reset() {
	st.signups = nil
	st.index = make(map[uuid.UUID]int)
}

func (st *state) load(signups []model.Signup) {
	st.signups = signups
	st.index = make(map[uuid.UUID]int, len(signups))
	for i, s := range signups {
		st.index[s.ID] = i
	}
}

// upsert reports whether the collection changed.
func (st *state) upsert(s model.Signup) bool {
	if i, ok := st.index[s.ID]; ok {
		if st.signups[i].Equal(s) {
			return false
		}
		st.signups[i] = s
		return true
	}
	st.index[s.ID] = len(st.signups)
	st.signups = append(st.signups, s)
	return true
}

// remove reports whether the collection changed.
func (st *state) remove(id uuid.UUID) bool {
	i, ok := st.index[id]
	if !ok {
		return false
	}
	st.signups = slices.Delete(st.signups, i, i+1)
	delete(st.index, id)
	for j := i; j < len(st.signups); j++ {
		st.index[st.signups[j].ID] = j
	}
	return true
}

// apply folds a batch into the state and reports whether anything changed.
func (st *state) apply(batch model.ChangeBatch) (changed bool) {
	if batch.Reset {
		prev := st.signups
		st.reset()
		changed = true
		defer func() {
			if slices.EqualFunc(prev, st.signups, model.Signup.Equal) {
				changed = false
			}
		}()
	}
	for _, c := range batch.Changes {
		switch c.Kind {
		case model.ChangeUpsert:
			if st.upsert(c.Signup) {
				changed = true
			}
		case model.ChangeRemove:
			if st.remove(c.ID) {
				changed = true
			}
		}
	}
	return changed
}

// publishable returns a copy safe to hand to readers.
func (st *state) publishable(version uint64) *Snapshot {
	return newSnapshot(version, slices.Clone(st.signups))
}
