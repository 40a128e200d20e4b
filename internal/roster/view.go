package roster

import (
	"sync"

	"github.com/latoalla/roster-server/internal/model"
)

// Source provides the snapshot and status a View reads.
type Source interface {
	Snapshot() *Snapshot
	Status() Status
}

// ProjectionCounter is told about every recomputation.
type ProjectionCounter interface {
	Projected(category model.Category)
}

type memo struct {
	version uint64
	roster  Roster
	ok      bool
}

// View memoizes projections per category and recomputes only when the
// snapshot version moves.
type View struct {
	source  Source
	counter ProjectionCounter

	mu    sync.Mutex
	memos map[model.Category]memo
}

// NewView creates a view over source. counter may be nil.
func NewView(source Source, counter ProjectionCounter) *View {
	return &View{
		source:  source,
		counter: counter,
		memos:   make(map[model.Category]memo),
	}
}

// Roster returns the projection for category, with the mirror staleness attached.
func (v *View) Roster(category model.Category) Roster {
	snap := v.source.Snapshot()
	status := v.source.Status()

	v.mu.Lock()
	m, ok := v.memos[category]
	if !ok || !m.ok || m.version != snap.Version() {
		m = memo{version: snap.Version(), roster: Project(snap, category), ok: true}
		v.memos[category] = m
		if v.counter != nil {
			v.counter.Projected(category)
		}
	}
	v.mu.Unlock()

	roster := m.roster
	roster.Stale = status.Stale
	return roster
}

// Board holds the category one client is looking at.
type Board struct {
	view *View

	mu       sync.Mutex
	selected model.Category
}

// Board creates a selection holder starting at category.
func (v *View) Board(category model.Category) *Board {
	return &Board{view: v, selected: category}
}

// Select switches the selected category.
func (b *Board) Select(category model.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = category
}

// Current returns the roster for the selected category.
func (b *Board) Current() Roster {
	b.mu.Lock()
	category := b.selected
	b.mu.Unlock()
	return b.view.Roster(category)
}

// Selected returns the selected category.
func (b *Board) Selected() model.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}
