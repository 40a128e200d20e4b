// Package roster keeps a live local copy of the signup collection and
// projects it into date-grouped, per-category rosters.
package roster

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
)

// ErrSubscriptionClosed is recorded when a subscription ends without an error.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Status describes the health of the mirror.
type Status struct {
	// Synced is true once the first snapshot has been published.
	Synced bool
	// Stale is true while the subscription is broken. The last good snapshot
	// is still served.
	Stale bool
	Err   error
}

// Observer receives mirror events. Calls are made from the mirror goroutine.
type Observer interface {
	SnapshotPublished(version uint64, records int)
	StatusChanged(status Status)
}

type nopObserver struct{}

func (nopObserver) SnapshotPublished(uint64, int) {}
func (nopObserver) StatusChanged(Status)          {}

// MirrorConfig tunes resubscription backoff.
type MirrorConfig struct {
	RetryBase time.Duration
	RetryMax  time.Duration
}

// Mirror consumes a change feed and publishes immutable snapshots.
type Mirror struct {
	feed     model.ChangeFeed
	cfg      MirrorConfig
	logger   *logger.Logger
	observer Observer

	snapshot atomic.Pointer[Snapshot]

	statusMu sync.RWMutex
	status   Status

	listenersMu sync.Mutex
	listeners   map[chan struct{}]struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithObserver attaches an observer.
func WithObserver(o Observer) MirrorOption {
	return func(m *Mirror) {
		m.observer = o
	}
}

// NewMirror creates a mirror over feed. Nothing happens until Start.
func NewMirror(feed model.ChangeFeed, cfg MirrorConfig, logger *logger.Logger, opts ...MirrorOption) *Mirror {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMax < cfg.RetryBase {
		cfg.RetryMax = cfg.RetryBase
	}
	m := &Mirror{
		feed:      feed,
		cfg:       cfg,
		logger:    logger,
		observer:  nopObserver{},
		listeners: make(map[chan struct{}]struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.snapshot.Store(emptySnapshot)
	return m
}

// Start launches the mirror goroutine. Subsequent calls do nothing.
func (m *Mirror) Start(ctx context.Context) error {
	started := false
	m.startOnce.Do(func() {
		ctx, m.cancel = context.WithCancel(ctx)
		go m.run(ctx)
		started = true
	})
	if !started {
		return errors.New("mirror already started")
	}
	return nil
}

// Stop tears down the subscription and waits for the goroutine to exit.
// It is safe to call more than once, and before Start.
func (m *Mirror) Stop() {
	m.stopOnce.Do(func() {
		m.startOnce.Do(func() {
			close(m.done)
		})
		if m.cancel != nil {
			m.cancel()
		}
		<-m.done
	})
}

// Snapshot returns the latest published snapshot. It never returns nil.
func (m *Mirror) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

// Status returns the current mirror status.
func (m *Mirror) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

// Notify returns a channel that receives a value after every publish or
// status change. Notifications coalesce. The returned func unregisters.
func (m *Mirror) Notify() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.listenersMu.Lock()
	m.listeners[ch] = struct{}{}
	m.listenersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, ch)
			m.listenersMu.Unlock()
		})
	}
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)

	for {
		sub, err := m.subscribe(ctx)
		if err != nil {
			return
		}

		err = m.consume(ctx, sub)
		if cerr := sub.Close(); cerr != nil {
			m.logger.Warn("Roster mirror: failed to close subscription", "error", cerr)
		}
		if ctx.Err() != nil {
			return
		}

		m.markStale(err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.RetryBase):
		}
	}
}

// subscribe retries until a subscription opens or ctx is done.
func (m *Mirror) subscribe(ctx context.Context) (model.Subscription, error) {
	var sub model.Subscription
	backoff := retry.WithCappedDuration(m.cfg.RetryMax, retry.NewExponential(m.cfg.RetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := m.feed.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			m.logger.Warn("Roster mirror: subscribe failed", "error", err)
			m.markStale(err)
			return retry.RetryableError(err)
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// consume applies batches until the subscription ends and returns the reason.
func (m *Mirror) consume(ctx context.Context, sub model.Subscription) error {
	var st state
	first := true

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-sub.Changes():
			if !ok {
				if err := sub.Err(); err != nil {
					return err
				}
				return ErrSubscriptionClosed
			}

			if first {
				// The working copy starts from the current snapshot so that a
				// reset identical to it does not bump the version.
				st.load(m.Snapshot().Signups())
			}

			changed := st.apply(batch)
			if changed {
				m.publish(&st)
			}
			if first {
				first = false
				m.markSynced()
			}
		}
	}
}

func (m *Mirror) publish(st *state) {
	version := m.Snapshot().Version() + 1
	snap := st.publishable(version)
	m.snapshot.Store(snap)
	m.observer.SnapshotPublished(version, snap.Len())
	m.logger.Debug("Roster mirror: snapshot published", "version", version, "records", snap.Len())
	m.broadcast()
}

func (m *Mirror) markSynced() {
	m.statusMu.Lock()
	changed := !m.status.Synced || m.status.Stale
	m.status = Status{Synced: true}
	status := m.status
	m.statusMu.Unlock()

	if changed {
		m.logger.Info("Roster mirror: synchronized", "version", m.Snapshot().Version())
		m.observer.StatusChanged(status)
		m.broadcast()
	}
}

func (m *Mirror) markStale(err error) {
	m.statusMu.Lock()
	wasStale := m.status.Stale
	m.status.Stale = true
	m.status.Err = err
	status := m.status
	m.statusMu.Unlock()

	if !wasStale {
		m.logger.Error("Roster mirror: subscription lost, serving last snapshot", "error", err)
		m.observer.StatusChanged(status)
		m.broadcast()
	}
}

func (m *Mirror) broadcast() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	for ch := range m.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
