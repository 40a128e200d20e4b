package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
)

const (
	notifyChannel = "signup_changes"
	// cursorOverlap re-reads rows whose transaction committed after a newer one.
	cursorOverlap = 5 * time.Second
	batchBuffer   = 16
)

var _ model.ChangeFeed = (*SignupFeed)(nil)

// listenConn is the dedicated connection a subscription waits on.
type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// changeSource reads the collection state a subscription publishes.
type changeSource interface {
	Now(ctx context.Context) (time.Time, error)
	ListActive(ctx context.Context) ([]model.Signup, error)
	ChangedSince(ctx context.Context, since time.Time) ([]model.Change, time.Time, error)
}

// SignupFeed streams the signups collection: a full ordered listing first,
// then deltas whenever the table trigger notifies or the poll interval elapses.
type SignupFeed struct {
	connect      func(ctx context.Context) (listenConn, error)
	source       changeSource
	pollInterval time.Duration
	logger       *logger.Logger
}

// NewSignupFeed creates a feed that listens on a connection taken out of pool.
func NewSignupFeed(pool *pgxpool.Pool, source *SignupRepository, pollInterval time.Duration, logger *logger.Logger) *SignupFeed {
	connect := func(ctx context.Context) (listenConn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return conn.Hijack(), nil
	}
	return newSignupFeed(connect, source, pollInterval, logger)
}

func newSignupFeed(connect func(ctx context.Context) (listenConn, error), source changeSource, pollInterval time.Duration, logger *logger.Logger) *SignupFeed {
	return &SignupFeed{
		connect:      connect,
		source:       source,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Subscribe starts listening and returns once the reset batch is queued.
func (f *SignupFeed) Subscribe(ctx context.Context) (model.Subscription, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	cursor, err := f.source.Now(ctx)
	if err != nil {
		_ = conn.Close(context.Background())
		return nil, err
	}
	signups, err := f.source.ListActive(ctx)
	if err != nil {
		_ = conn.Close(context.Background())
		return nil, err
	}

	reset := model.ChangeBatch{Reset: true, Changes: make([]model.Change, 0, len(signups))}
	for _, s := range signups {
		reset.Changes = append(reset.Changes, model.Change{Kind: model.ChangeUpsert, ID: s.ID, Signup: s})
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		changes: make(chan model.ChangeBatch, batchBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	sub.changes <- reset

	go f.run(subCtx, sub, conn, cursor)

	f.logger.Debug("Signup feed: subscription started", "records", len(signups))
	return sub, nil
}

func (f *SignupFeed) run(ctx context.Context, sub *subscription, conn listenConn, cursor time.Time) {
	defer close(sub.done)
	defer close(sub.changes)
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			f.logger.Warn("Signup feed: failed to close listen connection", "error", err)
		}
	}()

	for {
		waitCtx, cancel := context.WithTimeout(ctx, f.pollInterval)
		_, err := conn.WaitForNotification(waitCtx)
		cancel()

		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !pgconn.Timeout(err) {
			sub.fail(fmt.Errorf("%w: wait for notification: %w", model.ErrStoreUnavailable, err))
			return
		}

		changes, next, err := f.source.ChangedSince(ctx, cursor.Add(-cursorOverlap))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			sub.fail(fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err))
			return
		}
		if next.After(cursor) {
			cursor = next
		}
		if len(changes) == 0 {
			continue
		}

		select {
		case sub.changes <- model.ChangeBatch{Changes: changes}:
		case <-ctx.Done():
			return
		}
	}
}

type subscription struct {
	changes chan model.ChangeBatch
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func (s *subscription) Changes() <-chan model.ChangeBatch {
	return s.changes
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Close stops the subscription and waits for the listener to exit. It is safe
// to call more than once.
func (s *subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}
