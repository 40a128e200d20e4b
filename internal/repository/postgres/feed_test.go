package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/testutil"
)

type fakeListenConn struct {
	notifications chan *pgconn.Notification
	failures      chan error
	execErr       error

	mu     sync.Mutex
	closed int
	execs  []string
}

func newFakeListenConn() *fakeListenConn {
	return &fakeListenConn{
		notifications: make(chan *pgconn.Notification, 4),
		failures:      make(chan error, 1),
	}
}

func (c *fakeListenConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return pgconn.NewCommandTag("LISTEN"), c.execErr
}

func (c *fakeListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case n := <-c.notifications:
		return n, nil
	case err := <-c.failures:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeListenConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeListenConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeChangeSource struct {
	now    time.Time
	active []model.Signup

	mu     sync.Mutex
	deltas [][]model.Change
	since  []time.Time
}

func (s *fakeChangeSource) Now(context.Context) (time.Time, error) {
	return s.now, nil
}

func (s *fakeChangeSource) ListActive(context.Context) ([]model.Signup, error) {
	return s.active, nil
}

func (s *fakeChangeSource) ChangedSince(_ context.Context, since time.Time) ([]model.Change, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = append(s.since, since)
	if len(s.deltas) == 0 {
		return nil, since, nil
	}
	next := s.deltas[0]
	s.deltas = s.deltas[1:]
	return next, s.now.Add(time.Minute), nil
}

func newTestFeed(conn *fakeListenConn, source changeSource, poll time.Duration) *SignupFeed {
	connect := func(context.Context) (listenConn, error) { return conn, nil }
	return newSignupFeed(connect, source, poll, testutil.MakeNoopLogger())
}

func receive(t *testing.T, sub model.Subscription) model.ChangeBatch {
	t.Helper()
	select {
	case batch, ok := <-sub.Changes():
		require.True(t, ok, "subscription closed")
		return batch
	case <-time.After(time.Second):
		t.Fatal("no batch")
		return model.ChangeBatch{}
	}
}

func TestSignupFeed_ResetThenDelta(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	first := model.Signup{ID: uuid.New(), Date: "2025-07-25"}
	second := model.Signup{ID: uuid.New(), Date: "2025-07-26"}

	conn := newFakeListenConn()
	source := &fakeChangeSource{
		now:    now,
		active: []model.Signup{first},
		deltas: [][]model.Change{{{Kind: model.ChangeUpsert, ID: second.ID, Signup: second}}},
	}

	sub, err := newTestFeed(conn, source, time.Hour).Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	reset := receive(t, sub)
	assert.True(t, reset.Reset)
	require.Len(t, reset.Changes, 1)
	assert.Equal(t, first.ID, reset.Changes[0].ID)

	conn.notifications <- &pgconn.Notification{Channel: notifyChannel, Payload: second.ID.String()}

	delta := receive(t, sub)
	assert.False(t, delta.Reset)
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, second.ID, delta.Changes[0].ID)

	source.mu.Lock()
	assert.Equal(t, now.Add(-cursorOverlap), source.since[0])
	source.mu.Unlock()

	conn.mu.Lock()
	assert.Equal(t, []string{"LISTEN " + notifyChannel}, conn.execs)
	conn.mu.Unlock()
}

func TestSignupFeed_PollsWithoutNotification(t *testing.T) {
	changed := model.Signup{ID: uuid.New()}
	conn := newFakeListenConn()
	source := &fakeChangeSource{
		now:    time.Now(),
		deltas: [][]model.Change{{{Kind: model.ChangeRemove, ID: changed.ID}}},
	}

	sub, err := newTestFeed(conn, source, 10*time.Millisecond).Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	receive(t, sub)
	delta := receive(t, sub)
	assert.Equal(t, []model.Change{{Kind: model.ChangeRemove, ID: changed.ID}}, delta.Changes)
}

func TestSignupFeed_ConnectionLoss(t *testing.T) {
	conn := newFakeListenConn()
	sub, err := newTestFeed(conn, &fakeChangeSource{now: time.Now()}, time.Hour).Subscribe(context.Background())
	require.NoError(t, err)

	receive(t, sub)
	conn.failures <- assert.AnError

	select {
	case _, ok := <-sub.Changes():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription did not end")
	}

	assert.ErrorIs(t, sub.Err(), model.ErrStoreUnavailable)
	assert.ErrorIs(t, sub.Err(), assert.AnError)
	assert.Equal(t, 1, conn.closeCount())
	assert.NoError(t, sub.Close())
}

func TestSignupFeed_ListenFailure(t *testing.T) {
	conn := newFakeListenConn()
	conn.execErr = assert.AnError

	_, err := newTestFeed(conn, &fakeChangeSource{}, time.Hour).Subscribe(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, conn.closeCount())
}

func TestSignupFeed_CloseIsIdempotent(t *testing.T) {
	conn := newFakeListenConn()
	sub, err := newTestFeed(conn, &fakeChangeSource{now: time.Now()}, time.Hour).Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.NoError(t, sub.Err())
	assert.Equal(t, 1, conn.closeCount())
}
