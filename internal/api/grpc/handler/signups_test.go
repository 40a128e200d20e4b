package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	grpccontext "github.com/latoalla/roster-server/internal/api/grpc/context"
	"github.com/latoalla/roster-server/internal/api/grpc/rosterapi"
	"github.com/latoalla/roster-server/internal/mocks"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/repository/memory"
	"github.com/latoalla/roster-server/internal/roster"
	"github.com/latoalla/roster-server/internal/service"
	"github.com/latoalla/roster-server/internal/testutil"
)

var (
	u1 = model.Identity{OwnerID: "U1", OwnerEmail: "u1@example.com"}
	u2 = model.Identity{OwnerID: "U2", OwnerEmail: "u2@example.com"}
)

// source is a hand-driven mirror.
type source struct {
	mu      sync.Mutex
	snap    *roster.Snapshot
	status  roster.Status
	waiters []chan struct{}
}

func newSource(signups ...model.Signup) *source {
	return &source{
		snap:   roster.NewSnapshot(1, signups),
		status: roster.Status{Synced: true},
	}
}

func (s *source) Snapshot() *roster.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *source) Status() roster.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *source) Notify() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.waiters = append(s.waiters, ch)
	return ch, func() {}
}

func (s *source) publish(signups ...model.Signup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = roster.NewSnapshot(s.snap.Version()+1, signups)
	for _, ch := range s.waiters {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type fixture struct {
	handler  *Signups
	store    *memory.Store
	source   *source
	signups  *mocks.SignupService
	contexts *grpccontext.Manager
}

func newFixture(t *testing.T, exports ExportService, seed ...model.Signup) *fixture {
	t.Helper()

	store := memory.New()
	seeded := make([]model.Signup, 0, len(seed))
	for _, s := range seed {
		seeded = append(seeded, store.Seed(s))
	}
	src := newSource(seeded...)
	lg := testutil.MakeNoopLogger()
	signups := mocks.NewSignupService(t)
	contexts := grpccontext.NewManager()

	return &fixture{
		handler: NewSignups(
			signups,
			service.NewEditors(store, src, lg),
			roster.NewView(src, nil),
			src,
			exports,
			contexts,
			lg,
		),
		store:    store,
		source:   src,
		signups:  signups,
		contexts: contexts,
	}
}

func (f *fixture) as(identity model.Identity) context.Context {
	return f.contexts.SetIdentityToContext(context.Background(), identity)
}

func (f *fixture) firstID(t *testing.T) string {
	t.Helper()
	signups := f.source.Snapshot().Signups()
	require.NotEmpty(t, signups)
	return signups[0].ID.String()
}

func ownedSignup(owner model.Identity, date string) model.Signup {
	return model.Signup{
		OwnerID:     owner.OwnerID,
		OwnerEmail:  owner.OwnerEmail,
		DisplayName: owner.OwnerID,
		Date:        date,
		Categories:  model.NewCategorySet(model.CategoryPrimary),
		Meals:       model.MealFlags{Lunch: true},
		Adults:      2,
	}
}

func TestSignups_Submit(t *testing.T) {
	tests := []struct {
		name     string
		ctx      func(f *fixture) context.Context
		setup    func(m *mocks.SignupService)
		wantCode codes.Code
	}{
		{
			name: "created",
			ctx:  func(f *fixture) context.Context { return f.as(u1) },
			setup: func(m *mocks.SignupService) {
				m.On("Submit", mock.Anything, u1, model.Candidate{
					Date:     "2025-07-25",
					Category: model.CategoryPrimary,
					Meals:    model.MealFlags{Lunch: true, Dinner: true},
					Adults:   2,
					Children: 1,
				}).Return(uuid.MustParse("00000000-0000-0000-0000-000000000001"), nil)
			},
			wantCode: codes.OK,
		},
		{
			name: "duplicate",
			ctx:  func(f *fixture) context.Context { return f.as(u1) },
			setup: func(m *mocks.SignupService) {
				m.On("Submit", mock.Anything, u1, mock.Anything).Return(uuid.Nil, model.ErrDuplicateSignup)
			},
			wantCode: codes.AlreadyExists,
		},
		{
			name: "invalid",
			ctx:  func(f *fixture) context.Context { return f.as(u1) },
			setup: func(m *mocks.SignupService) {
				m.On("Submit", mock.Anything, u1, mock.Anything).Return(uuid.Nil, model.NewValidationError("meals", "select at least one meal"))
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "no identity",
			ctx:      func(f *fixture) context.Context { return context.Background() },
			setup:    func(m *mocks.SignupService) {},
			wantCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			tt.setup(f.signups)

			resp, err := f.handler.Submit(tt.ctx(f), &rosterapi.SubmitRequest{
				Date:     "2025-07-25",
				Category: "primary",
				Meals:    rosterapi.Meals{Lunch: true, Dinner: true},
				Adults:   2,
				Children: 1,
			})

			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "00000000-0000-0000-0000-000000000001", resp.ID)
			}
		})
	}
}

func TestSignups_EditFlow(t *testing.T) {
	f := newFixture(t, nil, ownedSignup(u1, "2025-07-25"))
	id := f.firstID(t)
	ctx := f.as(u1)

	buf, err := f.handler.BeginEdit(ctx, &rosterapi.SignupRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Adults)
	assert.Equal(t, uint64(1), buf.BaseVersion)

	buf, err = f.handler.UpdateField(ctx, &rosterapi.UpdateFieldRequest{ID: id, Field: model.FieldAdults, Value: "4"})
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Adults)

	_, err = f.handler.UpdateField(ctx, &rosterapi.UpdateFieldRequest{ID: id, Field: model.FieldChildren, Value: "-3"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.handler.CommitEdit(ctx, &rosterapi.SignupRequest{ID: id})
	require.NoError(t, err)

	stored, err := f.store.GetByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Adults)

	_, err = f.handler.CommitEdit(ctx, &rosterapi.SignupRequest{ID: id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestSignups_CancelEdit(t *testing.T) {
	f := newFixture(t, nil, ownedSignup(u1, "2025-07-25"))
	id := f.firstID(t)
	ctx := f.as(u1)

	_, err := f.handler.BeginEdit(ctx, &rosterapi.SignupRequest{ID: id})
	require.NoError(t, err)
	_, err = f.handler.CancelEdit(ctx, &rosterapi.SignupRequest{ID: id})
	require.NoError(t, err)

	_, err = f.handler.UpdateField(ctx, &rosterapi.UpdateFieldRequest{ID: id, Field: model.FieldAdults, Value: "1"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestSignups_NonOwner(t *testing.T) {
	f := newFixture(t, nil, ownedSignup(u1, "2025-07-25"))
	id := f.firstID(t)
	ctx := f.as(u2)

	_, err := f.handler.BeginEdit(ctx, &rosterapi.SignupRequest{ID: id})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.handler.CommitEdit(ctx, &rosterapi.SignupRequest{ID: id})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.handler.Delete(ctx, &rosterapi.SignupRequest{ID: id})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	assert.Zero(t, f.store.Writes())
}

func TestSignups_Delete(t *testing.T) {
	f := newFixture(t, nil, ownedSignup(u1, "2025-07-25"))
	id := f.firstID(t)

	_, err := f.handler.Delete(f.as(u1), &rosterapi.SignupRequest{ID: id})
	require.NoError(t, err)

	_, err = f.store.GetByID(context.Background(), uuid.MustParse(id))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSignups_BadRequests(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.handler.BeginEdit(f.as(u1), &rosterapi.SignupRequest{ID: "not-a-uuid"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.handler.BeginEdit(f.as(u1), &rosterapi.SignupRequest{ID: uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.handler.GetRoster(f.as(u1), &rosterapi.RosterRequest{Category: "picnic"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.handler.GetRoster(context.Background(), &rosterapi.RosterRequest{Category: "primary"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestSignups_GetRoster(t *testing.T) {
	f := newFixture(t, nil,
		ownedSignup(u2, "2025-07-26"),
		ownedSignup(u1, "2025-07-25"),
	)

	r, err := f.handler.GetRoster(f.as(u1), &rosterapi.RosterRequest{Category: "fiestas"})
	require.NoError(t, err)

	assert.Equal(t, "primary", r.Category)
	require.Len(t, r.Groups, 2)
	assert.Equal(t, "2025-07-25", r.Groups[0].Date)
	assert.True(t, r.Groups[0].Rows[0].Own)
	assert.Equal(t, "2025-07-26", r.Groups[1].Date)
	assert.False(t, r.Groups[1].Rows[0].Own)
	assert.Equal(t, 4, r.TotalAdults)
	assert.Equal(t, 2, r.Count)
	assert.False(t, r.Stale)
}

type watchStream struct {
	ctx  context.Context
	sent chan *rosterapi.Roster
}

func (w *watchStream) Send(r *rosterapi.Roster) error {
	w.sent <- r
	return nil
}

func (w *watchStream) Context() context.Context     { return w.ctx }
func (w *watchStream) SetHeader(metadata.MD) error  { return nil }
func (w *watchStream) SendHeader(metadata.MD) error { return nil }
func (w *watchStream) SetTrailer(metadata.MD)       {}
func (w *watchStream) SendMsg(any) error            { return nil }
func (w *watchStream) RecvMsg(any) error            { return nil }

func TestSignups_WatchRoster(t *testing.T) {
	first := ownedSignup(u1, "2025-07-25")
	f := newFixture(t, nil, first)

	ctx, cancel := context.WithCancel(f.as(u1))
	stream := &watchStream{ctx: ctx, sent: make(chan *rosterapi.Roster, 4)}

	done := make(chan error, 1)
	go func() {
		done <- f.handler.WatchRoster(&rosterapi.RosterRequest{Category: "primary"}, stream)
	}()

	initial := <-stream.sent
	assert.Equal(t, uint64(1), initial.Version)
	assert.Equal(t, 1, initial.Count)

	require.Eventually(t, func() bool {
		f.source.mu.Lock()
		defer f.source.mu.Unlock()
		return len(f.source.waiters) == 1
	}, time.Second, 5*time.Millisecond)

	existing := f.source.Snapshot().Signups()
	f.source.publish(append(existing, ownedSignup(u2, "2025-07-25"))...)

	select {
	case next := <-stream.sent:
		assert.Equal(t, uint64(2), next.Version)
		assert.Equal(t, 2, next.Count)
	case <-time.After(time.Second):
		t.Fatal("no roster after change")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestSignups_ExportNotConfigured(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.handler.ExportRoster(f.as(u1), &rosterapi.RosterRequest{Category: "primary"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = f.handler.FetchExport(f.as(u1), &rosterapi.FetchExportRequest{Key: "rosters/primary/x.json"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestSignups_ExportRoundTrip(t *testing.T) {
	storage := mocks.NewStorage(t)
	var uploaded []byte
	storage.On("Upload", mock.Anything, mock.Anything, "application/json", mock.Anything).
		Run(func(args mock.Arguments) { uploaded = args.Get(3).([]byte) }).
		Return(nil)

	f := newFixture(t, nil, ownedSignup(u1, "2025-07-25"))
	f.handler.exports = service.NewExport(roster.NewView(f.source, nil), storage, testutil.MakeNoopLogger())

	resp, err := f.handler.ExportRoster(f.as(u1), &rosterapi.RosterRequest{Category: "primary"})
	require.NoError(t, err)
	require.NotEmpty(t, uploaded)

	storage.On("Exists", mock.Anything, resp.Key).Return(true, nil)
	storage.On("Download", mock.Anything, resp.Key).Return(io.NopCloser(bytes.NewReader(uploaded)), nil)

	doc, err := f.handler.FetchExport(f.as(u1), &rosterapi.FetchExportRequest{Key: resp.Key})
	require.NoError(t, err)

	var stored service.ExportDocument
	require.NoError(t, json.Unmarshal(uploaded, &stored))
	assert.Equal(t, stored.ExportedAt.Unix(), doc.ExportedAt)
	assert.Equal(t, 1, doc.Roster.Count)
	assert.True(t, doc.Roster.Groups[0].Rows[0].Own)
}
