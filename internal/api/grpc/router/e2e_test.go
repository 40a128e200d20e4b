package router

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpccontext "github.com/latoalla/roster-server/internal/api/grpc/context"
	"github.com/latoalla/roster-server/internal/api/grpc/handler"
	"github.com/latoalla/roster-server/internal/api/grpc/rosterapi"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/repository/memory"
	"github.com/latoalla/roster-server/internal/roster"
	"github.com/latoalla/roster-server/internal/service"
	"github.com/latoalla/roster-server/internal/testutil"
	"github.com/latoalla/roster-server/internal/token"
)

type stack struct {
	client *rosterapi.SignupsClient
	health grpc_health_v1.HealthClient
	router *Router
	store  *memory.Store
	mirror *roster.Mirror
	tokens model.TokenManager
}

func newStack(t *testing.T) *stack {
	t.Helper()

	lg := testutil.MakeNoopLogger()
	store := memory.New()
	tokens := token.NewJWT("test-secret")
	contexts := grpccontext.NewManager()

	mirror := roster.NewMirror(store, roster.MirrorConfig{RetryBase: 10 * time.Millisecond}, lg)
	require.NoError(t, mirror.Start(context.Background()))
	t.Cleanup(mirror.Stop)

	signups := handler.NewSignups(
		service.NewSignup(store, service.NewGuard(store, lg), store.Profiles(), nil, lg),
		service.NewEditors(store, mirror, lg),
		roster.NewView(mirror, nil),
		mirror,
		nil,
		contexts,
		lg,
	)

	r := New(signups, tokens, contexts, nil, lg)
	srv := r.Register()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &stack{
		client: rosterapi.NewSignupsClient(conn),
		health: grpc_health_v1.NewHealthClient(conn),
		router: r,
		store:  store,
		mirror: mirror,
		tokens: tokens,
	}
}

func (s *stack) as(t *testing.T, identity model.Identity) context.Context {
	t.Helper()
	tok, err := s.tokens.GenerateAccessToken(identity)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

// waitFor blocks until the mirror holds n signups.
func (s *stack) waitFor(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.mirror.Status().Synced && s.mirror.Snapshot().Len() == n
	}, 2*time.Second, 5*time.Millisecond)
}

var (
	u1 = model.Identity{OwnerID: "U1", OwnerEmail: "u1@example.com"}
	u2 = model.Identity{OwnerID: "U2", OwnerEmail: "u2@example.com"}
)

func submitRequest() *rosterapi.SubmitRequest {
	return &rosterapi.SubmitRequest{
		Date:     "2025-07-25",
		Category: "primary",
		Meals:    rosterapi.Meals{Lunch: true},
		Adults:   2,
		Children: 1,
	}
}

func TestE2E_SubmitAndDuplicate(t *testing.T) {
	s := newStack(t)
	ctx := s.as(t, u1)

	resp, err := s.client.Submit(ctx, submitRequest())
	require.NoError(t, err)
	_, err = uuid.Parse(resp.ID)
	require.NoError(t, err)

	_, err = s.client.Submit(ctx, submitRequest())
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	noMeals := submitRequest()
	noMeals.Date = "2025-07-26"
	noMeals.Meals = rosterapi.Meals{}
	_, err = s.client.Submit(ctx, noMeals)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "meals")

	assert.Equal(t, 1, s.store.Writes())
}

func TestE2E_RequiresToken(t *testing.T) {
	s := newStack(t)

	_, err := s.client.Submit(context.Background(), submitRequest())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
	_, err = s.client.GetRoster(bad, &rosterapi.RosterRequest{Category: "primary"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	spoofed := metadata.AppendToOutgoingContext(context.Background(), "x-owner-id", "U1")
	_, err = s.client.GetRoster(spoofed, &rosterapi.RosterRequest{Category: "primary"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	assert.Zero(t, s.store.Writes())
}

func TestE2E_OnlyOwnerMayEdit(t *testing.T) {
	s := newStack(t)

	resp, err := s.client.Submit(s.as(t, u1), submitRequest())
	require.NoError(t, err)
	s.waitFor(t, 1)

	intruder := s.as(t, u2)
	req := &rosterapi.SignupRequest{ID: resp.ID}

	_, err = s.client.BeginEdit(intruder, req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	_, err = s.client.CommitEdit(intruder, req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	_, err = s.client.Delete(intruder, req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	assert.Equal(t, 1, s.store.Writes())

	owner := s.as(t, u1)
	_, err = s.client.BeginEdit(owner, req)
	require.NoError(t, err)
	buf, err := s.client.UpdateField(owner, &rosterapi.UpdateFieldRequest{ID: resp.ID, Field: model.FieldMealDinner, Value: "true"})
	require.NoError(t, err)
	assert.True(t, buf.Meals.Dinner)
	_, err = s.client.CommitEdit(owner, req)
	require.NoError(t, err)

	stored, err := s.store.GetByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.Equal(t, model.MealFlags{Lunch: true, Dinner: true}, stored.Meals)
}

func TestE2E_WatchRoster(t *testing.T) {
	s := newStack(t)
	s.waitFor(t, 0)

	ctx, cancel := context.WithCancel(s.as(t, u2))
	defer cancel()

	watch, err := s.client.WatchRoster(ctx, &rosterapi.RosterRequest{Category: "primary"})
	require.NoError(t, err)

	initial, err := watch.Recv()
	require.NoError(t, err)
	assert.Zero(t, initial.Count)
	assert.Empty(t, initial.Groups)

	_, err = s.client.Submit(s.as(t, u1), submitRequest())
	require.NoError(t, err)

	next, err := watch.Recv()
	require.NoError(t, err)
	require.Len(t, next.Groups, 1)
	assert.Equal(t, "2025-07-25", next.Groups[0].Date)
	assert.Equal(t, 3, next.TotalAdults+next.TotalChildren)
	assert.False(t, next.Groups[0].Rows[0].Own)
}

func TestE2E_Health(t *testing.T) {
	s := newStack(t)

	resp, err := s.health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: rosterapi.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.Status)

	s.router.SetServing(true)

	resp, err = s.health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: rosterapi.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
