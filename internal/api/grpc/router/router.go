package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/latoalla/roster-server/internal/api/grpc/handler"
	"github.com/latoalla/roster-server/internal/api/grpc/middleware"
	"github.com/latoalla/roster-server/internal/api/grpc/rosterapi"
	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
)

// Router represents a gRPC router for roster operations.
// It manages gRPC service registration and middleware configuration.
type Router struct {
	signups        *handler.Signups
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	observer       middleware.RequestObserver
	health         *health.Server
	logger         *logger.Logger
}

// New creates new gRPC Router instance.
//
// Parameters:
//   - signups: The Signups service handler
//   - tokenManager: Verifies bearer tokens
//   - contextManager: Carries the caller identity into handlers
//   - observer: Receives per-request outcomes, may be nil
//   - logger: The logger for request logging
//
// Returns a pointer to the newly created Router instance.
func New(
	signups *handler.Signups,
	tokenManager model.TokenManager,
	contextManager model.ContextManager,
	observer middleware.RequestObserver,
	logger *logger.Logger,
) *Router {
	return &Router{
		signups:        signups,
		tokenManager:   tokenManager,
		contextManager: contextManager,
		observer:       observer,
		health:         health.NewServer(),
		logger:         logger,
	}
}

// authRequired leaves health checks and reflection open.
func authRequired(_ context.Context, c interceptors.CallMeta) bool {
	return strings.HasPrefix(c.FullMethod(), "/"+rosterapi.ServiceName+"/")
}

// Register registers all gRPC services and middleware.
// Signups starts NOT_SERVING until SetServing is called.
//
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger, r.observer)
	authenticate := middleware.NewAuthenticate(r.tokenManager, r.contextManager, r.logger)
	recoverOpt := recovery.WithRecoveryHandler(func(p any) error {
		r.logger.Error("gRPC handler panic", "panic", p)
		return status.Error(codes.Internal, "internal server error")
	})

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoverOpt),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authRequired),
			),
		),
		grpc.ChainStreamInterceptor(
			logging.HandleGRPCStream,
			recovery.StreamServerInterceptor(recoverOpt),
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authRequired),
			),
		),
	)

	r.registerSignupRoutes(s)
	r.registerHealth(s)
	reflection.Register(s)

	return s
}

// SetServing flips the Signups health status.
func (r *Router) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	r.health.SetServingStatus("", st)
	r.health.SetServingStatus(rosterapi.ServiceName, st)
}

// Shutdown marks every service NOT_SERVING ahead of a stop.
func (r *Router) Shutdown() {
	r.health.Shutdown()
}

func (r *Router) registerSignupRoutes(server *grpc.Server) {
	rosterapi.RegisterSignupsServer(server, r.signups)
}

func (r *Router) registerHealth(server *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(server, r.health)
	r.SetServing(false)
}
