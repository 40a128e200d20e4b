package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/latoalla/roster-server/internal/logger"
)

// RequestObserver records the outcome of each RPC.
type RequestObserver interface {
	ObserveRequest(method string, code codes.Code, duration time.Duration)
}

// Logging logs gRPC requests and results and reports them to an optional observer.
type Logging struct {
	logger   *logger.Logger
	observer RequestObserver
}

// NewLogging creates a new Logging middleware. observer may be nil.
func NewLogging(logger *logger.Logger, observer RequestObserver) *Logging {
	return &Logging{logger: logger, observer: observer}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	l.logger.Debug("gRPC request started",
		"method", info.FullMethod)

	resp, err := handler(ctx, req)

	l.finish(info.FullMethod, start, err)
	return resp, err
}

// HandleGRPCStream logs method name, duration and status for each stream.
func (l *Logging) HandleGRPCStream(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()

	l.logger.Debug("gRPC stream started",
		"method", info.FullMethod)

	err := handler(srv, ss)

	l.finish(info.FullMethod, start, err)
	return err
}

func (l *Logging) finish(method string, start time.Time, err error) {
	duration := time.Since(start)
	statusCode := codeOf(err)

	if l.observer != nil {
		l.observer.ObserveRequest(method, statusCode, duration)
	}

	l.logger.Info("gRPC request completed",
		"method", method,
		"duration_ms", duration.Milliseconds(),
		"status", statusCode.String())

	// Client-side codes are expected traffic; only server faults are errors.
	switch statusCode {
	case codes.OK, codes.InvalidArgument, codes.AlreadyExists, codes.NotFound,
		codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition, codes.Canceled:
		return
	}
	l.logger.Error("gRPC request failed",
		"method", method,
		"error", err.Error(),
		"status", statusCode.String())
}

func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}
