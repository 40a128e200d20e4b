package middleware

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errInvalidToken = errors.New("invalid authorization token")
)

// Authenticate validates bearer tokens and injects the caller identity into context.
type Authenticate struct {
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenManager model.TokenManager, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenManager: tokenManager, contextManager: contextManager, logger: logger}
}

// AuthFunc parses the Authorization header, validates the token and returns
// a context with the caller identity.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	var tokenString string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if authHeaders := md.Get("authorization"); len(authHeaders) > 0 {
			tokenString = strings.TrimPrefix(authHeaders[0], "Bearer ")
		}
	}

	identity, authErr := m.authenticate(tokenString)
	if authErr != nil {
		return nil, status.Error(codes.Unauthenticated, authErr.Error())
	}

	return m.contextManager.SetIdentityToContext(ctx, identity), nil
}

func (m *Authenticate) authenticate(tokenString string) (model.Identity, error) {
	if tokenString == "" {
		return model.Identity{}, errMissingToken
	}

	identity, err := m.tokenManager.ParseAccessToken(tokenString)
	if err != nil {
		m.logger.Debug("Authenticate: token rejected", "error", err.Error())
		return model.Identity{}, errInvalidToken
	}

	if identity.Anonymous() {
		return model.Identity{}, errInvalidToken
	}

	return identity, nil
}
