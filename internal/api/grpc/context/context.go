package context

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/latoalla/roster-server/internal/model"
)

// Metadata keys used to carry the caller identity in gRPC context.
const (
	ownerIDKey    string = "x-owner-id"
	ownerEmailKey string = "x-owner-email"
)

// Manager represents a gRPC context manager for caller identity.
// It provides methods to set and retrieve the identity from gRPC metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
//
// Returns a pointer to the newly created Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityToContext stores the identity in the incoming metadata of ctx.
// Values supplied by the client under the same keys are replaced, and an
// empty field removes the key.
//
// Parameters:
//   - ctx: The gRPC context
//   - identity: The authenticated caller
//
// Returns a new context carrying the identity.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}

	setOrDelete(md, ownerIDKey, identity.OwnerID)
	setOrDelete(md, ownerEmailKey, identity.OwnerEmail)

	return metadata.NewIncomingContext(ctx, md)
}

// GetIdentityFromContext retrieves the identity from gRPC context metadata.
//
// Parameters:
//   - ctx: The gRPC context
//
// Returns the identity and a boolean indicating if one was found.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return model.Identity{}, false
	}

	identity := model.Identity{
		OwnerID:    first(md, ownerIDKey),
		OwnerEmail: first(md, ownerEmailKey),
	}
	if identity.Anonymous() {
		return model.Identity{}, false
	}

	return identity, true
}

func setOrDelete(md metadata.MD, key, value string) {
	if value == "" {
		md.Delete(key)
		return
	}
	md.Set(key, value)
}

func first(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
