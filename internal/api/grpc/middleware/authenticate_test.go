package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/latoalla/roster-server/internal/mocks"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/testutil"
)

func TestAuthenticate_AuthFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mdAuthHeader string
		identity     model.Identity
		parseErr     error
		wantGRPCCode codes.Code
		wantErr      bool
		expectSetCtx bool
	}{
		{
			name:         "missing authorization header",
			wantGRPCCode: codes.Unauthenticated,
			wantErr:      true,
		},
		{
			name:         "invalid token",
			mdAuthHeader: "Bearer invalid",
			parseErr:     errors.New("signature is invalid"),
			wantGRPCCode: codes.Unauthenticated,
			wantErr:      true,
		},
		{
			name:         "anonymous identity from token",
			mdAuthHeader: "Bearer token",
			wantGRPCCode: codes.Unauthenticated,
			wantErr:      true,
		},
		{
			name:         "valid token",
			mdAuthHeader: "Bearer token",
			identity:     model.Identity{OwnerID: "u1", OwnerEmail: "u1@example.com"},
			wantGRPCCode: codes.OK,
			expectSetCtx: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lg := testutil.MakeNoopLogger()
			cm := mocks.NewContextManager(t)

			if tt.expectSetCtx {
				cm.On("SetIdentityToContext", mock.Anything, tt.identity).Return(context.Background())
			}

			tm := mocks.NewTokenManager(t)
			if tt.mdAuthHeader != "" {
				tm.On("ParseAccessToken", strings.TrimPrefix(tt.mdAuthHeader, "Bearer ")).Return(tt.identity, tt.parseErr)
			}
			m := NewAuthenticate(tm, cm, lg)

			ctx := context.Background()
			if tt.mdAuthHeader != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", tt.mdAuthHeader))
			}

			newCtx, err := m.AuthFunc(ctx)

			if tt.wantErr {
				assert.Error(t, err)
				st, ok := status.FromError(err)
				assert.True(t, ok)
				assert.Equal(t, tt.wantGRPCCode, st.Code())
				assert.Nil(t, newCtx)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, newCtx)
			}
		})
	}
}
