package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/latoalla/roster-server/internal/model"
)

func TestHandleError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       error
		wantCode codes.Code
		wantMsg  string
	}{
		{
			name:     "validation error -> InvalidArgument",
			in:       model.NewValidationError("meals", "select at least one meal"),
			wantCode: codes.InvalidArgument,
			wantMsg:  "meals: select at least one meal",
		},
		{
			name:     "duplicate -> AlreadyExists",
			in:       model.ErrDuplicateSignup,
			wantCode: codes.AlreadyExists,
			wantMsg:  model.ErrDuplicateSignup.Error(),
		},
		{
			name:     "forbidden -> PermissionDenied",
			in:       model.ErrForbidden,
			wantCode: codes.PermissionDenied,
			wantMsg:  model.ErrForbidden.Error(),
		},
		{
			name:     "not found -> NotFound",
			in:       fmt.Errorf("lookup: %w", model.ErrNotFound),
			wantCode: codes.NotFound,
			wantMsg:  model.ErrNotFound.Error(),
		},
		{
			name:     "not editing -> FailedPrecondition",
			in:       model.ErrNotEditing,
			wantCode: codes.FailedPrecondition,
			wantMsg:  model.ErrNotEditing.Error(),
		},
		{
			name:     "store unavailable -> Unavailable",
			in:       fmt.Errorf("%w: create signup: %w", model.ErrStoreUnavailable, errors.New("conn reset")),
			wantCode: codes.Unavailable,
			wantMsg:  "store unavailable, try again later",
		},
		{
			name:     "other -> Internal",
			in:       errors.New("boom"),
			wantCode: codes.Internal,
			wantMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := handleError(tt.in)
			st, ok := status.FromError(err)
			assert.True(t, ok)
			assert.Equal(t, tt.wantCode, st.Code())
			assert.Equal(t, tt.wantMsg, st.Message())
		})
	}
}
