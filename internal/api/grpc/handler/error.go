package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/latoalla/roster-server/internal/model"
)

func handleError(err error) error {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		return status.Error(codes.InvalidArgument, validationErr.Error())
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrDuplicateSignup):
		return status.Error(codes.AlreadyExists, model.ErrDuplicateSignup.Error())
	case errors.Is(err, model.ErrForbidden):
		return status.Error(codes.PermissionDenied, model.ErrForbidden.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, model.ErrNotFound.Error())
	case errors.Is(err, model.ErrNotEditing):
		return status.Error(codes.FailedPrecondition, model.ErrNotEditing.Error())
	case errors.Is(err, model.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "store unavailable, try again later")
	case errors.Is(err, model.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, model.ErrUnauthenticated.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
