package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/latoalla/roster-server/internal/model"
)

// SignupService is a mock of handler.SignupService.
type SignupService struct {
	mock.Mock
}

func (_m *SignupService) Submit(ctx context.Context, identity model.Identity, candidate model.Candidate) (uuid.UUID, error) {
	ret := _m.Called(ctx, identity, candidate)
	return ret.Get(0).(uuid.UUID), ret.Error(1)
}

// NewSignupService creates a SignupService mock that asserts its expectations on cleanup.
func NewSignupService(t testingT) *SignupService {
	m := &SignupService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
