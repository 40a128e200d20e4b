// Package mocks holds testify mocks of the model and handler interfaces.
package mocks

import (
	"context"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/latoalla/roster-server/internal/model"
)

// testingT is what the constructors need from *testing.T.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// ContextManager is a mock of model.ContextManager.
type ContextManager struct {
	mock.Mock
}

func (_m *ContextManager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	ret := _m.Called(ctx, identity)
	if rf, ok := ret.Get(0).(func(context.Context, model.Identity) context.Context); ok {
		return rf(ctx, identity)
	}
	r0, _ := ret.Get(0).(context.Context)
	return r0
}

func (_m *ContextManager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	ret := _m.Called(ctx)
	return ret.Get(0).(model.Identity), ret.Bool(1)
}

// NewContextManager creates a ContextManager mock that asserts its expectations on cleanup.
func NewContextManager(t testingT) *ContextManager {
	m := &ContextManager{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// TokenManager is a mock of model.TokenManager.
type TokenManager struct {
	mock.Mock
}

func (_m *TokenManager) GenerateAccessToken(identity model.Identity) (string, error) {
	ret := _m.Called(identity)
	return ret.String(0), ret.Error(1)
}

func (_m *TokenManager) ParseAccessToken(token string) (model.Identity, error) {
	ret := _m.Called(token)
	return ret.Get(0).(model.Identity), ret.Error(1)
}

// NewTokenManager creates a TokenManager mock that asserts its expectations on cleanup.
func NewTokenManager(t testingT) *TokenManager {
	m := &TokenManager{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SecurityLayer is a mock of model.SecurityLayer.
type SecurityLayer struct {
	mock.Mock
}

func (_m *SecurityLayer) Listen(protocol, addr string) (net.Listener, error) {
	ret := _m.Called(protocol, addr)
	r0, _ := ret.Get(0).(net.Listener)
	return r0, ret.Error(1)
}

// NewSecurityLayer creates a SecurityLayer mock that asserts its expectations on cleanup.
func NewSecurityLayer(t testingT) *SecurityLayer {
	m := &SecurityLayer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SignupStore is a mock of model.SignupStore.
type SignupStore struct {
	mock.Mock
}

func (_m *SignupStore) Create(ctx context.Context, signup model.Signup) (model.Signup, error) {
	ret := _m.Called(ctx, signup)
	if rf, ok := ret.Get(0).(func(context.Context, model.Signup) model.Signup); ok {
		return rf(ctx, signup), ret.Error(1)
	}
	return ret.Get(0).(model.Signup), ret.Error(1)
}

func (_m *SignupStore) GetByID(ctx context.Context, id uuid.UUID) (model.Signup, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(model.Signup), ret.Error(1)
}

func (_m *SignupStore) ExistsByKey(ctx context.Context, key model.DedupKey) (bool, error) {
	ret := _m.Called(ctx, key)
	return ret.Bool(0), ret.Error(1)
}

func (_m *SignupStore) UpdateMutable(ctx context.Context, id uuid.UUID, ownerID string, fields model.MutableFields) error {
	ret := _m.Called(ctx, id, ownerID, fields)
	return ret.Error(0)
}

func (_m *SignupStore) SoftDelete(ctx context.Context, id uuid.UUID, ownerID string) error {
	ret := _m.Called(ctx, id, ownerID)
	return ret.Error(0)
}

// NewSignupStore creates a SignupStore mock that asserts its expectations on cleanup.
func NewSignupStore(t testingT) *SignupStore {
	m := &SignupStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ProfileStore is a mock of model.ProfileStore.
type ProfileStore struct {
	mock.Mock
}

func (_m *ProfileStore) GetByID(ctx context.Context, ownerID string) (model.Profile, error) {
	ret := _m.Called(ctx, ownerID)
	return ret.Get(0).(model.Profile), ret.Error(1)
}

// NewProfileStore creates a ProfileStore mock that asserts its expectations on cleanup.
func NewProfileStore(t testingT) *ProfileStore {
	m := &ProfileStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Storage is a mock of model.Storage.
type Storage struct {
	mock.Mock
}

func (_m *Storage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	ret := _m.Called(ctx, key, contentType, data)
	return ret.Error(0)
}

func (_m *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ret := _m.Called(ctx, key)
	r0, _ := ret.Get(0).(io.ReadCloser)
	return r0, ret.Error(1)
}

func (_m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	ret := _m.Called(ctx, key)
	return ret.Bool(0), ret.Error(1)
}

// NewStorage creates a Storage mock that asserts its expectations on cleanup.
func NewStorage(t testingT) *Storage {
	m := &Storage{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
