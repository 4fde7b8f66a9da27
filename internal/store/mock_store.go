package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListAll(ctx context.Context) ([]Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Entry), args.Error(1)
}

func (m *MockStore) Upsert(ctx context.Context, entry Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, question string) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

// MockBackend is a mock implementation of Backend using testify/mock.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockBackend) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}
