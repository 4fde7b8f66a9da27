package notify

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of Notifier using testify/mock.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, change Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}
