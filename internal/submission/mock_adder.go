package submission

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAdder is a mock implementation of Adder using testify/mock.
type MockAdder struct {
	mock.Mock
}

func (m *MockAdder) Add(ctx context.Context, question, answer string) error {
	args := m.Called(ctx, question, answer)
	return args.Error(0)
}
