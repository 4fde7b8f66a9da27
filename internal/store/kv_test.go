package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"typeonce/internal/logger"
	"typeonce/internal/notify"
)

func newMemoryStore() *KVStore {
	return NewKVStore(NewMemory(), DefaultKey, nil, logger.Discard())
}

func TestListAllEmpty(t *testing.T) {
	s := newMemoryStore()

	entries, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestUpsert(t *testing.T) {
	tests := []struct {
		name     string
		writes   []Entry
		expected []Entry
	}{
		{
			name:     "appends new question",
			writes:   []Entry{{Question: "Email", Answer: "a@b.com", Embedding: []float32{1, 0}}},
			expected: []Entry{{Question: "Email", Answer: "a@b.com", Embedding: []float32{1, 0}}},
		},
		{
			name: "keeps insertion order",
			writes: []Entry{
				{Question: "Name", Answer: "Ada"},
				{Question: "Email", Answer: "a@b.com"},
			},
			expected: []Entry{
				{Question: "Name", Answer: "Ada"},
				{Question: "Email", Answer: "a@b.com"},
			},
		},
		{
			name: "replaces existing question in place",
			writes: []Entry{
				{Question: "Name", Answer: "Ada"},
				{Question: "Email", Answer: "old@b.com"},
				{Question: "Phone", Answer: "555"},
				{Question: "Email", Answer: "new@b.com", Model: "stub@8"},
			},
			expected: []Entry{
				{Question: "Name", Answer: "Ada"},
				{Question: "Email", Answer: "new@b.com", Model: "stub@8"},
				{Question: "Phone", Answer: "555"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemoryStore()
			ctx := context.Background()
			for _, e := range tt.writes {
				require.NoError(t, s.Upsert(ctx, e))
			}

			got, err := s.ListAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()
	e := Entry{Question: "Email", Answer: "a@b.com", Embedding: []float32{0.6, 0.8}}

	require.NoError(t, s.Upsert(ctx, e))
	first, err := s.ListAll(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, e))
	second, err := s.ListAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, 1)
}

func TestDelete(t *testing.T) {
	s := newMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, Entry{Question: "Name", Answer: "Ada"}))
	require.NoError(t, s.Upsert(ctx, Entry{Question: "Email", Answer: "a@b.com"}))

	require.NoError(t, s.Delete(ctx, "Name"))

	got, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Question: "Email", Answer: "a@b.com"}}, got)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Get", mock.Anything, DefaultKey).
		Return([]byte(`[{"question":"Email","answer":"a@b.com","embedding":[1]}]`), true, nil).Once()
	notifier := new(notify.MockNotifier)

	s := NewKVStore(backend, DefaultKey, notifier, logger.Discard())
	require.NoError(t, s.Delete(context.Background(), "Phone"))

	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestStorageErrors(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name  string
		setup func(b *MockBackend)
		call  func(s *KVStore) error
	}{
		{
			name: "read failure on list",
			setup: func(b *MockBackend) {
				b.On("Get", mock.Anything, DefaultKey).Return(nil, false, boom).Once()
			},
			call: func(s *KVStore) error {
				_, err := s.ListAll(context.Background())
				return err
			},
		},
		{
			name: "corrupt collection",
			setup: func(b *MockBackend) {
				b.On("Get", mock.Anything, DefaultKey).Return([]byte(`{not json`), true, nil).Once()
			},
			call: func(s *KVStore) error {
				_, err := s.ListAll(context.Background())
				return err
			},
		},
		{
			name: "write failure on upsert",
			setup: func(b *MockBackend) {
				b.On("Get", mock.Anything, DefaultKey).Return(nil, false, nil).Once()
				b.On("Set", mock.Anything, DefaultKey, mock.Anything).Return(boom).Once()
			},
			call: func(s *KVStore) error {
				return s.Upsert(context.Background(), Entry{Question: "Email", Answer: "a@b.com"})
			},
		},
		{
			name: "read failure on delete",
			setup: func(b *MockBackend) {
				b.On("Get", mock.Anything, DefaultKey).Return(nil, false, boom).Once()
			},
			call: func(s *KVStore) error {
				return s.Delete(context.Background(), "Email")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(MockBackend)
			tt.setup(backend)
			s := NewKVStore(backend, DefaultKey, nil, logger.Discard())

			err := tt.call(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStorageUnavailable)
			backend.AssertExpectations(t)
		})
	}
}

func TestNullCollectionReadsAsEmpty(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Get", mock.Anything, DefaultKey).Return([]byte(`null`), true, nil).Once()
	s := NewKVStore(backend, DefaultKey, nil, logger.Discard())

	entries, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestWriteNotifies(t *testing.T) {
	notifier := new(notify.MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(c notify.Change) bool {
		return c.Key == "custom" && c.Count == 1 && !c.At.IsZero()
	})).Return(nil).Once()

	s := NewKVStore(NewMemory(), "custom", notifier, logger.Discard())
	require.NoError(t, s.Upsert(context.Background(), Entry{Question: "Email", Answer: "a@b.com"}))

	notifier.AssertExpectations(t)
}

func TestNotifyFailureDoesNotFailWrite(t *testing.T) {
	notifier := new(notify.MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	s := NewKVStore(NewMemory(), DefaultKey, notifier, logger.Discard())
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, Entry{Question: "Email", Answer: "a@b.com"}))

	got, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	notifier.AssertExpectations(t)
}

func TestMemoryBackendCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'z'

	got, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("abc"), got)

	_, found, err = m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
