package storage

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// MockStorageBackend is a testify mock implementation of interfaces.StorageBackend
// for tests that need to script backend behavior (failures, unavailability)
// without touching a real store.
type MockStorageBackend struct {
	mock.Mock
	name string
}

// NewMockStorageBackend creates a named mock backend.
func NewMockStorageBackend(name string) *MockStorageBackend {
	return &MockStorageBackend{name: name}
}

// Fetch returns the scripted data and error.
func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// Store returns the scripted content ID and error.
func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

// Available returns the scripted availability.
func (m *MockStorageBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// Name returns the name given at construction.
func (m *MockStorageBackend) Name() string {
	return m.name
}

// LocationURI returns a mock URI derived from the name.
func (m *MockStorageBackend) LocationURI() string {
	return fmt.Sprintf("mock://%s", m.name)
}
