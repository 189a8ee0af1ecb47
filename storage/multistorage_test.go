package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorageBackend implements interfaces.StorageBackend for testing
type MockStorageBackend struct {
	mock.Mock
	name string
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockStorageBackend) Name() string {
	return m.name
}

func (m *MockStorageBackend) LocationURI() string {
	return "mock://" + m.name
}

// archiveBackend returns a mock that reports the given availability any number of times.
func archiveBackend(name string, available bool) *MockStorageBackend {
	backend := &MockStorageBackend{name: name}
	backend.On("Available", mock.Anything).Return(available)
	return backend
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMultiStorageBackend_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{
			name:     "all backends available",
			backends: []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some backends available",
			backends: []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no backends available",
			backends: []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no backends",
			backends: []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.StorageBackend
			for i, available := range tt.backends {
				backend := &MockStorageBackend{name: fmt.Sprintf("replica-%d", i)}
				backend.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, backend)
			}

			multi := NewMultiStorageBackend(backends, discardLogger())
			assert.Equal(t, tt.expected, multi.Available(context.Background()))
		})
	}
}

func TestMultiStorageBackend_Fetch(t *testing.T) {
	testData := []byte("reserve report")
	testID := interfaces.ComputeID(testData)
	testErr := errors.New("connection reset")

	tests := []struct {
		name          string
		archive       func() []interfaces.StorageBackend
		expectedData  []byte
		expectedError error
	}{
		{
			name: "primary answers",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(testData, nil)

				// Never consulted once the first backend answers
				replica := &MockStorageBackend{name: "replica"}

				return []interfaces.StorageBackend{primary, replica}
			},
			expectedData: testData,
		},
		{
			name: "primary errors, replica answers",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(nil, testErr)

				replica := archiveBackend("replica", true)
				replica.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(testData, nil)

				return []interfaces.StorageBackend{primary, replica}
			},
			expectedData: testData,
		},
		{
			name: "all backends fail",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(nil, testErr)

				replica := archiveBackend("replica", true)
				replica.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.StorageBackend{primary, replica}
			},
			expectedError: testErr,
		},
		{
			name: "not found everywhere",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(nil, interfaces.ErrContentNotFound)

				replica := archiveBackend("replica", true)
				replica.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.StorageBackend{primary, replica}
			},
			expectedError: interfaces.ErrContentNotFound,
		},
		{
			name: "unavailable backends are skipped",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", false)

				replica := archiveBackend("replica", true)
				replica.On("Fetch", mock.Anything, testID, interfaces.DocumentType).Return(testData, nil)

				return []interfaces.StorageBackend{primary, replica}
			},
			expectedData: testData,
		},
		{
			name: "no backend available",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", false)
				return []interfaces.StorageBackend{primary}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.archive()
			multi := NewMultiStorageBackend(backends, discardLogger())

			data, err := multi.Fetch(context.Background(), testID, interfaces.DocumentType)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, backend := range backends {
				backend.(*MockStorageBackend).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorageBackend_Store(t *testing.T) {
	testData := []byte("reserve report")
	testID := interfaces.ComputeID(testData)
	testErr := errors.New("disk full")

	tests := []struct {
		name          string
		archive       func() []interfaces.StorageBackend
		expectedError bool
	}{
		{
			name: "all backends successful",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(testID, nil)

				replica := archiveBackend("replica", true)
				replica.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(testID, nil)

				return []interfaces.StorageBackend{primary, replica}
			},
		},
		{
			name: "some backends fail",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(testID, nil)

				replica := archiveBackend("replica", true)
				replica.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(interfaces.ContentID{}, testErr)

				return []interfaces.StorageBackend{primary, replica}
			},
		},
		{
			name: "all backends fail",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(interfaces.ContentID{}, testErr)

				replica := archiveBackend("replica", true)
				replica.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(testID, interfaces.ErrReadOnlyBackend)

				return []interfaces.StorageBackend{primary, replica}
			},
			expectedError: true,
		},
		{
			name: "backend returning a different id counts as failure",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", true)
				primary.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(interfaces.ContentID{1}, nil)

				return []interfaces.StorageBackend{primary}
			},
			expectedError: true,
		},
		{
			name: "unavailable backends are skipped",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", false)

				replica := archiveBackend("replica", true)
				replica.On("Store", mock.Anything, testData, interfaces.DocumentType).Return(testID, nil)

				return []interfaces.StorageBackend{primary, replica}
			},
		},
		{
			name: "no backend available",
			archive: func() []interfaces.StorageBackend {
				primary := archiveBackend("primary", false)
				return []interfaces.StorageBackend{primary}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.archive()
			multi := NewMultiStorageBackend(backends, discardLogger())

			id, err := multi.Store(context.Background(), testData, interfaces.DocumentType)
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, testID, id)

			for _, backend := range backends {
				backend.(*MockStorageBackend).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorageBackend_RoundTripOverFiles(t *testing.T) {
	first, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)
	second, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{first, second}, discardLogger())
	data := []byte(`{"reserve":"gold","ounces":5000}`)

	id, err := multi.Store(context.Background(), data, interfaces.DocumentType)
	require.NoError(t, err)

	// Both replicas hold the content
	for _, backend := range []*FileBackend{first, second} {
		got, err := backend.Fetch(context.Background(), id, interfaces.DocumentType)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}

	got, err := multi.Fetch(context.Background(), id, interfaces.DocumentType)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.Equal(t, "multi:["+first.LocationURI()+","+second.LocationURI()+"]", multi.LocationURI())
}
