package verifier

import (
	"context"

	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockVerifier mocks the AttestationVerifier interface
type MockVerifier struct {
	mock.Mock
}

// Verify mocks the Verify method
func (m *MockVerifier) Verify(ctx context.Context, feed interfaces.FeedID) (interfaces.VerifiedValue, error) {
	args := m.Called(ctx, feed)
	return args.Get(0).(interfaces.VerifiedValue), args.Error(1)
}
