package registry

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the AssetRegistry interface
type MockRegistry struct {
	mock.Mock
}

// Address mocks the Address method
func (m *MockRegistry) Address() common.Address {
	args := m.Called()
	return args.Get(0).(common.Address)
}

// Owner mocks the Owner method
func (m *MockRegistry) Owner(ctx context.Context) (common.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(common.Address), args.Error(1)
}

// Register mocks the Register method
func (m *MockRegistry) Register(ctx context.Context, caller common.Address, params interfaces.RegisterParams) error {
	args := m.Called(ctx, caller, params)
	return args.Error(0)
}

// UpdateValue mocks the UpdateValue method
func (m *MockRegistry) UpdateValue(ctx context.Context, caller common.Address, code interfaces.AssetCode, newValue *big.Int) error {
	args := m.Called(ctx, caller, code, newValue)
	return args.Error(0)
}

// Deactivate mocks the Deactivate method
func (m *MockRegistry) Deactivate(ctx context.Context, caller common.Address, code interfaces.AssetCode) error {
	args := m.Called(ctx, caller, code)
	return args.Error(0)
}

// Get mocks the Get method
func (m *MockRegistry) Get(ctx context.Context, code interfaces.AssetCode) (interfaces.AssetRecord, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(interfaces.AssetRecord), args.Error(1)
}

// VerifyHash mocks the VerifyHash method
func (m *MockRegistry) VerifyHash(ctx context.Context, code interfaces.AssetCode, candidate interfaces.DocumentHash) (bool, error) {
	args := m.Called(ctx, code, candidate)
	return args.Bool(0), args.Error(1)
}

// Count mocks the Count method
func (m *MockRegistry) Count(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

// CodeAt mocks the CodeAt method
func (m *MockRegistry) CodeAt(ctx context.Context, index uint64) (interfaces.AssetCode, error) {
	args := m.Called(ctx, index)
	return args.Get(0).(interfaces.AssetCode), args.Error(1)
}

// TransferOwnership mocks the TransferOwnership method
func (m *MockRegistry) TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) error {
	args := m.Called(ctx, caller, newOwner)
	return args.Error(0)
}
