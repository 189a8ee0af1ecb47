package registry

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRegistryAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testOwner        = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testOther        = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testHolder       = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

type recordingSink struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (s *recordingSink) Emit(_ context.Context, event interfaces.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.EventName())
	}
	return names
}

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 {
	return c.now
}

func setupRegistry(t *testing.T) (*MemoryRegistry, *recordingSink, *fakeClock) {
	t.Helper()
	sink := &recordingSink{}
	clock := &fakeClock{now: 1_700_000_000}
	reg, err := NewMemoryRegistry(testRegistryAddr, testOwner,
		WithClock(clock.Now),
		WithEventSink(sink),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return reg, sink, clock
}

func goldParams(code string) interfaces.RegisterParams {
	docHash, _ := interfaces.NewDocumentHashFromHex("96e2e35d4a1b9c0f5e7d2a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f")
	return interfaces.RegisterParams{
		Code:             interfaces.NewAssetCode(code),
		Name:             "Kibali Gold Reserve",
		Standard:         interfaces.StandardNI43101,
		Jurisdiction:     "CD",
		Value:            big.NewInt(6_800_000_000),
		ResourceQuantity: big.NewInt(1_250_000),
		InSituQuantity:   big.NewInt(980_000),
		DocumentHash:     docHash,
		Holder:           testHolder,
	}
}

func TestNewMemoryRegistry_ZeroOwner(t *testing.T) {
	_, err := NewMemoryRegistry(testRegistryAddr, common.Address{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidHolder)
}

func TestMemoryRegistry_RegisterAndGet(t *testing.T) {
	ctx := context.Background()
	reg, sink, _ := setupRegistry(t)
	params := goldParams("AU-KIBALI")

	require.NoError(t, reg.Register(ctx, testOwner, params))

	record, err := reg.Get(ctx, params.Code)
	require.NoError(t, err)
	assert.Equal(t, params.Code, record.Code)
	assert.Equal(t, params.Name, record.Name)
	assert.Equal(t, params.Standard, record.Standard)
	assert.Equal(t, params.Jurisdiction, record.Jurisdiction)
	assert.Equal(t, 0, params.Value.Cmp(record.Value))
	assert.Equal(t, 0, params.ResourceQuantity.Cmp(record.ResourceQuantity))
	assert.Equal(t, 0, params.InSituQuantity.Cmp(record.InSituQuantity))
	assert.Equal(t, params.DocumentHash, record.DocumentHash)
	assert.Equal(t, params.Holder, record.Holder)
	assert.Equal(t, uint64(1_700_000_000), record.LastUpdated)
	assert.True(t, record.Active)

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	assert.Equal(t, []string{interfaces.EventAssetRegistered}, sink.names())
	registered := sink.events[0].(interfaces.AssetRegistered)
	assert.Equal(t, params.Code, registered.Code)
	assert.Equal(t, params.DocumentHash, registered.DocumentHash)
	assert.Equal(t, 0, params.Value.Cmp(registered.Value))
}

func TestMemoryRegistry_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t)
	params := goldParams("AU-KIBALI")
	require.NoError(t, reg.Register(ctx, testOwner, params))

	// Mutating the caller's params or a returned record must not leak into the registry
	params.Value.SetInt64(1)
	record, err := reg.Get(ctx, params.Code)
	require.NoError(t, err)
	record.Value.SetInt64(2)

	record, err = reg.Get(ctx, params.Code)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(6_800_000_000), record.Value)
}

func TestMemoryRegistry_RegisterRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  common.Address
		mutate  func(p *interfaces.RegisterParams)
		wantErr error
	}{
		{
			name:    "non-owner caller",
			caller:  testOther,
			mutate:  func(p *interfaces.RegisterParams) {},
			wantErr: interfaces.ErrUnauthorized,
		},
		{
			name:    "zero value",
			caller:  testOwner,
			mutate:  func(p *interfaces.RegisterParams) { p.Value = big.NewInt(0) },
			wantErr: interfaces.ErrInvalidValue,
		},
		{
			name:    "negative value",
			caller:  testOwner,
			mutate:  func(p *interfaces.RegisterParams) { p.Value = big.NewInt(-5) },
			wantErr: interfaces.ErrInvalidValue,
		},
		{
			name:    "nil value",
			caller:  testOwner,
			mutate:  func(p *interfaces.RegisterParams) { p.Value = nil },
			wantErr: interfaces.ErrInvalidValue,
		},
		{
			name:    "value above 256 bits",
			caller:  testOwner,
			mutate:  func(p *interfaces.RegisterParams) { p.Value = new(big.Int).Lsh(big.NewInt(1), 256) },
			wantErr: interfaces.ErrInvalidValue,
		},
		{
			name:    "negative resource quantity",
			caller:  testOwner,
			mutate:  func(p *interfaces.RegisterParams) { p.ResourceQuantity = big.NewInt(-1) },
			wantErr: interfaces.ErrInvalidValue,
		},
		{
			name:    "negative in-situ quantity",
			caller:  testOwner,
			mutate:  func(p *interfaces.RegisterParams) { p.InSituQuantity = big.NewInt(-980_000) },
			wantErr: interfaces.ErrInvalidValue,
		},
		{
			name:    "zero holder",
			caller:  testOwner,
			mutate:  func(p *interfaces.RegisterParams) { p.Holder = common.Address{} },
			wantErr: interfaces.ErrInvalidHolder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, sink, _ := setupRegistry(t)
			params := goldParams("AU-KIBALI")
			tt.mutate(&params)

			err := reg.Register(ctx, tt.caller, params)
			assert.ErrorIs(t, err, tt.wantErr)

			count, err := reg.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), count)
			assert.Empty(t, sink.names())

			_, err = reg.Get(ctx, params.Code)
			assert.ErrorIs(t, err, interfaces.ErrNotFound)
		})
	}
}

func TestMemoryRegistry_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t)
	params := goldParams("AU-KIBALI")

	require.NoError(t, reg.Register(ctx, testOwner, params))
	err := reg.Register(ctx, testOwner, params)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestMemoryRegistry_ReRegisterDeactivated(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t)
	params := goldParams("AU-KIBALI")

	require.NoError(t, reg.Register(ctx, testOwner, params))
	require.NoError(t, reg.Deactivate(ctx, testOwner, params.Code))

	err := reg.Register(ctx, testOwner, params)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)
	assert.Equal(t, interfaces.StatusInactive, reg.Status(params.Code))
}

func TestMemoryRegistry_VerifyHash(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t)
	params := goldParams("AU-KIBALI")
	require.NoError(t, reg.Register(ctx, testOwner, params))

	ok, err := reg.VerifyHash(ctx, params.Code, params.DocumentHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.VerifyHash(ctx, params.Code, interfaces.DocumentHash{})
	require.NoError(t, err)
	assert.False(t, ok, "all-zero hash must not match")

	other := params.DocumentHash
	other[31] ^= 0x01
	ok, err = reg.VerifyHash(ctx, params.Code, other)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = reg.VerifyHash(ctx, interfaces.NewAssetCode("UNKNOWN"), params.DocumentHash)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestMemoryRegistry_UpdateValue(t *testing.T) {
	ctx := context.Background()
	reg, sink, clock := setupRegistry(t)
	params := goldParams("AU-KIBALI")
	require.NoError(t, reg.Register(ctx, testOwner, params))

	clock.now += 3600
	require.NoError(t, reg.UpdateValue(ctx, testOwner, params.Code, big.NewInt(7_000_000_000)))

	record, err := reg.Get(ctx, params.Code)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7_000_000_000), record.Value)
	assert.Equal(t, uint64(1_700_003_600), record.LastUpdated)

	assert.Equal(t, []string{interfaces.EventAssetRegistered, interfaces.EventAssetUpdated}, sink.names())
	updated := sink.events[1].(interfaces.AssetUpdated)
	assert.Equal(t, uint64(1_700_003_600), updated.Timestamp)

	err = reg.UpdateValue(ctx, testOther, params.Code, big.NewInt(1))
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	err = reg.UpdateValue(ctx, testOwner, params.Code, big.NewInt(0))
	assert.ErrorIs(t, err, interfaces.ErrInvalidValue)

	err = reg.UpdateValue(ctx, testOwner, params.Code, new(big.Int).Lsh(big.NewInt(1), 256))
	assert.ErrorIs(t, err, interfaces.ErrInvalidValue)

	err = reg.UpdateValue(ctx, testOwner, interfaces.NewAssetCode("UNKNOWN"), big.NewInt(1))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	record, err = reg.Get(ctx, params.Code)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7_000_000_000), record.Value)
}

func TestMemoryRegistry_TimestampsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	reg, _, clock := setupRegistry(t)
	params := goldParams("AU-KIBALI")
	require.NoError(t, reg.Register(ctx, testOwner, params))

	clock.now -= 100
	require.NoError(t, reg.UpdateValue(ctx, testOwner, params.Code, big.NewInt(7_000_000_000)))

	record, err := reg.Get(ctx, params.Code)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_000), record.LastUpdated)
}

func TestMemoryRegistry_Deactivate(t *testing.T) {
	ctx := context.Background()
	reg, sink, _ := setupRegistry(t)
	first := goldParams("AU-KIBALI")
	second := goldParams("AU-GEITA")
	require.NoError(t, reg.Register(ctx, testOwner, first))
	require.NoError(t, reg.Register(ctx, testOwner, second))

	err := reg.Deactivate(ctx, testOther, first.Code)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	require.NoError(t, reg.Deactivate(ctx, testOwner, first.Code))

	_, err = reg.Get(ctx, first.Code)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = reg.VerifyHash(ctx, first.Code, first.DocumentHash)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	err = reg.UpdateValue(ctx, testOwner, first.Code, big.NewInt(1))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	err = reg.Deactivate(ctx, testOwner, first.Code)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	code, err := reg.CodeAt(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, first.Code, code)
	code, err = reg.CodeAt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.Code, code)

	assert.Equal(t, []string{
		interfaces.EventAssetRegistered,
		interfaces.EventAssetRegistered,
		interfaces.EventAssetDeactivated,
	}, sink.names())
}

func TestMemoryRegistry_CodeAtOutOfRange(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t)

	_, err := reg.CodeAt(ctx, 0)
	assert.ErrorIs(t, err, interfaces.ErrIndexOutOfRange)

	require.NoError(t, reg.Register(ctx, testOwner, goldParams("AU-KIBALI")))
	_, err = reg.CodeAt(ctx, 1)
	assert.ErrorIs(t, err, interfaces.ErrIndexOutOfRange)
}

func TestMemoryRegistry_Status(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t)
	params := goldParams("AU-KIBALI")

	assert.Equal(t, interfaces.StatusUnregistered, reg.Status(params.Code))
	require.NoError(t, reg.Register(ctx, testOwner, params))
	assert.Equal(t, interfaces.StatusActive, reg.Status(params.Code))
	require.NoError(t, reg.Deactivate(ctx, testOwner, params.Code))
	assert.Equal(t, interfaces.StatusInactive, reg.Status(params.Code))
}

func TestMemoryRegistry_TransferOwnership(t *testing.T) {
	ctx := context.Background()
	reg, sink, _ := setupRegistry(t)

	err := reg.TransferOwnership(ctx, testOther, testOther)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	err = reg.TransferOwnership(ctx, testOwner, common.Address{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidHolder)

	require.NoError(t, reg.TransferOwnership(ctx, testOwner, testOther))

	owner, err := reg.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, testOther, owner)

	err = reg.Register(ctx, testOwner, goldParams("AU-KIBALI"))
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
	require.NoError(t, reg.Register(ctx, testOther, goldParams("AU-KIBALI")))

	require.Len(t, sink.events, 2)
	transferred := sink.events[0].(interfaces.OwnershipTransferred)
	assert.Equal(t, testRegistryAddr, transferred.Emitter)
	assert.Equal(t, testOwner, transferred.PreviousOwner)
	assert.Equal(t, testOther, transferred.NewOwner)
}

func TestMemoryRegistry_ConcurrentRegistrations(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t)

	codes := []string{"AU-1", "AU-2", "AU-3", "AU-4", "AU-5", "AU-6", "AU-7", "AU-8"}
	var wg sync.WaitGroup
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			assert.NoError(t, reg.Register(ctx, testOwner, goldParams(code)))
		}(code)
	}
	wg.Wait()

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(codes)), count)

	seen := make(map[interfaces.AssetCode]bool)
	for i := uint64(0); i < count; i++ {
		code, err := reg.CodeAt(ctx, i)
		require.NoError(t, err)
		seen[code] = true
	}
	assert.Len(t, seen, len(codes))
}
