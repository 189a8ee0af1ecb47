package registry

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// Clock returns the current ledger timestamp in unix seconds.
type Clock func() uint64

// SystemClock reads the wall clock.
func SystemClock() uint64 {
	return uint64(time.Now().Unix())
}

// MemoryRegistry is the in-process implementation of interfaces.AssetRegistry.
// All mutating calls are serialized, so they are applied atomically and in a
// single total order. Reads observe the latest committed state.
type MemoryRegistry struct {
	mutex    sync.RWMutex
	address  common.Address
	owner    common.Address
	records  map[interfaces.AssetCode]*assetEntry
	codes    []interfaces.AssetCode // append-only, includes inactive codes
	lastTime uint64

	clock Clock
	sink  interfaces.EventSink
	log   *slog.Logger
}

type assetEntry struct {
	record interfaces.AssetRecord
	status interfaces.AssetStatus
}

// MemoryRegistryOption configures a MemoryRegistry.
type MemoryRegistryOption func(*MemoryRegistry)

// WithClock overrides the ledger timestamp source.
func WithClock(clock Clock) MemoryRegistryOption {
	return func(r *MemoryRegistry) {
		r.clock = clock
	}
}

// WithEventSink sets the sink receiving registry events.
func WithEventSink(sink interfaces.EventSink) MemoryRegistryOption {
	return func(r *MemoryRegistry) {
		r.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) MemoryRegistryOption {
	return func(r *MemoryRegistry) {
		r.log = log
	}
}

// NewMemoryRegistry creates an empty registry identified by address and owned by owner.
func NewMemoryRegistry(address, owner common.Address, opts ...MemoryRegistryOption) (*MemoryRegistry, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: owner must not be the zero address", interfaces.ErrInvalidHolder)
	}

	r := &MemoryRegistry{
		address: address,
		owner:   owner,
		records: make(map[interfaces.AssetCode]*assetEntry),
		codes:   []interfaces.AssetCode{},
		clock:   SystemClock,
		sink:    interfaces.NopSink{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Address returns the ledger identity of this registry.
func (r *MemoryRegistry) Address() common.Address {
	return r.address
}

// Owner returns the current owner.
func (r *MemoryRegistry) Owner(ctx context.Context) (common.Address, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.owner, nil
}

// Register creates a new active asset record.
func (r *MemoryRegistry) Register(ctx context.Context, caller common.Address, params interfaces.RegisterParams) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkOwner(caller); err != nil {
		return err
	}
	if entry, exists := r.records[params.Code]; exists {
		return fmt.Errorf("%w: %s is %s", interfaces.ErrAlreadyExists, params.Code, entry.status)
	}
	if !isPositive(params.Value) {
		return fmt.Errorf("%w: value must be greater than zero", interfaces.ErrInvalidValue)
	}
	if !fitsUint256(params.Value) {
		return fmt.Errorf("%w: value does not fit 256 bits", interfaces.ErrInvalidValue)
	}
	if !isQuantity(params.ResourceQuantity) || !isQuantity(params.InSituQuantity) {
		return fmt.Errorf("%w: quantities must be non-negative and fit 256 bits", interfaces.ErrInvalidValue)
	}
	if params.Holder == (common.Address{}) {
		return fmt.Errorf("%w: holder must not be the zero address", interfaces.ErrInvalidHolder)
	}

	now := r.now()
	record := interfaces.AssetRecord{
		Code:             params.Code,
		Name:             params.Name,
		Standard:         params.Standard,
		Jurisdiction:     params.Jurisdiction,
		Value:            params.Value,
		ResourceQuantity: params.ResourceQuantity,
		InSituQuantity:   params.InSituQuantity,
		DocumentHash:     params.DocumentHash,
		LastUpdated:      now,
		Holder:           params.Holder,
		Active:           true,
	}.Clone()

	r.records[params.Code] = &assetEntry{record: record, status: interfaces.StatusActive}
	r.codes = append(r.codes, params.Code)

	r.log.Info("Asset registered",
		slog.String("code", params.Code.String()),
		slog.String("name", params.Name),
		slog.String("value", record.Value.String()))

	r.sink.Emit(ctx, interfaces.AssetRegistered{
		Code:         params.Code,
		Name:         params.Name,
		Value:        new(big.Int).Set(record.Value),
		DocumentHash: params.DocumentHash,
	})
	return nil
}

// UpdateValue sets a new value on an active record.
func (r *MemoryRegistry) UpdateValue(ctx context.Context, caller common.Address, code interfaces.AssetCode, newValue *big.Int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkOwner(caller); err != nil {
		return err
	}
	entry, err := r.activeEntry(code)
	if err != nil {
		return err
	}
	if !isPositive(newValue) {
		return fmt.Errorf("%w: value must be greater than zero", interfaces.ErrInvalidValue)
	}
	if !fitsUint256(newValue) {
		return fmt.Errorf("%w: value does not fit 256 bits", interfaces.ErrInvalidValue)
	}

	now := r.now()
	entry.record.Value = new(big.Int).Set(newValue)
	entry.record.LastUpdated = now

	r.log.Info("Asset value updated",
		slog.String("code", code.String()),
		slog.String("value", newValue.String()))

	r.sink.Emit(ctx, interfaces.AssetUpdated{
		Code:      code,
		NewValue:  new(big.Int).Set(newValue),
		Timestamp: now,
	})
	return nil
}

// Deactivate marks an active record inactive.
func (r *MemoryRegistry) Deactivate(ctx context.Context, caller common.Address, code interfaces.AssetCode) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkOwner(caller); err != nil {
		return err
	}
	entry, err := r.activeEntry(code)
	if err != nil {
		return err
	}

	entry.status = interfaces.StatusInactive
	entry.record.Active = false

	r.log.Info("Asset deactivated", slog.String("code", code.String()))

	r.sink.Emit(ctx, interfaces.AssetDeactivated{Code: code})
	return nil
}

// Get returns a copy of an active record.
func (r *MemoryRegistry) Get(ctx context.Context, code interfaces.AssetCode) (interfaces.AssetRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, err := r.activeEntry(code)
	if err != nil {
		return interfaces.AssetRecord{}, err
	}
	return entry.record.Clone(), nil
}

// VerifyHash reports whether candidate matches the stored document hash.
func (r *MemoryRegistry) VerifyHash(ctx context.Context, code interfaces.AssetCode, candidate interfaces.DocumentHash) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, err := r.activeEntry(code)
	if err != nil {
		return false, err
	}
	return entry.record.DocumentHash.Equal(candidate), nil
}

// Count returns the number of codes ever registered.
func (r *MemoryRegistry) Count(ctx context.Context) (uint64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return uint64(len(r.codes)), nil
}

// CodeAt returns the code registered at position index.
func (r *MemoryRegistry) CodeAt(ctx context.Context, index uint64) (interfaces.AssetCode, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if index >= uint64(len(r.codes)) {
		return interfaces.AssetCode{}, fmt.Errorf("%w: index %d, count %d", interfaces.ErrIndexOutOfRange, index, len(r.codes))
	}
	return r.codes[index], nil
}

// TransferOwnership replaces the owner.
func (r *MemoryRegistry) TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.checkOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner must not be the zero address", interfaces.ErrInvalidHolder)
	}

	previous := r.owner
	r.owner = newOwner

	r.log.Info("Registry ownership transferred",
		slog.String("previous", previous.Hex()),
		slog.String("new", newOwner.Hex()))

	r.sink.Emit(ctx, interfaces.OwnershipTransferred{
		Emitter:       r.address,
		PreviousOwner: previous,
		NewOwner:      newOwner,
	})
	return nil
}

// Status returns the lifecycle state of a code, including codes that were
// never registered. It never fails.
func (r *MemoryRegistry) Status(code interfaces.AssetCode) interfaces.AssetStatus {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.records[code]
	if !exists {
		return interfaces.StatusUnregistered
	}
	return entry.status
}

func (r *MemoryRegistry) checkOwner(caller common.Address) error {
	if caller != r.owner {
		return fmt.Errorf("%w: %s is not the registry owner", interfaces.ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (r *MemoryRegistry) activeEntry(code interfaces.AssetCode) (*assetEntry, error) {
	entry, exists := r.records[code]
	if !exists || entry.status != interfaces.StatusActive {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrNotFound, code)
	}
	return entry, nil
}

// now returns a timestamp that never goes backwards. Caller holds the write lock.
func (r *MemoryRegistry) now() uint64 {
	t := r.clock()
	if t < r.lastTime {
		t = r.lastTime
	}
	r.lastTime = t
	return t
}

func isPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

func fitsUint256(v *big.Int) bool {
	return v.BitLen() <= 256
}

// isQuantity accepts a missing quantity or one the ledger can store.
func isQuantity(v *big.Int) bool {
	return v == nil || (v.Sign() >= 0 && fitsUint256(v))
}
