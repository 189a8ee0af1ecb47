package coordinator

import (
	"context"
	"errors"
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

func systemClock() uint64 {
	return uint64(time.Now().Unix())
}

// Coordinator folds quorum-verified attestations into an asset registry.
// It is meant to be installed as the registry's owner and acts on the
// registry under its own ledger identity.
type Coordinator struct {
	mutex    sync.RWMutex
	self     common.Address
	owner    common.Address
	registry interfaces.AssetRegistry
	verifier interfaces.AttestationVerifier
	proofs   map[interfaces.AssetCode]interfaces.ProofRecord
	lastTime uint64

	clock Clock
	sink  interfaces.EventSink
	log   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the proof timestamp source.
func WithClock(clock Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithEventSink sets the sink receiving coordinator events.
func WithEventSink(sink interfaces.EventSink) Option {
	return func(c *Coordinator) {
		c.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// NewCoordinator creates a coordinator identified by self on the registry and
// administered by owner.
func NewCoordinator(self, owner common.Address, registry interfaces.AssetRegistry, verifier interfaces.AttestationVerifier, opts ...Option) (*Coordinator, error) {
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: owner must not be the zero address", interfaces.ErrInvalidHolder)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is required", interfaces.ErrInvalidReference)
	}
	if verifier == nil {
		return nil, fmt.Errorf("%w: verifier is required", interfaces.ErrInvalidReference)
	}

	c := &Coordinator{
		self:     self,
		owner:    owner,
		registry: registry,
		verifier: verifier,
		proofs:   make(map[interfaces.AssetCode]interfaces.ProofRecord),
		clock:    systemClock,
		sink:     interfaces.NopSink{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the identity the coordinator acts as on the registry.
func (c *Coordinator) Address() common.Address {
	return c.self
}

// Owner returns the coordinator's current owner.
func (c *Coordinator) Owner() common.Address {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.owner
}

// Registry returns the current registry reference.
func (c *Coordinator) Registry() interfaces.AssetRegistry {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.registry
}

// SubmitProof verifies the latest attestation for feed and applies it to the
// asset. The proof record is only committed once the registry accepted the new
// value; any failure leaves both the proof and the registry untouched.
func (c *Coordinator) SubmitProof(ctx context.Context, caller common.Address, code interfaces.AssetCode, feed interfaces.FeedID) (interfaces.ProofRecord, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkOwner(caller); err != nil {
		return interfaces.ProofRecord{}, err
	}

	verified, err := c.verifier.Verify(ctx, feed)
	if err != nil {
		c.log.Warn("Attestation verification failed",
			slog.String("code", code.String()),
			slog.String("feed", feed.String()),
			"err", err)
		return interfaces.ProofRecord{}, fmt.Errorf("%w: %w", interfaces.ErrAttestationFailed, err)
	}
	if verified.Value == nil || verified.Value.Sign() <= 0 {
		return interfaces.ProofRecord{}, fmt.Errorf("%w: feed %s reported %v", interfaces.ErrInvalidOracleValue, feed, verified.Value)
	}

	staged := interfaces.ProofRecord{
		Value:     new(big.Int).Set(verified.Value),
		Timestamp: c.now(),
		FeedID:    feed,
	}

	if err := c.registry.UpdateValue(ctx, c.self, code, staged.Value); err != nil {
		if errors.Is(err, interfaces.ErrUpdatePending) {
			c.log.Error("Registry update unconfirmed, proof not recorded",
				slog.String("code", code.String()),
				slog.String("value", staged.Value.String()),
				"err", err)
			return interfaces.ProofRecord{}, err
		}
		c.log.Warn("Registry rejected attested value",
			slog.String("code", code.String()),
			slog.String("value", staged.Value.String()),
			"err", err)
		return interfaces.ProofRecord{}, err
	}

	c.proofs[code] = staged

	c.log.Info("Proof submitted",
		slog.String("code", code.String()),
		slog.String("feed", feed.String()),
		slog.String("value", staged.Value.String()),
		slog.Int("signers", len(verified.Signers)))

	c.sink.Emit(context.WithoutCancel(ctx), interfaces.ProofSubmitted{
		Code:      code,
		Value:     new(big.Int).Set(staged.Value),
		Timestamp: staged.Timestamp,
		FeedID:    feed,
	})
	return copyProof(staged), nil
}

// GetLatestProof returns the most recent proof for code. A zero timestamp
// means no proof has been recorded.
func (c *Coordinator) GetLatestProof(code interfaces.AssetCode) interfaces.ProofRecord {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return copyProof(c.proofs[code])
}

// GetOracleValue runs the verifier for feed without touching any state.
func (c *Coordinator) GetOracleValue(ctx context.Context, feed interfaces.FeedID) (interfaces.VerifiedValue, error) {
	verified, err := c.verifier.Verify(ctx, feed)
	if err != nil {
		return interfaces.VerifiedValue{}, fmt.Errorf("%w: %w", interfaces.ErrAttestationFailed, err)
	}
	return verified, nil
}

// Register forwards an owner-approved registration to the registry.
func (c *Coordinator) Register(ctx context.Context, caller common.Address, params interfaces.RegisterParams) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkOwner(caller); err != nil {
		return err
	}
	return c.registry.Register(ctx, c.self, params)
}

// Deactivate forwards an owner-approved deactivation to the registry.
func (c *Coordinator) Deactivate(ctx context.Context, caller common.Address, code interfaces.AssetCode) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkOwner(caller); err != nil {
		return err
	}
	return c.registry.Deactivate(ctx, c.self, code)
}

// UpdateRegistryReference points the coordinator at a different registry.
// Proofs already recorded are kept.
func (c *Coordinator) UpdateRegistryReference(ctx context.Context, caller common.Address, registry interfaces.AssetRegistry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkOwner(caller); err != nil {
		return err
	}
	if registry == nil {
		return fmt.Errorf("%w: registry must not be nil", interfaces.ErrInvalidReference)
	}

	c.registry = registry

	c.log.Info("Registry reference updated", slog.String("registry", registry.Address().Hex()))

	c.sink.Emit(ctx, interfaces.RegistryReferenceUpdated{NewRegistry: registry.Address()})
	return nil
}

// TransferOwnership replaces the coordinator's owner.
func (c *Coordinator) TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.checkOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner must not be the zero address", interfaces.ErrInvalidHolder)
	}

	previous := c.owner
	c.owner = newOwner

	c.log.Info("Coordinator ownership transferred",
		slog.String("previous", previous.Hex()),
		slog.String("new", newOwner.Hex()))

	c.sink.Emit(ctx, interfaces.OwnershipTransferred{
		Emitter:       c.self,
		PreviousOwner: previous,
		NewOwner:      newOwner,
	})
	return nil
}

func (c *Coordinator) checkOwner(caller common.Address) error {
	if caller != c.owner {
		return fmt.Errorf("%w: %s is not the coordinator owner", interfaces.ErrUnauthorized, caller.Hex())
	}
	return nil
}

// now returns a non-zero timestamp that never goes backwards, so a committed
// proof is never mistaken for a missing one. Caller holds the write lock.
func (c *Coordinator) now() uint64 {
	t := max(c.clock(), c.lastTime, 1)
	c.lastTime = t
	return t
}

func copyProof(p interfaces.ProofRecord) interfaces.ProofRecord {
	if p.Value != nil {
		p.Value = new(big.Int).Set(p.Value)
	}
	return p
}
