package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event names as published to auditors and indexers.
const (
	EventAssetRegistered          = "AssetRegistered"
	EventAssetUpdated             = "AssetUpdated"
	EventAssetDeactivated         = "AssetDeactivated"
	EventProofSubmitted           = "ProofSubmitted"
	EventOwnershipTransferred     = "OwnershipTransferred"
	EventRegistryReferenceUpdated = "RegistryReferenceUpdated"
)

// Event is a state change emitted by the registry or the coordinator.
type Event interface {
	// EventName returns one of the Event* constants.
	EventName() string
}

// AssetScoped is implemented by events that concern a single asset.
type AssetScoped interface {
	AssetCode() AssetCode
}

// EventSink receives events in the order the state changes were committed.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

type AssetRegistered struct {
	Code         AssetCode    `json:"code"`
	Name         string       `json:"name"`
	Value        *big.Int     `json:"value"`
	DocumentHash DocumentHash `json:"document_hash"`
}

func (AssetRegistered) EventName() string {
	return EventAssetRegistered
}

func (e AssetRegistered) AssetCode() AssetCode {
	return e.Code
}

type AssetUpdated struct {
	Code      AssetCode `json:"code"`
	NewValue  *big.Int  `json:"new_value"`
	Timestamp uint64    `json:"timestamp"`
}

func (AssetUpdated) EventName() string {
	return EventAssetUpdated
}

func (e AssetUpdated) AssetCode() AssetCode {
	return e.Code
}

type AssetDeactivated struct {
	Code AssetCode `json:"code"`
}

func (AssetDeactivated) EventName() string {
	return EventAssetDeactivated
}

func (e AssetDeactivated) AssetCode() AssetCode {
	return e.Code
}

type ProofSubmitted struct {
	Code      AssetCode `json:"code"`
	Value     *big.Int  `json:"value"`
	Timestamp uint64    `json:"timestamp"`
	FeedID    FeedID    `json:"feed_id"`
}

func (ProofSubmitted) EventName() string {
	return EventProofSubmitted
}

func (e ProofSubmitted) AssetCode() AssetCode {
	return e.Code
}

// OwnershipTransferred is emitted by both the registry and the coordinator.
// Emitter is the ledger identity of the component whose owner changed.
type OwnershipTransferred struct {
	Emitter       common.Address `json:"emitter"`
	PreviousOwner common.Address `json:"previous_owner"`
	NewOwner      common.Address `json:"new_owner"`
}

func (OwnershipTransferred) EventName() string {
	return EventOwnershipTransferred
}

type RegistryReferenceUpdated struct {
	NewRegistry common.Address `json:"new_registry"`
}

func (RegistryReferenceUpdated) EventName() string {
	return EventRegistryReferenceUpdated
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}
