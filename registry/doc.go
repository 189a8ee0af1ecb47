// Package registry implements the asset registry: the authoritative,
// owner-gated store of asset records keyed by AssetCode.
//
// Two implementations of interfaces.AssetRegistry are provided:
//
//   - MemoryRegistry keeps records in process. Mutations are serialized under a
//     single lock, timestamps come from an injectable Clock and never decrease,
//     and events are emitted to an interfaces.EventSink after each commit.
//   - OnchainRegistryClient talks to a deployed registry contract through a
//     bind.BoundContract. Reads are eth_calls; mutations are transactions signed
//     by the configured transactor and awaited until mined. Contract custom
//     errors are mapped back onto the interfaces error sentinels.
//
// Records are never removed. Deactivate flips a record to inactive, after which
// Get, VerifyHash, UpdateValue and Deactivate report ErrNotFound for that code,
// while Count and CodeAt keep enumerating it. A deactivated code cannot be
// registered again.
//
// Usage:
//
//	reg, err := registry.NewMemoryRegistry(registryAddr, owner,
//	    registry.WithEventSink(sink),
//	    registry.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	err = reg.Register(ctx, owner, interfaces.RegisterParams{...})
//
// MockRegistry is a testify mock for code that depends on the interface.
package registry
