package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

var (
	// ErrNoTransactOpts is returned when a transaction is attempted without first setting transaction options.
	ErrNoTransactOpts = errors.New("no authorized transactor available")

	// ErrTransactionReverted is returned when a mined transaction has a failed status.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// onchainAsset mirrors the tuple returned by getAsset.
type onchainAsset struct {
	Name             string
	Standard         uint8
	Jurisdiction     string
	Value            *big.Int
	ResourceQuantity *big.Int
	InSituQuantity   *big.Int
	DocumentHash     [32]byte
	LastUpdated      *big.Int
	Holder           common.Address
	Active           bool
}

// DefaultMineTimeout bounds how long a sent transaction is waited for.
const DefaultMineTimeout = 2 * time.Minute

// OnchainRegistryClient implements interfaces.AssetRegistry against a deployed
// registry contract. Mutations are sent as transactions signed by the
// configured transactor and block until mined.
type OnchainRegistryClient struct {
	contract    *bind.BoundContract
	abi         abi.ABI
	backend     bind.DeployBackend
	address     common.Address
	auth        *bind.TransactOpts
	mineTimeout time.Duration
}

// NewOnchainRegistryClient creates a new client for the registry contract at address.
// It requires a ContractBackend for reading from the chain and a DeployBackend for
// waiting on transactions.
func NewOnchainRegistryClient(client bind.ContractBackend, backend bind.DeployBackend, address common.Address) (*OnchainRegistryClient, error) {
	parsed, err := ParseAssetRegistryABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	return &OnchainRegistryClient{
		contract:    bind.NewBoundContract(address, parsed, client, client, client),
		abi:         parsed,
		backend:     backend,
		address:     address,
		mineTimeout: DefaultMineTimeout,
	}, nil
}

// SetMineTimeout changes how long a sent transaction is waited for.
func (c *OnchainRegistryClient) SetMineTimeout(timeout time.Duration) {
	c.mineTimeout = timeout
}

// SetTransactOpts sets the transaction options required for functions that modify state.
func (c *OnchainRegistryClient) SetTransactOpts(auth *bind.TransactOpts) {
	c.auth = auth
}

// Address returns the contract address.
func (c *OnchainRegistryClient) Address() common.Address {
	return c.address
}

// Owner reads the contract owner.
func (c *OnchainRegistryClient) Owner(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "owner"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Register sends a registerAsset transaction.
func (c *OnchainRegistryClient) Register(ctx context.Context, caller common.Address, params interfaces.RegisterParams) error {
	return c.transact(ctx, caller, "registerAsset",
		[32]byte(params.Code),
		params.Name,
		uint8(params.Standard),
		params.Jurisdiction,
		orZero(params.Value),
		orZero(params.ResourceQuantity),
		orZero(params.InSituQuantity),
		[32]byte(params.DocumentHash),
		params.Holder,
	)
}

// UpdateValue sends an updateValue transaction.
func (c *OnchainRegistryClient) UpdateValue(ctx context.Context, caller common.Address, code interfaces.AssetCode, newValue *big.Int) error {
	return c.transact(ctx, caller, "updateValue", [32]byte(code), orZero(newValue))
}

// Deactivate sends a deactivate transaction.
func (c *OnchainRegistryClient) Deactivate(ctx context.Context, caller common.Address, code interfaces.AssetCode) error {
	return c.transact(ctx, caller, "deactivate", [32]byte(code))
}

// Get reads an active asset record.
func (c *OnchainRegistryClient) Get(ctx context.Context, code interfaces.AssetCode) (interfaces.AssetRecord, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "getAsset", [32]byte(code)); err != nil {
		return interfaces.AssetRecord{}, err
	}

	asset := *abi.ConvertType(out[0], new(onchainAsset)).(*onchainAsset)
	record := interfaces.AssetRecord{
		Code:             code,
		Name:             asset.Name,
		Standard:         interfaces.ReportingStandard(asset.Standard),
		Jurisdiction:     asset.Jurisdiction,
		Value:            asset.Value,
		ResourceQuantity: asset.ResourceQuantity,
		InSituQuantity:   asset.InSituQuantity,
		DocumentHash:     interfaces.DocumentHash(asset.DocumentHash),
		Holder:           asset.Holder,
		Active:           asset.Active,
	}
	if asset.LastUpdated != nil {
		record.LastUpdated = asset.LastUpdated.Uint64()
	}
	return record, nil
}

// VerifyHash calls verifyHash on the contract.
func (c *OnchainRegistryClient) VerifyHash(ctx context.Context, code interfaces.AssetCode, candidate interfaces.DocumentHash) (bool, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "verifyHash", [32]byte(code), [32]byte(candidate)); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Count reads the number of registered codes.
func (c *OnchainRegistryClient) Count(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "assetCount"); err != nil {
		return 0, err
	}
	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !count.IsUint64() {
		return 0, fmt.Errorf("asset count %s overflows uint64", count)
	}
	return count.Uint64(), nil
}

// CodeAt reads the code at an enumeration position.
func (c *OnchainRegistryClient) CodeAt(ctx context.Context, index uint64) (interfaces.AssetCode, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "assetCodeAt", new(big.Int).SetUint64(index)); err != nil {
		return interfaces.AssetCode{}, err
	}
	return interfaces.AssetCode(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

// TransferOwnership sends a transferOwnership transaction.
func (c *OnchainRegistryClient) TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) error {
	return c.transact(ctx, caller, "transferOwnership", newOwner)
}

func (c *OnchainRegistryClient) call(ctx context.Context, out *[]interface{}, method string, params ...interface{}) error {
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, out, method, params...); err != nil {
		return c.translateError(method, err)
	}
	return nil
}

// transact sends a transaction as caller and waits for it to be mined. The
// client can only act as the account its transactor signs for.
//
// Once sent, the transaction is waited for up to mineTimeout even if ctx is
// cancelled. A transaction still unmined by then yields ErrUpdatePending.
func (c *OnchainRegistryClient) transact(ctx context.Context, caller common.Address, method string, params ...interface{}) error {
	if c.auth == nil {
		return ErrNoTransactOpts
	}
	if caller != c.auth.From {
		return fmt.Errorf("%w: transactor signs for %s, not %s", interfaces.ErrUnauthorized, c.auth.From.Hex(), caller.Hex())
	}

	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		return c.translateError(method, err)
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.mineTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		return fmt.Errorf("%w: %s transaction %s: %v", interfaces.ErrUpdatePending, method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s in transaction %s", ErrTransactionReverted, method, tx.Hash().Hex())
	}
	return nil
}

// translateError maps contract custom-error reverts onto registry sentinel errors.
// Errors carrying no recognizable revert data are returned wrapped as is.
func (c *OnchainRegistryClient) translateError(method string, err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return fmt.Errorf("%s: %w", method, err)
	}

	var data []byte
	switch v := dataErr.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(v)
		if decodeErr != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		data = decoded
	case []byte:
		data = v
	default:
		return fmt.Errorf("%s: %w", method, err)
	}

	if name, sentinel, ok := c.revertReason(data); ok {
		return fmt.Errorf("%w: %s reverted with %s", sentinel, method, name)
	}
	return fmt.Errorf("%s: %w", method, err)
}

func (c *OnchainRegistryClient) revertReason(data []byte) (string, error, bool) {
	if len(data) < 4 {
		return "", nil, false
	}
	for name, abiErr := range c.abi.Errors {
		if !bytes.Equal(abiErr.ID[:4], data[:4]) {
			continue
		}
		sentinel, known := revertErrors[name]
		return name, sentinel, known
	}
	return "", nil, false
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// RegistryFactory creates OnchainRegistryClient instances for different contract addresses.
type RegistryFactory struct {
	client  bind.ContractBackend
	backend bind.DeployBackend
	auth    *bind.TransactOpts
}

// NewRegistryFactory creates a new factory for registry clients. auth may be nil
// for read-only clients.
func NewRegistryFactory(client bind.ContractBackend, backend bind.DeployBackend, auth *bind.TransactOpts) *RegistryFactory {
	return &RegistryFactory{client: client, backend: backend, auth: auth}
}

// RegistryFor returns a registry client for the contract at address.
func (f *RegistryFactory) RegistryFor(address common.Address) (interfaces.AssetRegistry, error) {
	client, err := NewOnchainRegistryClient(f.client, f.backend, address)
	if err != nil {
		return nil, err
	}
	if f.auth != nil {
		client.SetTransactOpts(f.auth)
	}
	return client, nil
}
