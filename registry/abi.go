package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// AssetRegistryABI is the interface of the deployed asset registry contract.
const AssetRegistryABI = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
  {"type":"function","name":"registerAsset","stateMutability":"nonpayable","inputs":[
    {"name":"code","type":"bytes32"},
    {"name":"name","type":"string"},
    {"name":"standard","type":"uint8"},
    {"name":"jurisdiction","type":"string"},
    {"name":"value","type":"uint256"},
    {"name":"resourceQuantity","type":"uint256"},
    {"name":"inSituQuantity","type":"uint256"},
    {"name":"documentHash","type":"bytes32"},
    {"name":"holder","type":"address"}],"outputs":[]},
  {"type":"function","name":"updateValue","stateMutability":"nonpayable","inputs":[{"name":"code","type":"bytes32"},{"name":"newValue","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"deactivate","stateMutability":"nonpayable","inputs":[{"name":"code","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"getAsset","stateMutability":"view","inputs":[{"name":"code","type":"bytes32"}],"outputs":[
    {"name":"","type":"tuple","components":[
      {"name":"name","type":"string"},
      {"name":"standard","type":"uint8"},
      {"name":"jurisdiction","type":"string"},
      {"name":"value","type":"uint256"},
      {"name":"resourceQuantity","type":"uint256"},
      {"name":"inSituQuantity","type":"uint256"},
      {"name":"documentHash","type":"bytes32"},
      {"name":"lastUpdated","type":"uint256"},
      {"name":"holder","type":"address"},
      {"name":"active","type":"bool"}]}]},
  {"type":"function","name":"verifyHash","stateMutability":"view","inputs":[{"name":"code","type":"bytes32"},{"name":"candidate","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"assetCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"assetCodeAt","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"error","name":"Unauthorized","inputs":[{"name":"caller","type":"address"}]},
  {"type":"error","name":"NotFound","inputs":[{"name":"code","type":"bytes32"}]},
  {"type":"error","name":"AlreadyExists","inputs":[{"name":"code","type":"bytes32"}]},
  {"type":"error","name":"InvalidValue","inputs":[]},
  {"type":"error","name":"InvalidHolder","inputs":[]},
  {"type":"error","name":"IndexOutOfRange","inputs":[{"name":"index","type":"uint256"}]},
  {"type":"event","name":"AssetRegistered","anonymous":false,"inputs":[
    {"name":"code","type":"bytes32","indexed":true},
    {"name":"name","type":"string","indexed":false},
    {"name":"value","type":"uint256","indexed":false},
    {"name":"documentHash","type":"bytes32","indexed":false}]},
  {"type":"event","name":"AssetUpdated","anonymous":false,"inputs":[
    {"name":"code","type":"bytes32","indexed":true},
    {"name":"newValue","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"AssetDeactivated","anonymous":false,"inputs":[{"name":"code","type":"bytes32","indexed":true}]},
  {"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[
    {"name":"previousOwner","type":"address","indexed":true},
    {"name":"newOwner","type":"address","indexed":true}]}
]`

// revertErrors maps the contract's custom errors onto the registry error taxonomy.
var revertErrors = map[string]error{
	"Unauthorized":    interfaces.ErrUnauthorized,
	"NotFound":        interfaces.ErrNotFound,
	"AlreadyExists":   interfaces.ErrAlreadyExists,
	"InvalidValue":    interfaces.ErrInvalidValue,
	"InvalidHolder":   interfaces.ErrInvalidHolder,
	"IndexOutOfRange": interfaces.ErrIndexOutOfRange,
}

// ParseAssetRegistryABI parses AssetRegistryABI.
func ParseAssetRegistryABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(AssetRegistryABI))
}
