package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// AssetListResponse enumerates every code ever registered, in registration order.
type AssetListResponse struct {
	Count uint64                 `json:"count"`
	Codes []interfaces.AssetCode `json:"codes"`
}

// AssetResponse is an active asset record with its value rendered as a decimal.
type AssetResponse struct {
	interfaces.AssetRecord
	ValueDecimal string `json:"value_decimal"`
}

// VerifyHashResponse answers whether a fingerprint matches an asset's document.
type VerifyHashResponse struct {
	AssetCode    interfaces.AssetCode    `json:"asset_code"`
	DocumentHash interfaces.DocumentHash `json:"document_hash"`
	Match        bool                    `json:"match"`
}

// ProofResponse is the latest proof for an asset. Exists is false, with a zero
// record, when no proof was ever submitted.
type ProofResponse struct {
	AssetCode interfaces.AssetCode   `json:"asset_code"`
	Exists    bool                   `json:"exists"`
	Proof     interfaces.ProofRecord `json:"proof"`
}

// RegisterAssetResponse is returned once an asset was registered.
type RegisterAssetResponse struct {
	AssetCode     interfaces.AssetCode `json:"asset_code"`
	HumanCode     string               `json:"human_code"`
	EffectiveDate string               `json:"effective_date,omitempty"`
}

// SubmitProofRequest names the feed whose latest attestation is applied.
// Feed is either a feed name or a 0x-prefixed feed id.
type SubmitProofRequest struct {
	Feed string `json:"feed"`
}

// TransferOwnershipRequest hands the coordinator to a new owner.
type TransferOwnershipRequest struct {
	NewOwner common.Address `json:"new_owner"`
}

// UpdateRegistryRequest points the coordinator at another registry contract.
type UpdateRegistryRequest struct {
	Registry common.Address `json:"registry"`
}

// DocumentResponse is returned after archiving a source document.
type DocumentResponse struct {
	DocumentHash interfaces.DocumentHash `json:"document_hash"`
	Size         int                     `json:"size"`
}

// StatusResponse is a generic acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}
