package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-sql/civil"
	"github.com/ruteri/reserve-attestation-registry/interfaces"
)

// ErrInvalidPayload is returned when an ingestion payload fails validation.
var ErrInvalidPayload = errors.New("invalid ingestion payload")

var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Payload is the document ingestion output for a single asset, as produced by
// the ingestion pipeline.
type Payload struct {
	AssetCode        string      `json:"asset_code"`
	Name             string      `json:"name"`
	Standard         string      `json:"standard"`
	Jurisdiction     string      `json:"jurisdiction"`
	ValueUSD         json.Number `json:"value_usd"`
	ResourceQuantity json.Number `json:"resource_quantity"`
	InSituQuantity   json.Number `json:"in_situ_quantity"`
	DocumentHash     string      `json:"document_hash"`
	Holder           string      `json:"holder"`
	EffectiveDate    string      `json:"effective_date"`
}

// Registration is a validated payload ready to be registered.
type Registration struct {
	HumanCode     string
	EffectiveDate civil.Date
	Params        interfaces.RegisterParams
}

// DecodePayload reads a single JSON payload. Unknown fields are rejected.
func DecodePayload(r io.Reader) (*Payload, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var payload Payload
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &payload, nil
}

// Validate checks every field and converts the payload into registration
// parameters. All field problems are reported together.
func (p *Payload) Validate() (*Registration, error) {
	var errs []error
	fail := func(field string, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
	}

	humanCode := strings.TrimSpace(p.AssetCode)
	if humanCode == "" {
		fail("asset_code", "must not be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		fail("name", "must not be empty")
	}

	standard, err := interfaces.ParseReportingStandard(p.Standard)
	if err != nil {
		fail("standard", "%v", err)
	}

	if !jurisdictionPattern.MatchString(p.Jurisdiction) {
		fail("jurisdiction", "%q is not an ISO 3166-1 alpha-2 code", p.Jurisdiction)
	}

	value, err := ParseValue(p.ValueUSD.String())
	if err != nil {
		fail("value_usd", "%v", err)
	}

	resourceQuantity, err := parseQuantity(p.ResourceQuantity.String())
	if err != nil {
		fail("resource_quantity", "%v", err)
	}
	inSituQuantity, err := parseQuantity(p.InSituQuantity.String())
	if err != nil {
		fail("in_situ_quantity", "%v", err)
	}

	documentHash, err := parseDocumentHash(p.DocumentHash)
	if err != nil {
		fail("document_hash", "%v", err)
	}

	var holder common.Address
	switch {
	case !common.IsHexAddress(p.Holder):
		fail("holder", "%q is not an account address", p.Holder)
	default:
		holder = common.HexToAddress(p.Holder)
		if holder == (common.Address{}) {
			fail("holder", "must not be the zero address")
		}
	}

	effectiveDate, err := civil.ParseDate(p.EffectiveDate)
	if err != nil {
		fail("effective_date", "%q is not an ISO-8601 date", p.EffectiveDate)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, errors.Join(errs...))
	}

	return &Registration{
		HumanCode:     humanCode,
		EffectiveDate: effectiveDate,
		Params: interfaces.RegisterParams{
			Code:             interfaces.NewAssetCode(humanCode),
			Name:             p.Name,
			Standard:         standard,
			Jurisdiction:     p.Jurisdiction,
			Value:            value,
			ResourceQuantity: resourceQuantity,
			InSituQuantity:   inSituQuantity,
			DocumentHash:     documentHash,
			Holder:           holder,
		},
	}, nil
}

func parseQuantity(source string) (*big.Int, error) {
	quantity, ok := new(big.Int).SetString(source, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", source)
	}
	if quantity.Sign() < 0 {
		return nil, fmt.Errorf("must not be negative, got %s", quantity)
	}
	return quantity, nil
}

// parseDocumentHash accepts exactly 64 hex characters with an optional 0x prefix.
func parseDocumentHash(source string) (interfaces.DocumentHash, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(source, "0x"), "0X")
	if len(trimmed) != 64 {
		return interfaces.DocumentHash{}, fmt.Errorf("expected 64 hex characters, got %d", len(trimmed))
	}
	return interfaces.NewDocumentHashFromHex(trimmed)
}

// ParseValue converts a positive decimal amount into base units with
// interfaces.ValueDecimals fractional digits.
func ParseValue(source string) (*big.Int, error) {
	d, _, err := apd.NewFromString(source)
	if err != nil {
		return nil, fmt.Errorf("%q is not a decimal number", source)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("%q is not a finite number", source)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("must be positive, got %s", source)
	}

	ctx := apd.BaseContext.WithPrecision(100)
	scaled := new(apd.Decimal)
	condition, err := ctx.Quantize(scaled, d, -interfaces.ValueDecimals)
	if err != nil {
		return nil, fmt.Errorf("could not scale %q: %w", source, err)
	}
	if condition.Inexact() {
		return nil, fmt.Errorf("%q has more than %d fractional digits", source, interfaces.ValueDecimals)
	}
	return scaled.Coeff.MathBigInt(), nil
}

// FormatValue renders base units as a plain decimal without trailing zeros.
func FormatValue(baseUnits *big.Int) string {
	if baseUnits == nil {
		return "0"
	}
	d := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(baseUnits), -interfaces.ValueDecimals)
	d.Reduce(d)
	return d.Text('f')
}
