package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PurchaseClaim is the decoded payload accompanying a proof submission. The
// canonical byte encoding of this tuple is what the proof seal commits to, so
// every field is compared against the listing or the deployment configuration
// before the proof itself is checked.
type PurchaseClaim struct {
	NotaryKeyFingerprint  [32]byte
	Method                string
	URL                   string
	QueriesCommitment     [32]byte
	CredentialsCommitment [32]byte
	Shipping              ShippingState
}

var (
	bytes32Type = mustABIType("bytes32")
	stringType  = mustABIType("string")
	uint8Type   = mustABIType("uint8")
	uint256Type = mustABIType("uint256")
	addressType = mustABIType("address")
)

func mustABIType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("market: abi type %s: %v", name, err))
	}
	return t
}

var claimArguments = abi.Arguments{
	{Name: "notaryKeyFingerprint", Type: bytes32Type},
	{Name: "method", Type: stringType},
	{Name: "url", Type: stringType},
	{Name: "queriesCommitment", Type: bytes32Type},
	{Name: "credentialsCommitment", Type: bytes32Type},
	{Name: "shippingState", Type: uint8Type},
}

// Encode renders the canonical ABI tuple encoding of the claim. The digest of
// this exact byte string is what the verifier checks the seal against.
func (c *PurchaseClaim) Encode() ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("market: nil purchase claim")
	}
	if !c.Shipping.Valid() {
		return nil, fmt.Errorf("market: invalid shipping state %d", c.Shipping)
	}
	return claimArguments.Pack(
		c.NotaryKeyFingerprint,
		c.Method,
		c.URL,
		c.QueriesCommitment,
		c.CredentialsCommitment,
		uint8(c.Shipping),
	)
}

// DecodePurchaseClaim parses the canonical tuple encoding produced by the
// off-chain proof-compression pipeline.
func DecodePurchaseClaim(data []byte) (*PurchaseClaim, error) {
	values, err := claimArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("market: decode purchase claim: %w", err)
	}
	if len(values) != 6 {
		return nil, fmt.Errorf("market: decode purchase claim: unexpected arity %d", len(values))
	}
	notary, ok := values[0].([32]byte)
	if !ok {
		return nil, fmt.Errorf("market: decode purchase claim: notary fingerprint")
	}
	method, ok := values[1].(string)
	if !ok {
		return nil, fmt.Errorf("market: decode purchase claim: method")
	}
	url, ok := values[2].(string)
	if !ok {
		return nil, fmt.Errorf("market: decode purchase claim: url")
	}
	queries, ok := values[3].([32]byte)
	if !ok {
		return nil, fmt.Errorf("market: decode purchase claim: queries commitment")
	}
	credentials, ok := values[4].([32]byte)
	if !ok {
		return nil, fmt.Errorf("market: decode purchase claim: credentials commitment")
	}
	shipping, ok := values[5].(uint8)
	if !ok {
		return nil, fmt.Errorf("market: decode purchase claim: shipping state")
	}
	state := ShippingState(shipping)
	if !state.Valid() {
		return nil, fmt.Errorf("market: decode purchase claim: shipping state %d out of range", shipping)
	}
	return &PurchaseClaim{
		NotaryKeyFingerprint:  notary,
		Method:                method,
		URL:                   url,
		QueriesCommitment:     queries,
		CredentialsCommitment: credentials,
		Shipping:              state,
	}, nil
}

// ClaimDigest hashes the canonical claim encoding. The verifier receives this
// digest alongside the seal and the configured program id.
func ClaimDigest(purchaseData []byte) [32]byte {
	return [32]byte(ethcrypto.Keccak256Hash(purchaseData))
}
