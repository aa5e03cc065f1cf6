package market

import (
	"errors"
	"math/big"
)

// ShippingState captures the delivery status extracted from the notarized web
// assertion. Only ShippingDelivered permits settlement.
type ShippingState uint8

const (
	ShippingInTransit ShippingState = iota
	ShippingCanceled
	ShippingPending
	ShippingDelivered
)

// Valid reports whether the state value is within the supported range.
func (s ShippingState) Valid() bool {
	switch s {
	case ShippingInTransit, ShippingCanceled, ShippingPending, ShippingDelivered:
		return true
	default:
		return false
	}
}

// Listing is a shopper's pledge of collateral tied to an expected purchase
// record. The identifier is the keccak256 hash of the canonical field encoding,
// so two listings with identical fields collide on the same id. Callers that
// need distinct listings for otherwise-identical intents must bake a
// distinguishing component into the URL.
type Listing struct {
	URL                   string
	Amount                *big.Int
	Shopper               [20]byte
	CredentialsCommitment [32]byte
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// stored instances.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Amount != nil {
		clone.Amount = new(big.Int).Set(l.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Exists reports whether the listing denotes a stored entry. A zero shopper
// address signals "not present".
func (l *Listing) Exists() bool {
	return l != nil && l.Shopper != ([20]byte{})
}

// RawCredentials carries the off-chain personal data a shopper commits to.
// Only the commitment hash ever reaches the public record.
type RawCredentials struct {
	FullName    string
	Email       string
	HomeAddress string
	City        string
	Country     string
	Zip         string
}

var (
	// ErrInvalidListing marks submissions against listings that do not exist
	// (never created or already settled).
	ErrInvalidListing = errors.New("market: invalid listing")
	// ErrListingExists marks attempts to relist an identical pledge. The id is
	// content-addressed, so a second deposit against the same id would lock
	// collateral that no settlement could ever release.
	ErrListingExists = errors.New("market: listing already exists")
	// ErrInvalidNotaryKeyFingerprint marks claims attested by an untrusted
	// notary.
	ErrInvalidNotaryKeyFingerprint = errors.New("market: invalid notary key fingerprint")
	// ErrOrderNotDelivered marks claims whose shipping state is anything other
	// than delivered.
	ErrOrderNotDelivered = errors.New("market: order wasn't delivered")
	// ErrWrongCredentials marks claims whose credentials commitment does not
	// match the listing.
	ErrWrongCredentials = errors.New("market: wrong credentials")
	// ErrInvalidURL marks claims whose method or URL do not match the listing.
	ErrInvalidURL = errors.New("market: invalid url")
	// ErrInvalidQueriesHash marks claims bound to data-extraction rules other
	// than the ones fixed at deployment.
	ErrInvalidQueriesHash = errors.New("market: invalid queries hash")
	// ErrProofVerificationFailed is the single error surfaced for any verifier
	// failure. Deeper verifier diagnostics are intentionally collapsed.
	ErrProofVerificationFailed = errors.New("market: zk proof verification failed")
	// ErrAuthorizationExpired marks authorizations outside their validity
	// window.
	ErrAuthorizationExpired = errors.New("market: authorization expired")
	// ErrAuthorizationUsed marks authorizations whose (authorizer, nonce)
	// pair was already consumed.
	ErrAuthorizationUsed = errors.New("market: authorization already used")
	// ErrInvalidSignature marks authorizations whose signature does not
	// recover to the claimed authorizer.
	ErrInvalidSignature = errors.New("market: invalid signature")
	// ErrInsufficientBalance marks withdrawals exceeding the withdrawable
	// portion of a balance.
	ErrInsufficientBalance = errors.New("market: insufficient withdrawable balance")
	// ErrInvalidAmount marks listings or transfers with nil, zero or negative
	// amounts.
	ErrInvalidAmount = errors.New("market: amount must be positive")
	// ErrInvalidShopper marks listings without a shopper address.
	ErrInvalidShopper = errors.New("market: shopper address required")
	// ErrInvalidListingURL marks listings without a target URL.
	ErrInvalidListingURL = errors.New("market: listing url required")
)
