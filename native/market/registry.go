package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"proofmarket/core/events"
)

var listingArguments = abi.Arguments{
	{Name: "url", Type: stringType},
	{Name: "amount", Type: uint256Type},
	{Name: "shopper", Type: addressType},
	{Name: "credentialsCommitment", Type: bytes32Type},
}

var credentialsArguments = abi.Arguments{
	{Name: "fullName", Type: stringType},
	{Name: "email", Type: stringType},
	{Name: "homeAddress", Type: stringType},
	{Name: "city", Type: stringType},
	{Name: "country", Type: stringType},
	{Name: "zip", Type: stringType},
}

// CalculateListingID derives the content-addressed identifier of a listing.
// The function is pure: callers can predict an id before submission.
func CalculateListingID(l *Listing) ([32]byte, error) {
	if l == nil {
		return [32]byte{}, fmt.Errorf("market: nil listing")
	}
	encoded, err := listingArguments.Pack(
		l.URL,
		cloneBigInt(l.Amount),
		common.BytesToAddress(l.Shopper[:]),
		l.CredentialsCommitment,
	)
	if err != nil {
		return [32]byte{}, fmt.Errorf("market: encode listing: %w", err)
	}
	return [32]byte(ethcrypto.Keccak256Hash(encoded)), nil
}

// CredentialsCommitment hashes the six raw credential fields in fixed order so
// the commitment can be produced without ever persisting personal data.
func CredentialsCommitment(raw RawCredentials) ([32]byte, error) {
	encoded, err := credentialsArguments.Pack(
		raw.FullName,
		raw.Email,
		raw.HomeAddress,
		raw.City,
		raw.Country,
		raw.Zip,
	)
	if err != nil {
		return [32]byte{}, fmt.Errorf("market: encode credentials: %w", err)
	}
	return [32]byte(ethcrypto.Keccak256Hash(encoded)), nil
}

// List collects the listing collateral from the shopper's external wallet,
// locks it against the new listing and persists the listing under its
// content-addressed id.
func (e *Engine) List(listing *Listing) ([32]byte, error) {
	if err := e.ready(); err != nil {
		return [32]byte{}, err
	}
	if listing == nil {
		return [32]byte{}, fmt.Errorf("market: nil listing")
	}
	if listing.URL == "" {
		return [32]byte{}, ErrInvalidListingURL
	}
	if listing.Shopper == ([20]byte{}) {
		return [32]byte{}, ErrInvalidShopper
	}
	amount := cloneBigInt(listing.Amount)
	if amount.Sign() <= 0 {
		return [32]byte{}, ErrInvalidAmount
	}
	id, err := CalculateListingID(listing)
	if err != nil {
		return [32]byte{}, err
	}
	existing, ok, err := e.state.ListingGet(id)
	if err != nil {
		return [32]byte{}, err
	}
	if ok && existing.Exists() {
		return [32]byte{}, ErrListingExists
	}
	// Collateral deposit and lock happen together: the deposit failure
	// propagates from the ledger untouched.
	if err := e.ledger.DepositFrom(listing.Shopper, e.params.PaymentToken, amount); err != nil {
		return [32]byte{}, err
	}
	if err := e.lock(listing.Shopper, amount); err != nil {
		_ = e.ledger.Withdraw(listing.Shopper, e.params.PaymentToken, amount)
		return [32]byte{}, err
	}
	stored := listing.Clone()
	stored.Amount = amount
	if err := e.state.ListingPut(stored); err != nil {
		_ = e.unlock(listing.Shopper, amount)
		_ = e.ledger.Withdraw(listing.Shopper, e.params.PaymentToken, amount)
		return [32]byte{}, err
	}
	e.emit(events.ListingCreated{
		ID:          id,
		Shopper:     listing.Shopper,
		URL:         listing.URL,
		Amount:      new(big.Int).Set(amount),
		Credentials: listing.CredentialsCommitment,
	})
	return id, nil
}

// FetchListing returns the stored listing for the id. An absent listing comes
// back as a zero-value entry whose shopper address is empty.
func (e *Engine) FetchListing(id [32]byte) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	listing, ok, err := e.state.ListingGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Listing{Amount: big.NewInt(0)}, nil
	}
	return listing.Clone(), nil
}
