package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"proofmarket/native/market"
	"proofmarket/storage"
)

var (
	listingPrefix   = "market/listing/"
	lockedPrefix    = "market/locked/"
	authNoncePrefix = "market/authnonce/"
)

// Store persists the settlement engine's keyed state (listings, locked
// balances, consumed authorization nonces) in a storage.Database. Values are
// JSON encoded with amounts rendered as decimal strings.
type Store struct {
	db storage.Database
}

// NewStore binds a store to the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedListing struct {
	URL         string `json:"url"`
	Amount      string `json:"amount"`
	Shopper     string `json:"shopper"`
	Credentials string `json:"credentials"`
}

func listingKey(id [32]byte) []byte {
	return []byte(listingPrefix + hex.EncodeToString(id[:]))
}

func lockedKey(account [20]byte) []byte {
	return []byte(lockedPrefix + hex.EncodeToString(account[:]))
}

func authNonceKey(authorizer [20]byte, nonce [32]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", authNoncePrefix, authorizer, nonce))
}

// ListingPut stores the listing under its content-addressed id.
func (s *Store) ListingPut(listing *market.Listing) error {
	if listing == nil {
		return fmt.Errorf("state: nil listing")
	}
	id, err := market.CalculateListingID(listing)
	if err != nil {
		return err
	}
	amount := "0"
	if listing.Amount != nil {
		amount = listing.Amount.String()
	}
	stored := storedListing{
		URL:         listing.URL,
		Amount:      amount,
		Shopper:     hex.EncodeToString(listing.Shopper[:]),
		Credentials: hex.EncodeToString(listing.CredentialsCommitment[:]),
	}
	encoded, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.db.Put(listingKey(id), encoded)
}

// ListingGet loads the listing for the id, reporting absence without error.
func (s *Store) ListingGet(id [32]byte) (*market.Listing, bool, error) {
	raw, err := s.db.Get(listingKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var stored storedListing
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode listing: %w", err)
	}
	amount, ok := new(big.Int).SetString(stored.Amount, 10)
	if !ok {
		return nil, false, fmt.Errorf("state: decode listing amount %q", stored.Amount)
	}
	shopperBytes, err := hex.DecodeString(stored.Shopper)
	if err != nil || len(shopperBytes) != 20 {
		return nil, false, fmt.Errorf("state: decode listing shopper %q", stored.Shopper)
	}
	credentialBytes, err := hex.DecodeString(stored.Credentials)
	if err != nil || len(credentialBytes) != 32 {
		return nil, false, fmt.Errorf("state: decode listing credentials %q", stored.Credentials)
	}
	listing := &market.Listing{URL: stored.URL, Amount: amount}
	copy(listing.Shopper[:], shopperBytes)
	copy(listing.CredentialsCommitment[:], credentialBytes)
	return listing, true, nil
}

// ListingDelete removes the listing so later reads report absence.
func (s *Store) ListingDelete(id [32]byte) error {
	return s.db.Delete(listingKey(id))
}

// LockedGet reports the account's locked total, zero when never written.
func (s *Store) LockedGet(account [20]byte) (*big.Int, error) {
	raw, err := s.db.Get(lockedKey(account))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	locked, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: decode locked amount %q", raw)
	}
	return locked, nil
}

// LockedPut stores the account's locked total.
func (s *Store) LockedPut(account [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: locked amount must be non-negative")
	}
	return s.db.Put(lockedKey(account), []byte(amount.String()))
}

// AuthNonceUsed reports whether the (authorizer, nonce) pair was consumed.
func (s *Store) AuthNonceUsed(authorizer [20]byte, nonce [32]byte) (bool, error) {
	return s.db.Has(authNonceKey(authorizer, nonce))
}

// AuthNonceMark records the (authorizer, nonce) pair as consumed.
func (s *Store) AuthNonceMark(authorizer [20]byte, nonce [32]byte) error {
	return s.db.Put(authNonceKey(authorizer, nonce), []byte{0x01})
}

// AuthNonceUnmark removes a consumed pair. Used only to roll back a failed
// authorization transfer; successful consumption is permanent.
func (s *Store) AuthNonceUnmark(authorizer [20]byte, nonce [32]byte) error {
	return s.db.Delete(authNonceKey(authorizer, nonce))
}
