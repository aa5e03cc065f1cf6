package state

import (
	"math/big"
	"testing"

	"proofmarket/native/market"
	"proofmarket/storage"
)

func testStore() *Store {
	return NewStore(storage.NewMemDB())
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func testHash(fill byte) [32]byte {
	var hash [32]byte
	for i := range hash {
		hash[i] = fill
	}
	return hash
}

func TestListingRoundTrip(t *testing.T) {
	store := testStore()
	listing := &market.Listing{
		URL:                   "https://shop.example/orders/1",
		Amount:                big.NewInt(300),
		Shopper:               testAddr(0x01),
		CredentialsCommitment: testHash(0x44),
	}
	id, err := market.CalculateListingID(listing)
	if err != nil {
		t.Fatalf("calculate id: %v", err)
	}
	if err := store.ListingPut(listing); err != nil {
		t.Fatalf("put: %v", err)
	}

	loaded, ok, err := store.ListingGet(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected listing present")
	}
	if loaded.URL != listing.URL || loaded.Amount.Cmp(listing.Amount) != 0 ||
		loaded.Shopper != listing.Shopper || loaded.CredentialsCommitment != listing.CredentialsCommitment {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}

	if err := store.ListingDelete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err = store.ListingGet(id)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatalf("deleted listing must be absent")
	}
}

func TestLockedDefaultsToZero(t *testing.T) {
	store := testStore()
	locked, err := store.LockedGet(testAddr(0x02))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if locked.Sign() != 0 {
		t.Fatalf("expected zero locked, got %s", locked)
	}
}

func TestLockedPersists(t *testing.T) {
	store := testStore()
	account := testAddr(0x02)
	if err := store.LockedPut(account, big.NewInt(500)); err != nil {
		t.Fatalf("put: %v", err)
	}
	locked, err := store.LockedGet(account)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if locked.Int64() != 500 {
		t.Fatalf("expected 500, got %s", locked)
	}
	if err := store.LockedPut(account, big.NewInt(-1)); err == nil {
		t.Fatalf("negative locked must be rejected")
	}
}

func TestAuthNonceLifecycle(t *testing.T) {
	store := testStore()
	authorizer := testAddr(0x03)
	nonce := testHash(0xA1)

	used, err := store.AuthNonceUsed(authorizer, nonce)
	if err != nil {
		t.Fatalf("used: %v", err)
	}
	if used {
		t.Fatalf("fresh nonce must be unused")
	}

	if err := store.AuthNonceMark(authorizer, nonce); err != nil {
		t.Fatalf("mark: %v", err)
	}
	used, err = store.AuthNonceUsed(authorizer, nonce)
	if err != nil {
		t.Fatalf("used: %v", err)
	}
	if !used {
		t.Fatalf("marked nonce must be used")
	}

	// Same nonce under a different authorizer stays fresh.
	used, err = store.AuthNonceUsed(testAddr(0x04), nonce)
	if err != nil {
		t.Fatalf("used: %v", err)
	}
	if used {
		t.Fatalf("nonce scope must include the authorizer")
	}

	if err := store.AuthNonceUnmark(authorizer, nonce); err != nil {
		t.Fatalf("unmark: %v", err)
	}
	used, err = store.AuthNonceUsed(authorizer, nonce)
	if err != nil {
		t.Fatalf("used: %v", err)
	}
	if used {
		t.Fatalf("unmarked nonce must be unused")
	}
}
