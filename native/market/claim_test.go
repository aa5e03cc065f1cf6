package market

import (
	"testing"
)

func TestPurchaseClaimRoundTrip(t *testing.T) {
	claim := &PurchaseClaim{
		NotaryKeyFingerprint:  newTestHash(0x11),
		Method:                "GET",
		URL:                   "https://shop.example/orders/8841",
		QueriesCommitment:     newTestHash(0x22),
		CredentialsCommitment: newTestHash(0x44),
		Shipping:              ShippingDelivered,
	}
	encoded, err := claim.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodePurchaseClaim(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != *claim {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, claim)
	}
}

func TestDecodePurchaseClaimRejectsGarbage(t *testing.T) {
	if _, err := DecodePurchaseClaim([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatalf("expected decode failure")
	}
}

func TestDecodePurchaseClaimRejectsOutOfRangeShipping(t *testing.T) {
	claim := &PurchaseClaim{
		NotaryKeyFingerprint: newTestHash(0x11),
		Method:               "GET",
		URL:                  "https://shop.example/orders/8841",
		Shipping:             ShippingState(7),
	}
	if _, err := claim.Encode(); err == nil {
		t.Fatalf("expected encode failure for invalid shipping state")
	}
}

func TestClaimDigestIsStable(t *testing.T) {
	claim := &PurchaseClaim{
		NotaryKeyFingerprint:  newTestHash(0x11),
		Method:                "GET",
		URL:                   "https://shop.example/orders/8841",
		QueriesCommitment:     newTestHash(0x22),
		CredentialsCommitment: newTestHash(0x44),
		Shipping:              ShippingDelivered,
	}
	first := mustEncode(t, claim)
	second := mustEncode(t, claim)
	if ClaimDigest(first) != ClaimDigest(second) {
		t.Fatalf("identical claims must share a digest")
	}

	claim.URL = claim.URL + "x"
	third := mustEncode(t, claim)
	if ClaimDigest(first) == ClaimDigest(third) {
		t.Fatalf("digest must bind the url")
	}
}

func TestShippingStateValid(t *testing.T) {
	for _, s := range []ShippingState{ShippingInTransit, ShippingCanceled, ShippingPending, ShippingDelivered} {
		if !s.Valid() {
			t.Fatalf("state %d must be valid", s)
		}
	}
	if ShippingState(4).Valid() {
		t.Fatalf("state 4 must be invalid")
	}
}
