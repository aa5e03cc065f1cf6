package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0x5A}, 20)
	addr := NewAddress(ShopperPrefix, raw)
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(ShopperPrefix)+"1") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Prefix() != ShopperPrefix {
		t.Fatalf("expected prefix %q, got %q", ShopperPrefix, decoded.Prefix())
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("round trip mismatch: %x", decoded.Bytes())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-an-address"); err == nil {
		t.Fatalf("expected decode failure")
	}
}

func TestPrivateKeyDerivesAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if key.PubKey().Address().String() != restored.PubKey().Address().String() {
		t.Fatalf("restored key must derive the same address")
	}
}
