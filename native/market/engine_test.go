package market

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"proofmarket/core/events"
	"proofmarket/ledger"
)

const (
	testPaymentToken   = "USDM"
	testPrincipalToken = "PMR"
	testChainID        = 1337
)

type mockState struct {
	listings map[[32]byte]*Listing
	locked   map[[20]byte]*big.Int
	nonces   map[string]bool
}

func newMockState() *mockState {
	return &mockState{
		listings: make(map[[32]byte]*Listing),
		locked:   make(map[[20]byte]*big.Int),
		nonces:   make(map[string]bool),
	}
}

func (m *mockState) ListingPut(l *Listing) error {
	if l == nil {
		return errors.New("nil listing")
	}
	id, err := CalculateListingID(l)
	if err != nil {
		return err
	}
	m.listings[id] = l.Clone()
	return nil
}

func (m *mockState) ListingGet(id [32]byte) (*Listing, bool, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, false, nil
	}
	return l.Clone(), true, nil
}

func (m *mockState) ListingDelete(id [32]byte) error {
	delete(m.listings, id)
	return nil
}

func (m *mockState) LockedGet(account [20]byte) (*big.Int, error) {
	locked, ok := m.locked[account]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(locked), nil
}

func (m *mockState) LockedPut(account [20]byte, amount *big.Int) error {
	m.locked[account] = new(big.Int).Set(amount)
	return nil
}

func nonceKey(authorizer [20]byte, nonce [32]byte) string {
	return string(authorizer[:]) + "/" + string(nonce[:])
}

func (m *mockState) AuthNonceUsed(authorizer [20]byte, nonce [32]byte) (bool, error) {
	return m.nonces[nonceKey(authorizer, nonce)], nil
}

func (m *mockState) AuthNonceMark(authorizer [20]byte, nonce [32]byte) error {
	m.nonces[nonceKey(authorizer, nonce)] = true
	return nil
}

func (m *mockState) AuthNonceUnmark(authorizer [20]byte, nonce [32]byte) error {
	delete(m.nonces, nonceKey(authorizer, nonce))
	return nil
}

type capturingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *capturingEmitter) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType())
	}
	return out
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestHash(fill byte) [32]byte {
	var hash [32]byte
	copy(hash[:], bytes.Repeat([]byte{fill}, 32))
	return hash
}

func testParams() Params {
	return Params{
		PaymentToken:         testPaymentToken,
		NotaryKeyFingerprint: newTestHash(0x11),
		QueriesCommitment:    newTestHash(0x22),
		ProofProgramID:       newTestHash(0x33),
		ChainID:              testChainID,
		ContractAddress:      newTestAddress(0xCA),
	}
}

var acceptAllVerifier = VerifierFunc(func([]byte, [32]byte, [32]byte) error { return nil })

func newTestEngine(t *testing.T, state *mockState) (*Engine, *ledger.Memory) {
	t.Helper()
	balances := ledger.NewMemory(testPrincipalToken)
	engine := NewEngine(testParams())
	engine.SetState(state)
	engine.SetLedger(balances)
	engine.SetVerifier(acceptAllVerifier)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, balances
}

var signerKeySeed byte = 0x51

func mustGenerateSigner(t *testing.T) (*ecdsa.PrivateKey, [20]byte) {
	t.Helper()
	seed := bytes.Repeat([]byte{signerKeySeed}, 32)
	signerKeySeed++
	key, err := ethcrypto.ToECDSA(seed)
	if err != nil {
		t.Fatalf("derive key: %v", err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)
	var out [20]byte
	copy(out[:], addr[:])
	return key, out
}

func mustFundWallet(t *testing.T, balances *ledger.Memory, account [20]byte, amount int64) {
	t.Helper()
	if err := balances.FundWallet(account, testPaymentToken, big.NewInt(amount)); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
}

func mustDeposit(t *testing.T, balances *ledger.Memory, account [20]byte, amount int64) {
	t.Helper()
	if err := balances.DepositFrom(account, testPaymentToken, big.NewInt(amount)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func testListing(shopper [20]byte, amount int64) *Listing {
	return &Listing{
		URL:                   "https://shop.example/orders/8841",
		Amount:                big.NewInt(amount),
		Shopper:               shopper,
		CredentialsCommitment: newTestHash(0x44),
	}
}

func mustList(t *testing.T, engine *Engine, listing *Listing) [32]byte {
	t.Helper()
	id, err := engine.List(listing)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return id
}

func validClaim(listing *Listing) *PurchaseClaim {
	return &PurchaseClaim{
		NotaryKeyFingerprint:  newTestHash(0x11),
		Method:                "GET",
		URL:                   listing.URL,
		QueriesCommitment:     newTestHash(0x22),
		CredentialsCommitment: listing.CredentialsCommitment,
		Shipping:              ShippingDelivered,
	}
}

func mustEncode(t *testing.T, claim *PurchaseClaim) []byte {
	t.Helper()
	encoded, err := claim.Encode()
	if err != nil {
		t.Fatalf("encode claim: %v", err)
	}
	return encoded
}

func balanceOf(t *testing.T, balances *ledger.Memory, account [20]byte) *big.Int {
	t.Helper()
	balance, err := balances.BalanceOf(account, testPaymentToken)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	return balance
}

func walletOf(t *testing.T, balances *ledger.Memory, account [20]byte) *big.Int {
	t.Helper()
	balance, err := balances.WalletBalanceOf(account, testPaymentToken)
	if err != nil {
		t.Fatalf("wallet balance of: %v", err)
	}
	return balance
}
