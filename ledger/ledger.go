package ledger

import (
	"errors"
	"math/big"
	"strings"
	"sync"

	"proofmarket/core/events"
)

var (
	// ErrInvalidDepositAmount marks deposits that are nil, zero or negative.
	ErrInvalidDepositAmount = errors.New("ledger: deposit amount must be greater than zero")
	// ErrInvalidAmount marks credit/debit requests with nil or negative amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be non-negative")
	// ErrInsufficientBalance marks debits that exceed the available balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrInsufficientWalletFunds marks deposits that exceed the depositor's
	// external wallet balance.
	ErrInsufficientWalletFunds = errors.New("ledger: insufficient wallet funds")
	// ErrPrincipalNotWithdrawable marks withdrawal attempts against the
	// ledger's principal/reward token.
	ErrPrincipalNotWithdrawable = errors.New("ledger: principal token is not withdrawable")
	// ErrUnsupportedToken marks operations against an empty token symbol.
	ErrUnsupportedToken = errors.New("ledger: token symbol required")
)

// Ledger is the balance port consumed by the settlement core. Implementations
// are expected to apply each call atomically.
type Ledger interface {
	// DepositFrom pulls funds from the depositor's external wallet and
	// credits the matching internal balance.
	DepositFrom(depositor [20]byte, token string, amount *big.Int) error
	// Credit increases an internal balance.
	Credit(account [20]byte, token string, amount *big.Int) error
	// Debit decreases an internal balance, failing when it would go negative.
	Debit(account [20]byte, token string, amount *big.Int) error
	// BalanceOf reports the internal balance for the account and token.
	BalanceOf(account [20]byte, token string) (*big.Int, error)
	// Withdraw debits an internal balance and returns the funds to the
	// account's external wallet. The principal token is never withdrawable.
	Withdraw(account [20]byte, token string, amount *big.Int) error
}

// Memory is an in-memory Ledger used by the daemon in standalone mode and by
// package tests. It tracks both internal balances and the external wallet side
// so deposit and withdrawal flows can be exercised end to end.
type Memory struct {
	mu             sync.RWMutex
	balances       map[[20]byte]map[string]*big.Int
	wallets        map[[20]byte]map[string]*big.Int
	principalToken string
	emitter        events.Emitter
}

// NewMemory constructs an empty in-memory ledger. The principal token is the
// reward denomination that can never leave the ledger through Withdraw.
func NewMemory(principalToken string) *Memory {
	return &Memory{
		balances:       make(map[[20]byte]map[string]*big.Int),
		wallets:        make(map[[20]byte]map[string]*big.Int),
		principalToken: normalizeToken(principalToken),
		emitter:        events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (m *Memory) SetEmitter(emitter events.Emitter) {
	if m == nil {
		return
	}
	if emitter == nil {
		m.emitter = events.NoopEmitter{}
		return
	}
	m.emitter = emitter
}

func normalizeToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

func getBucket(set map[[20]byte]map[string]*big.Int, account [20]byte, token string) *big.Int {
	tokens, ok := set[account]
	if !ok {
		return big.NewInt(0)
	}
	value, ok := tokens[token]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(value)
}

func putBucket(set map[[20]byte]map[string]*big.Int, account [20]byte, token string, value *big.Int) {
	tokens, ok := set[account]
	if !ok {
		tokens = make(map[string]*big.Int)
		set[account] = tokens
	}
	tokens[token] = new(big.Int).Set(value)
}

// FundWallet seeds an account's external wallet. It stands in for on-chain
// token acquisition in tests and the standalone daemon.
func (m *Memory) FundWallet(account [20]byte, token string, amount *big.Int) error {
	normalized := normalizeToken(token)
	if normalized == "" {
		return ErrUnsupportedToken
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current := getBucket(m.wallets, account, normalized)
	putBucket(m.wallets, account, normalized, new(big.Int).Add(current, amount))
	return nil
}

// WalletBalanceOf reports the external wallet balance for the account.
func (m *Memory) WalletBalanceOf(account [20]byte, token string) (*big.Int, error) {
	normalized := normalizeToken(token)
	if normalized == "" {
		return nil, ErrUnsupportedToken
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return getBucket(m.wallets, account, normalized), nil
}

// DepositFrom implements the Ledger interface.
func (m *Memory) DepositFrom(depositor [20]byte, token string, amount *big.Int) error {
	normalized := normalizeToken(token)
	if normalized == "" {
		return ErrUnsupportedToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidDepositAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet := getBucket(m.wallets, depositor, normalized)
	if wallet.Cmp(amount) < 0 {
		return ErrInsufficientWalletFunds
	}
	putBucket(m.wallets, depositor, normalized, new(big.Int).Sub(wallet, amount))
	balance := getBucket(m.balances, depositor, normalized)
	putBucket(m.balances, depositor, normalized, new(big.Int).Add(balance, amount))
	m.emitter.Emit(events.LedgerDeposited{Account: depositor, Token: normalized, Amount: new(big.Int).Set(amount)})
	return nil
}

// Credit implements the Ledger interface.
func (m *Memory) Credit(account [20]byte, token string, amount *big.Int) error {
	normalized := normalizeToken(token)
	if normalized == "" {
		return ErrUnsupportedToken
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := getBucket(m.balances, account, normalized)
	putBucket(m.balances, account, normalized, new(big.Int).Add(balance, amount))
	return nil
}

// Debit implements the Ledger interface.
func (m *Memory) Debit(account [20]byte, token string, amount *big.Int) error {
	normalized := normalizeToken(token)
	if normalized == "" {
		return ErrUnsupportedToken
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := getBucket(m.balances, account, normalized)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	putBucket(m.balances, account, normalized, new(big.Int).Sub(balance, amount))
	return nil
}

// BalanceOf implements the Ledger interface.
func (m *Memory) BalanceOf(account [20]byte, token string) (*big.Int, error) {
	normalized := normalizeToken(token)
	if normalized == "" {
		return nil, ErrUnsupportedToken
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return getBucket(m.balances, account, normalized), nil
}

// Withdraw implements the Ledger interface.
func (m *Memory) Withdraw(account [20]byte, token string, amount *big.Int) error {
	normalized := normalizeToken(token)
	if normalized == "" {
		return ErrUnsupportedToken
	}
	if normalized == m.principalToken {
		return ErrPrincipalNotWithdrawable
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := getBucket(m.balances, account, normalized)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	putBucket(m.balances, account, normalized, new(big.Int).Sub(balance, amount))
	wallet := getBucket(m.wallets, account, normalized)
	putBucket(m.wallets, account, normalized, new(big.Int).Add(wallet, amount))
	m.emitter.Emit(events.LedgerWithdrawn{Account: account, Token: normalized, Amount: new(big.Int).Set(amount)})
	return nil
}
