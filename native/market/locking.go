package market

import (
	"fmt"
	"math/big"
)

// lock increases the account's locked total. Called only from listing creation.
func (e *Engine) lock(account [20]byte, amount *big.Int) error {
	locked, err := e.state.LockedGet(account)
	if err != nil {
		return err
	}
	return e.state.LockedPut(account, new(big.Int).Add(cloneBigInt(locked), amount))
}

// unlock decreases the account's locked total. Called only from settlement.
func (e *Engine) unlock(account [20]byte, amount *big.Int) error {
	locked, err := e.state.LockedGet(account)
	if err != nil {
		return err
	}
	current := cloneBigInt(locked)
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("market: locked balance inconsistent")
	}
	return e.state.LockedPut(account, new(big.Int).Sub(current, amount))
}

// Locked reports the amount of the account's balance currently pledged to open
// listings.
func (e *Engine) Locked(account [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	locked, err := e.state.LockedGet(account)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(locked), nil
}

// Withdrawable reports the unlocked portion of the account's payment-token
// balance: balanceOf minus the locked total.
func (e *Engine) Withdrawable(account [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	balance, err := e.ledger.BalanceOf(account, e.params.PaymentToken)
	if err != nil {
		return nil, err
	}
	locked, err := e.state.LockedGet(account)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(cloneBigInt(balance), cloneBigInt(locked)), nil
}

// checkWithdrawable enforces the withdrawal precondition shared by every path
// that moves funds out of an account's unlocked balance.
func (e *Engine) checkWithdrawable(account [20]byte, amount *big.Int) error {
	withdrawable, err := e.Withdrawable(account)
	if err != nil {
		return err
	}
	if withdrawable.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}
