package events

import (
	"encoding/hex"
	"math/big"

	"proofmarket/core/types"
	"proofmarket/crypto"
)

const (
	TypeListingCreated    = "market.listing.created"
	TypeListingSettled    = "market.listing.settled"
	TypeAuthorizationUsed = "market.authorization.used"
	TypeLedgerDeposited   = "ledger.deposited"
	TypeLedgerWithdrawn   = "ledger.withdrawn"
)

// ListingCreated is emitted when a shopper pledges collateral against a new
// listing.
type ListingCreated struct {
	ID          [32]byte
	Shopper     [20]byte
	URL         string
	Amount      *big.Int
	Credentials [32]byte
}

func (ListingCreated) EventType() string { return TypeListingCreated }

func (e ListingCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeListingCreated,
		Attributes: map[string]string{
			"id":          hex.EncodeToString(e.ID[:]),
			"shopper":     crypto.NewAddress(crypto.ShopperPrefix, e.Shopper[:]).String(),
			"url":         e.URL,
			"amount":      formatAmount(e.Amount),
			"credentials": hex.EncodeToString(e.Credentials[:]),
		},
	}
}

// ListingSettled is emitted after a proof-gated settlement moved the collateral
// from the shopper to the claimant and deleted the listing.
type ListingSettled struct {
	ID       [32]byte
	Shopper  [20]byte
	Claimant [20]byte
	URL      string
	Amount   *big.Int
}

func (ListingSettled) EventType() string { return TypeListingSettled }

func (e ListingSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeListingSettled,
		Attributes: map[string]string{
			"id":       hex.EncodeToString(e.ID[:]),
			"shopper":  crypto.NewAddress(crypto.ShopperPrefix, e.Shopper[:]).String(),
			"claimant": crypto.NewAddress(crypto.ShopperPrefix, e.Claimant[:]).String(),
			"url":      e.URL,
			"amount":   formatAmount(e.Amount),
		},
	}
}

// AuthorizationUsed is emitted when a signed withdrawal authorization is
// consumed. The (authorizer, nonce) pair uniquely identifies the authorization.
type AuthorizationUsed struct {
	Authorizer [20]byte
	Recipient  [20]byte
	Nonce      [32]byte
	Value      *big.Int
}

func (AuthorizationUsed) EventType() string { return TypeAuthorizationUsed }

func (e AuthorizationUsed) Event() *types.Event {
	return &types.Event{
		Type: TypeAuthorizationUsed,
		Attributes: map[string]string{
			"authorizer": crypto.NewAddress(crypto.ShopperPrefix, e.Authorizer[:]).String(),
			"recipient":  crypto.NewAddress(crypto.ShopperPrefix, e.Recipient[:]).String(),
			"nonce":      hex.EncodeToString(e.Nonce[:]),
			"value":      formatAmount(e.Value),
		},
	}
}

// LedgerDeposited is emitted when external funds are credited to an internal
// ledger balance.
type LedgerDeposited struct {
	Account [20]byte
	Token   string
	Amount  *big.Int
}

func (LedgerDeposited) EventType() string { return TypeLedgerDeposited }

func (e LedgerDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeLedgerDeposited,
		Attributes: map[string]string{
			"account": crypto.NewAddress(crypto.ShopperPrefix, e.Account[:]).String(),
			"token":   e.Token,
			"amount":  formatAmount(e.Amount),
		},
	}
}

// LedgerWithdrawn is emitted when an internal balance is debited back to the
// account's external wallet.
type LedgerWithdrawn struct {
	Account [20]byte
	Token   string
	Amount  *big.Int
}

func (LedgerWithdrawn) EventType() string { return TypeLedgerWithdrawn }

func (e LedgerWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeLedgerWithdrawn,
		Attributes: map[string]string{
			"account": crypto.NewAddress(crypto.ShopperPrefix, e.Account[:]).String(),
			"token":   e.Token,
			"amount":  formatAmount(e.Amount),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
