package market

import (
	"math/big"

	"proofmarket/core/events"
)

// SubmitPurchase runs the ordered proof gate against the referenced listing
// and, when every check passes, performs the atomic settlement: debit the
// shopper, credit the claimant, delete the listing and unlock the collateral.
// The first failing check aborts the operation with no observable effect, and
// deleting the listing on success is what gives at-most-once settlement per
// id.
func (e *Engine) SubmitPurchase(listingID [32]byte, purchaseData []byte, proofSeal []byte, claimant [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.verifier == nil {
		return errNilVerifier
	}
	listing, ok, err := e.state.ListingGet(listingID)
	if err != nil {
		return err
	}
	if !ok || !listing.Exists() {
		return ErrInvalidListing
	}
	claim, err := DecodePurchaseClaim(purchaseData)
	if err != nil {
		return err
	}
	if claim.NotaryKeyFingerprint != e.params.NotaryKeyFingerprint {
		return ErrInvalidNotaryKeyFingerprint
	}
	if claim.Shipping != ShippingDelivered {
		return ErrOrderNotDelivered
	}
	if claim.CredentialsCommitment != listing.CredentialsCommitment {
		return ErrWrongCredentials
	}
	if claim.Method != "GET" {
		return ErrInvalidURL
	}
	if claim.URL != listing.URL {
		return ErrInvalidURL
	}
	if claim.QueriesCommitment != e.params.QueriesCommitment {
		return ErrInvalidQueriesHash
	}
	if err := e.verifier.Verify(proofSeal, e.params.ProofProgramID, ClaimDigest(purchaseData)); err != nil {
		return ErrProofVerificationFailed
	}

	amount := cloneBigInt(listing.Amount)
	if err := e.ledger.Debit(listing.Shopper, e.params.PaymentToken, amount); err != nil {
		return err
	}
	if err := e.ledger.Credit(claimant, e.params.PaymentToken, amount); err != nil {
		_ = e.ledger.Credit(listing.Shopper, e.params.PaymentToken, amount)
		return err
	}
	if err := e.state.ListingDelete(listingID); err != nil {
		_ = e.ledger.Debit(claimant, e.params.PaymentToken, amount)
		_ = e.ledger.Credit(listing.Shopper, e.params.PaymentToken, amount)
		return err
	}
	if err := e.unlock(listing.Shopper, amount); err != nil {
		_ = e.state.ListingPut(listing)
		_ = e.ledger.Debit(claimant, e.params.PaymentToken, amount)
		_ = e.ledger.Credit(listing.Shopper, e.params.PaymentToken, amount)
		return err
	}
	e.emit(events.ListingSettled{
		ID:       listingID,
		Shopper:  listing.Shopper,
		Claimant: claimant,
		URL:      listing.URL,
		Amount:   new(big.Int).Set(amount),
	})
	return nil
}
