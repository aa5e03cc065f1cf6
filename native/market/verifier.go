package market

// Verifier is the external proof verifier port. Verify checks an opaque proof
// seal against the guest program identifier and the digest of the claim the
// proof commits to. Any non-nil error is treated as a verification failure;
// the engine never surfaces verifier diagnostics to callers.
type Verifier interface {
	Verify(seal []byte, programID [32]byte, claimDigest [32]byte) error
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(seal []byte, programID [32]byte, claimDigest [32]byte) error

// Verify implements the Verifier interface.
func (f VerifierFunc) Verify(seal []byte, programID [32]byte, claimDigest [32]byte) error {
	return f(seal, programID, claimDigest)
}
