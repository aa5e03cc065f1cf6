package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"proofmarket/core/events"
)

// AuthDomainName and AuthDomainVersion are the protocol identity bound into
// the domain separator. Together with the chain id and the contract address
// they prevent cross-chain and cross-deployment replay of authorizations.
const (
	AuthDomainName    = "P2P Marketplace Settlement"
	AuthDomainVersion = "1"
)

var (
	domainTypeHash = ethcrypto.Keccak256Hash(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)
	transferAuthorizationTypeHash = ethcrypto.Keccak256Hash(
		[]byte("TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"),
	)
)

var domainArguments = abi.Arguments{
	{Name: "typeHash", Type: bytes32Type},
	{Name: "nameHash", Type: bytes32Type},
	{Name: "versionHash", Type: bytes32Type},
	{Name: "chainId", Type: uint256Type},
	{Name: "verifyingContract", Type: addressType},
}

var transferAuthorizationArguments = abi.Arguments{
	{Name: "typeHash", Type: bytes32Type},
	{Name: "from", Type: addressType},
	{Name: "to", Type: addressType},
	{Name: "value", Type: uint256Type},
	{Name: "validAfter", Type: uint256Type},
	{Name: "validBefore", Type: uint256Type},
	{Name: "nonce", Type: bytes32Type},
}

// DomainSeparator derives the instance-unique separator for the supplied chain
// id and contract address.
func DomainSeparator(chainID uint64, contract [20]byte) ([32]byte, error) {
	encoded, err := domainArguments.Pack(
		[32]byte(domainTypeHash),
		[32]byte(ethcrypto.Keccak256Hash([]byte(AuthDomainName))),
		[32]byte(ethcrypto.Keccak256Hash([]byte(AuthDomainVersion))),
		new(big.Int).SetUint64(chainID),
		common.BytesToAddress(contract[:]),
	)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(ethcrypto.Keccak256Hash(encoded)), nil
}

// AuthorizationDigest computes the signable digest for a transfer
// authorization bound to the supplied domain inputs.
func AuthorizationDigest(chainID uint64, contract [20]byte, from, to [20]byte, value *big.Int, validAfter, validBefore int64, nonce [32]byte) ([32]byte, error) {
	separator, err := DomainSeparator(chainID, contract)
	if err != nil {
		return [32]byte{}, err
	}
	structEncoded, err := transferAuthorizationArguments.Pack(
		[32]byte(transferAuthorizationTypeHash),
		common.BytesToAddress(from[:]),
		common.BytesToAddress(to[:]),
		cloneBigInt(value),
		big.NewInt(validAfter),
		big.NewInt(validBefore),
		nonce,
	)
	if err != nil {
		return [32]byte{}, err
	}
	structHash := ethcrypto.Keccak256(structEncoded)
	return [32]byte(ethcrypto.Keccak256Hash([]byte{0x19, 0x01}, separator[:], structHash)), nil
}

// TransferWithAuthorization consumes a time-boxed, nonce-scoped authorization
// signed by `from` and withdraws `value` of the recipient's escrowed balance
// to the recipient's own external wallet. The authorizer attests to the
// release; the funds always land in `to`'s wallet, never a third party's.
func (e *Engine) TransferWithAuthorization(from, to [20]byte, value *big.Int, validAfter, validBefore int64, nonce [32]byte, signature []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	now := e.now()
	if now < validAfter || now > validBefore {
		return ErrAuthorizationExpired
	}
	used, err := e.state.AuthNonceUsed(from, nonce)
	if err != nil {
		return err
	}
	if used {
		return ErrAuthorizationUsed
	}
	signer, err := recoverAuthorizer(e.params.ChainID, e.params.ContractAddress, from, to, value, validAfter, validBefore, nonce, signature)
	if err != nil {
		return err
	}
	if signer == ([20]byte{}) || signer != from {
		return ErrInvalidSignature
	}
	amount := cloneBigInt(value)
	if err := e.checkWithdrawable(to, amount); err != nil {
		return err
	}
	if err := e.state.AuthNonceMark(from, nonce); err != nil {
		return err
	}
	if err := e.ledger.Withdraw(to, e.params.PaymentToken, amount); err != nil {
		_ = e.state.AuthNonceUnmark(from, nonce)
		return err
	}
	e.emit(events.AuthorizationUsed{
		Authorizer: from,
		Recipient:  to,
		Nonce:      nonce,
		Value:      new(big.Int).Set(amount),
	})
	return nil
}

func recoverAuthorizer(chainID uint64, contract [20]byte, from, to [20]byte, value *big.Int, validAfter, validBefore int64, nonce [32]byte, signature []byte) ([20]byte, error) {
	if len(signature) != 65 {
		return [20]byte{}, ErrInvalidSignature
	}
	digest, err := AuthorizationDigest(chainID, contract, from, to, value, validAfter, validBefore, nonce)
	if err != nil {
		return [20]byte{}, err
	}
	sig := append([]byte(nil), signature...)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pubKey, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return [20]byte{}, ErrInvalidSignature
	}
	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	var out [20]byte
	copy(out[:], recovered[:])
	return out, nil
}
