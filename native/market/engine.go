package market

import (
	"errors"
	"math/big"
	"time"

	"proofmarket/core/events"
	"proofmarket/ledger"
)

var (
	errNilState    = errors.New("market engine: state not configured")
	errNilLedger   = errors.New("market engine: ledger not configured")
	errNilVerifier = errors.New("market engine: verifier not configured")
)

// engineState is the subset of state manager functionality required by the
// settlement engine: the listing registry, per-account locked totals and the
// consumed authorization nonces.
type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id [32]byte) (*Listing, bool, error)
	ListingDelete(id [32]byte) error
	LockedGet(account [20]byte) (*big.Int, error)
	LockedPut(account [20]byte, amount *big.Int) error
	AuthNonceUsed(authorizer [20]byte, nonce [32]byte) (bool, error)
	AuthNonceMark(authorizer [20]byte, nonce [32]byte) error
	AuthNonceUnmark(authorizer [20]byte, nonce [32]byte) error
}

// Params carries the deployment-time constants the proof gate compares claims
// against, plus the domain-separation inputs for the authorization channel.
type Params struct {
	PaymentToken         string
	NotaryKeyFingerprint [32]byte
	QueriesCommitment    [32]byte
	ProofProgramID       [32]byte
	ChainID              uint64
	ContractAddress      [20]byte
}

// Engine wires the marketplace settlement logic with the external ledger, the
// proof verifier and a state backend. All state-changing methods assume the
// surrounding environment serializes invocations; the engine itself performs
// no locking.
type Engine struct {
	state    engineState
	ledger   ledger.Ledger
	verifier Verifier
	emitter  events.Emitter
	params   Params
	nowFn    func() int64
}

// NewEngine creates a settlement engine with a no-op emitter. Callers wire the
// collaborators via the SetX methods before use.
func NewEngine(params Params) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  params,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the balance ledger port.
func (e *Engine) SetLedger(l ledger.Ledger) { e.ledger = l }

// SetVerifier configures the zero-knowledge proof verifier port.
func (e *Engine) SetVerifier(v Verifier) { e.verifier = v }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for authorization windows.
// Primarily intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Params returns a copy of the deployment constants the engine was built with.
func (e *Engine) Params() Params { return e.params }

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
