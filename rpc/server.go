package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proofmarket/core/events"
	"proofmarket/core/types"
	"proofmarket/crypto"
	"proofmarket/ledger"
	"proofmarket/native/market"
	"proofmarket/observability/metrics"
)

// Server exposes the settlement engine over HTTP. State-changing calls are
// serialized behind a single mutex, matching the engine's globally-serialized
// transaction model.
type Server struct {
	mu       sync.Mutex
	engine   *market.Engine
	ledger   ledger.Ledger
	logger   *slog.Logger
	metrics  *metrics.MarketMetrics
	eventLog *eventLog
}

// NewServer wires the HTTP surface around the engine and ledger.
func NewServer(engine *market.Engine, l ledger.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   engine,
		ledger:   l,
		logger:   logger,
		metrics:  metrics.Market(),
		eventLog: newEventLog(eventLogLimit),
	}
}

// Emitter exposes the server's event log as an emitter so the engine and
// ledger can be wired to it.
func (s *Server) Emitter() events.Emitter { return s.eventLog }

// Router builds the chi handler for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/deposits", s.handleDeposit)
		r.Post("/listings", s.handleList)
		r.Get("/listings/{id}", s.handleFetchListing)
		r.Post("/listings/{id}/settle", s.handleSubmitPurchase)
		r.Post("/authorizations", s.handleTransferWithAuthorization)
		r.Get("/accounts/{address}/withdrawable", s.handleWithdrawable)
		r.Get("/events", s.handleEvents)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, market.ErrInvalidListing),
		errors.Is(err, market.ErrListingExists):
		status = http.StatusConflict
	case errors.Is(err, market.ErrInvalidNotaryKeyFingerprint),
		errors.Is(err, market.ErrOrderNotDelivered),
		errors.Is(err, market.ErrWrongCredentials),
		errors.Is(err, market.ErrInvalidURL),
		errors.Is(err, market.ErrInvalidQueriesHash),
		errors.Is(err, market.ErrProofVerificationFailed),
		errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrInvalidShopper),
		errors.Is(err, market.ErrInvalidListingURL),
		errors.Is(err, ledger.ErrInvalidDepositAmount),
		errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrAuthorizationExpired),
		errors.Is(err, market.ErrAuthorizationUsed),
		errors.Is(err, market.ErrInvalidSignature):
		status = http.StatusForbidden
	case errors.Is(err, market.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientWalletFunds),
		errors.Is(err, ledger.ErrPrincipalNotWithdrawable):
		status = http.StatusPaymentRequired
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, market.ErrInvalidListing):
		return "invalid_listing"
	case errors.Is(err, market.ErrInvalidNotaryKeyFingerprint):
		return "invalid_notary_fingerprint"
	case errors.Is(err, market.ErrOrderNotDelivered):
		return "not_delivered"
	case errors.Is(err, market.ErrWrongCredentials):
		return "wrong_credentials"
	case errors.Is(err, market.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, market.ErrInvalidQueriesHash):
		return "invalid_queries_hash"
	case errors.Is(err, market.ErrProofVerificationFailed):
		return "proof_failed"
	case errors.Is(err, market.ErrAuthorizationExpired):
		return "expired"
	case errors.Is(err, market.ErrAuthorizationUsed):
		return "replayed"
	case errors.Is(err, market.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, market.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "other"
	}
}

func decodeAccount(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func decodeAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, errors.New("rpc: invalid decimal amount")
	}
	return amount, nil
}

func decodeHex32(value string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return out, err
	}
	if len(decoded) != 32 {
		return out, errors.New("rpc: expected 32 bytes")
	}
	copy(out[:], decoded)
	return out, nil
}

func decodeHexBytes(value string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
}

type depositRequest struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	account, err := decodeAccount(req.Account)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amount, err := decodeAmount(req.Amount)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.mu.Lock()
	err = s.ledger.DepositFrom(account, req.Token, amount)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("deposit accepted", "account", req.Account, "token", req.Token, "amount", req.Amount)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type listRequest struct {
	URL                   string          `json:"url"`
	Amount                string          `json:"amount"`
	Shopper               string          `json:"shopper"`
	CredentialsCommitment string          `json:"credentialsCommitment,omitempty"`
	Credentials           *rawCredentials `json:"credentials,omitempty"`
}

type rawCredentials struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	HomeAddress string `json:"homeAddress"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Zip         string `json:"zip"`
}

type listResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	shopper, err := decodeAccount(req.Shopper)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amount, err := decodeAmount(req.Amount)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var commitment [32]byte
	switch {
	case req.Credentials != nil:
		commitment, err = market.CredentialsCommitment(market.RawCredentials{
			FullName:    req.Credentials.FullName,
			Email:       req.Credentials.Email,
			HomeAddress: req.Credentials.HomeAddress,
			City:        req.Credentials.City,
			Country:     req.Credentials.Country,
			Zip:         req.Credentials.Zip,
		})
	default:
		commitment, err = decodeHex32(req.CredentialsCommitment)
	}
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	listing := &market.Listing{
		URL:                   req.URL,
		Amount:                amount,
		Shopper:               shopper,
		CredentialsCommitment: commitment,
	}
	s.mu.Lock()
	id, err := s.engine.List(listing)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveListingCreated()
	s.logger.Info("listing created", "id", hex.EncodeToString(id[:]), "shopper", req.Shopper, "amount", req.Amount)
	s.writeJSON(w, http.StatusCreated, listResponse{ID: hex.EncodeToString(id[:])})
}

type listingResponse struct {
	URL                   string `json:"url"`
	Amount                string `json:"amount"`
	Shopper               string `json:"shopper,omitempty"`
	CredentialsCommitment string `json:"credentialsCommitment"`
	Exists                bool   `json:"exists"`
}

func (s *Server) handleFetchListing(w http.ResponseWriter, r *http.Request) {
	id, err := decodeHex32(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	listing, err := s.engine.FetchListing(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := listingResponse{
		URL:                   listing.URL,
		Amount:                listing.Amount.String(),
		CredentialsCommitment: hex.EncodeToString(listing.CredentialsCommitment[:]),
		Exists:                listing.Exists(),
	}
	if listing.Exists() {
		resp.Shopper = crypto.NewAddress(crypto.ShopperPrefix, listing.Shopper[:]).String()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type settleRequest struct {
	PurchaseData string `json:"purchaseData"`
	ProofSeal    string `json:"proofSeal"`
	Claimant     string `json:"claimant"`
}

func (s *Server) handleSubmitPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := decodeHex32(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	purchaseData, err := decodeHexBytes(req.PurchaseData)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	proofSeal, err := decodeHexBytes(req.ProofSeal)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	claimant, err := decodeAccount(req.Claimant)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.mu.Lock()
	err = s.engine.SubmitPurchase(id, purchaseData, proofSeal, claimant)
	s.mu.Unlock()
	if err != nil {
		s.metrics.ObserveClaimRejected(rejectionReason(err))
		s.logger.Warn("settlement rejected", "id", chi.URLParam(r, "id"), "reason", err.Error())
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveSettlement()
	s.logger.Info("listing settled", "id", chi.URLParam(r, "id"), "claimant", req.Claimant)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

type authorizationRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  int64  `json:"validAfter"`
	ValidBefore int64  `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
}

func (s *Server) handleTransferWithAuthorization(w http.ResponseWriter, r *http.Request) {
	var req authorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	from, err := decodeAccount(req.From)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	to, err := decodeAccount(req.To)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	value, err := decodeAmount(req.Value)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	nonce, err := decodeHex32(req.Nonce)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	signature, err := decodeHexBytes(req.Signature)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.mu.Lock()
	err = s.engine.TransferWithAuthorization(from, to, value, req.ValidAfter, req.ValidBefore, nonce, signature)
	s.mu.Unlock()
	if err != nil {
		s.metrics.ObserveAuthorizationRejected(rejectionReason(err))
		s.logger.Warn("authorization rejected", "from", req.From, "to", req.To, "reason", err.Error())
		s.writeError(w, err)
		return
	}
	s.metrics.ObserveAuthorizationUsed()
	s.logger.Info("authorization consumed", "from", req.From, "to", req.To, "nonce", req.Nonce)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

const eventLogLimit = 256

// eventLog keeps a bounded in-memory tail of emitted events for inspection
// over the RPC surface. Older entries fall off once the limit is reached.
type eventLog struct {
	mu      sync.Mutex
	entries []*types.Event
	limit   int
}

func newEventLog(limit int) *eventLog {
	return &eventLog{limit: limit}
}

// Emit implements the events.Emitter interface.
func (l *eventLog) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	entry := types.NewEvent(evt.EventType())
	if record, ok := evt.(interface{ Event() *types.Event }); ok {
		if converted := record.Event(); converted != nil {
			entry = converted
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

func (l *eventLog) tail() []*types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*types.Event, len(l.entries))
	copy(out, l.entries)
	return out
}

type eventsResponse struct {
	Events []*types.Event `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, eventsResponse{Events: s.eventLog.tail()})
}

type withdrawableResponse struct {
	Account      string `json:"account"`
	Withdrawable string `json:"withdrawable"`
	Locked       string `json:"locked"`
}

func (s *Server) handleWithdrawable(w http.ResponseWriter, r *http.Request) {
	account, err := decodeAccount(chi.URLParam(r, "address"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	withdrawable, err := s.engine.Withdrawable(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	locked, err := s.engine.Locked(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, withdrawableResponse{
		Account:      chi.URLParam(r, "address"),
		Withdrawable: withdrawable.String(),
		Locked:       locked.String(),
	})
}
