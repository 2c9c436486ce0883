package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/refresh"
	"github.com/sreeramp-official/solana-token-app/internal/reporting"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

const maxBodyBytes = 1 << 20

// ConnectRequest is the body of POST /api/wallet. An empty body connects
// the configured keypair file.
type ConnectRequest struct {
	// SecretKey is a solana-keygen JSON array or a base58 secret key.
	SecretKey string `json:"secret_key,omitempty"`
}

// Options configures a Handler.
type Options struct {
	Service    *tokenops.Service
	Refresher  *refresh.Refresher   // optional dashboard cache
	Operations storage.OperationLog // optional, serves /api/operations
	// KeypairPath is connected by POST /api/wallet without a secret key.
	KeypairPath    string
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// Handler serves the API routes.
type Handler struct {
	svc            *tokenops.Service
	session        *wallet.Session
	refresher      *refresh.Refresher
	operations     storage.OperationLog
	reporter       *reporting.Generator
	keypairPath    string
	requestTimeout time.Duration
	logger         *log.Logger
	started        time.Time

	// connectMu serializes wallet connect and disconnect requests.
	connectMu sync.Mutex
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile)
	}
	var reporter *reporting.Generator
	if opts.Operations != nil {
		reporter = reporting.NewGenerator(opts.Operations)
	}
	return &Handler{
		svc:            opts.Service,
		session:        opts.Service.Session(),
		refresher:      opts.Refresher,
		operations:     opts.Operations,
		reporter:       reporter,
		keypairPath:    opts.KeypairPath,
		requestTimeout: timeout,
		logger:         logger,
		started:        time.Now(),
	}
}

// ErrorResponse is the body of a failed call.
type ErrorResponse struct {
	Error  tokenops.Kind   `json:"error"`
	Notice tokenops.Notice `json:"notice"`
}

// ReceiptResponse is the body of a successful create, mint or send.
type ReceiptResponse struct {
	Receipt *tokenops.Receipt `json:"receipt"`
	Notice  tokenops.Notice   `json:"notice"`
}

// VerifyMintResponse is the body of a successful mint verification.
type VerifyMintResponse struct {
	Mint   *domain.MintInfo `json:"mint"`
	Notice tokenops.Notice  `json:"notice"`
}

// VerifySendResponse is the body of a successful send verification.
type VerifySendResponse struct {
	Token  *domain.TokenInfo `json:"token"`
	Notice tokenops.Notice   `json:"notice"`
}

// DashboardResponse wraps a dashboard with its origin.
type DashboardResponse struct {
	*domain.Dashboard
	Cached bool `json:"cached"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError classifies err, logs it and writes the notice.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, action tokenops.Action, err error) {
	kind := tokenops.Classify(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Printf("%s failed (request_id=%s): %v", action, RequestID(r.Context()), err)
	}
	h.respondJSON(w, status, ErrorResponse{Error: kind, Notice: tokenops.ErrorNotice(action, err)})
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body: %v", tokenops.ErrInvalidInput, err)
	}
	return nil
}

// HandleHealth answers liveness probes.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status    string               `json:"status"`
	Uptime    string               `json:"uptime"`
	Wallet    wallet.Status        `json:"wallet"`
	Forms     tokenops.FormsStatus `json:"forms"`
	Refresher *refresh.Status      `json:"refresher,omitempty"`
}

// HandleStatus reports wallet, form and refresher state.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(h.started).Round(time.Second).String(),
		Wallet: h.session.Status(),
		Forms:  h.svc.Forms(),
	}
	if h.refresher != nil {
		st := h.refresher.Status()
		resp.Refresher = &st
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// HandleWalletStatus returns the wallet session status.
func (h *Handler) HandleWalletStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.session.Status())
}

// HandleWalletConnect binds a keypair to the session.
func (h *Handler) HandleWalletConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, tokenops.ActionDashboard, err)
		return
	}

	kp, err := h.loadKeypair(req)
	if err != nil {
		h.respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: tokenops.KindInvalidInput,
			Notice: tokenops.Notice{
				Title:       "Wallet connection failed",
				Description: err.Error(),
				Variant:     tokenops.VariantDestructive,
			},
		})
		return
	}

	h.connectMu.Lock()
	err = h.session.Connect(r.Context(), kp)
	h.connectMu.Unlock()
	if err != nil {
		h.respondError(w, r, tokenops.ActionDashboard, err)
		return
	}
	h.logger.Printf("Wallet connected: %s", kp.PublicKey())
	h.respondJSON(w, http.StatusOK, h.session.Status())
}

func (h *Handler) loadKeypair(req ConnectRequest) (*wallet.Keypair, error) {
	if strings.TrimSpace(req.SecretKey) != "" {
		return wallet.ParseKeypair([]byte(req.SecretKey))
	}
	if h.keypairPath == "" {
		return nil, fmt.Errorf("%w: no keypair configured", wallet.ErrInvalidKeypair)
	}
	return wallet.LoadKeypairFile(h.keypairPath)
}

// HandleWalletDisconnect releases the session's signer.
func (h *Handler) HandleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	h.connectMu.Lock()
	h.session.Disconnect()
	h.connectMu.Unlock()
	h.respondJSON(w, http.StatusOK, h.session.Status())
}

// owner returns the owner query parameter or the connected wallet.
func (h *Handler) owner(r *http.Request) (string, error) {
	if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
		return owner, nil
	}
	signer, err := h.session.Current()
	if err != nil {
		return "", err
	}
	return signer.PublicKey(), nil
}

// HandleDashboard returns balances for ?owner= or the connected wallet.
// The refresher snapshot is served unless ?refresh=true.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.respondError(w, r, tokenops.ActionDashboard, err)
		return
	}

	forceRefresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	if h.refresher != nil && !forceRefresh {
		if d, ok := h.refresher.Snapshot(owner); ok {
			h.respondJSON(w, http.StatusOK, DashboardResponse{Dashboard: d, Cached: true})
			return
		}
	}

	d, err := h.svc.Dashboard(r.Context(), owner)
	if err != nil {
		h.respondError(w, r, tokenops.ActionDashboard, err)
		return
	}
	if h.refresher != nil {
		h.refresher.Store(d)
	}
	h.respondJSON(w, http.StatusOK, DashboardResponse{Dashboard: d})
}

// HandleCreate runs the create form.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req tokenops.CreateRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, tokenops.ActionCreate, err)
		return
	}
	receipt, err := h.svc.CreateToken(r.Context(), req)
	h.respondReceipt(w, r, tokenops.ActionCreate, receipt, err)
}

type verifyRequest struct {
	Mint string `json:"mint"`
}

// HandleVerifyMint runs the mint form's verify step.
func (h *Handler) HandleVerifyMint(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, tokenops.ActionVerifyMint, err)
		return
	}
	info, err := h.svc.VerifyMint(r.Context(), req.Mint)
	if err != nil {
		h.respondError(w, r, tokenops.ActionVerifyMint, err)
		return
	}
	h.respondJSON(w, http.StatusOK, VerifyMintResponse{Mint: info, Notice: tokenops.VerifiedMintNotice()})
}

// HandleMint runs the mint form's submit step.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	var req tokenops.MintRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, tokenops.ActionMint, err)
		return
	}
	receipt, err := h.svc.MintTokens(r.Context(), req)
	h.respondReceipt(w, r, tokenops.ActionMint, receipt, err)
}

// HandleVerifySend runs the send form's verify step.
func (h *Handler) HandleVerifySend(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, tokenops.ActionVerifySend, err)
		return
	}
	info, err := h.svc.VerifySend(r.Context(), req.Mint)
	if err != nil {
		h.respondError(w, r, tokenops.ActionVerifySend, err)
		return
	}
	h.respondJSON(w, http.StatusOK, VerifySendResponse{Token: info, Notice: tokenops.VerifiedTokenNotice(info.DisplayBalance)})
}

// HandleSend runs the send form's submit step.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req tokenops.SendRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, tokenops.ActionSend, err)
		return
	}
	receipt, err := h.svc.SendTokens(r.Context(), req)
	h.respondReceipt(w, r, tokenops.ActionSend, receipt, err)
}

func (h *Handler) respondReceipt(w http.ResponseWriter, r *http.Request, action tokenops.Action, receipt *tokenops.Receipt, err error) {
	if err != nil {
		h.respondError(w, r, action, err)
		return
	}
	// Balances changed; refresh in the background so the next dashboard
	// read is current.
	if h.refresher != nil {
		go h.refresher.Refresh(context.WithoutCancel(r.Context()))
	}
	h.respondJSON(w, http.StatusOK, ReceiptResponse{Receipt: receipt, Notice: tokenops.SuccessNotice(action, receipt)})
}

// HandleHistory returns one page of signatures. Query: owner, before, limit.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	owner, err := h.owner(r)
	if err != nil {
		h.respondError(w, r, tokenops.ActionHistory, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.respondError(w, r, tokenops.ActionHistory, err)
		return
	}

	page, err := h.svc.History(r.Context(), owner, r.URL.Query().Get("before"), limit)
	if err != nil {
		h.respondError(w, r, tokenops.ActionHistory, err)
		return
	}
	h.respondJSON(w, http.StatusOK, page)
}

// HandleForms returns the state of every form.
func (h *Handler) HandleForms(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.svc.Forms())
}

// HandleOperations lists recorded operations of ?owner= or the connected wallet.
func (h *Handler) HandleOperations(w http.ResponseWriter, r *http.Request) {
	if h.operations == nil {
		h.respondJSON(w, http.StatusOK, []*domain.OperationRecord{})
		return
	}
	owner, err := h.owner(r)
	if err != nil {
		h.respondError(w, r, tokenops.ActionHistory, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.respondError(w, r, tokenops.ActionHistory, err)
		return
	}
	if limit <= 0 {
		limit = 50
	}

	ops, err := h.operations.ListByWallet(r.Context(), owner, limit)
	if err != nil {
		h.respondError(w, r, tokenops.ActionHistory, err)
		return
	}
	if ops == nil {
		ops = []*domain.OperationRecord{}
	}
	h.respondJSON(w, http.StatusOK, ops)
}

func queryInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", tokenops.ErrInvalidInput, name)
	}
	return n, nil
}
