package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreeramp-official/solana-token-app/internal/confirm"
	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/refresh"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/solana/stub"
	"github.com/sreeramp-official/solana-token-app/internal/storage/memory"
	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

type testServer struct {
	ledger    *stub.Ledger
	session   *wallet.Session
	owner     *wallet.Keypair
	ops       *memory.OperationLog
	refresher *refresh.Refresher
	handler   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	discard := log.New(io.Discard, "", 0)

	ledger := stub.NewLedger()
	owner := wallet.NewKeypair()
	ledger.Fund(owner.PublicKey(), 10_000_000_000)

	session := wallet.NewSession("devnet")
	ops := memory.NewOperationLog()
	svc := tokenops.NewService(tokenops.Options{
		RPC: ledger,
		Confirmer: confirm.NewPoller(ledger, confirm.PollerOptions{
			Timeout:      2 * time.Second,
			PollInterval: time.Millisecond,
		}),
		Session:      session,
		Registry:     memory.NewTokenRegistry(),
		Operations:   ops,
		Cluster:      "devnet",
		SkipMetadata: true,
		Logger:       discard,
	})
	session.OnDisconnect(func(string) { svc.ResetForms() })

	refresher := refresh.New(refresh.Options{Fetcher: svc, Interval: time.Hour, Logger: discard})
	refresher.Attach(session)
	t.Cleanup(refresher.Stop)

	h := NewHandler(Options{
		Service:    svc,
		Refresher:  refresher,
		Operations: ops,
		Logger:     discard,
	})
	return &testServer{
		ledger:    ledger,
		session:   session,
		owner:     owner,
		ops:       ops,
		refresher: refresher,
		handler:   NewRouter(h),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) connect(t *testing.T) {
	t.Helper()
	secret, err := json.Marshal(s.owner)
	require.NoError(t, err)
	w := s.do(t, http.MethodPost, "/api/wallet", ConnectRequest{SecretKey: string(secret)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (s *testServer) addMint(t *testing.T, decimals uint8, authority string) string {
	t.Helper()
	addr := wallet.NewKeypair().PublicKey()
	m := &domain.Mint{Address: addr, Decimals: decimals, Supply: new(big.Int), IsInitialized: true}
	if authority != "" {
		m.MintAuthority = &authority
	}
	s.ledger.AddMint(m)
	return addr
}

func (s *testServer) addBalance(t *testing.T, owner, mint string, raw int64) {
	t.Helper()
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	s.ledger.AddTokenAccount(&domain.TokenAccount{Address: ata, Owner: owner, Mint: mint, Amount: big.NewInt(raw)})
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestWalletConnectDisconnect(t *testing.T) {
	s := newTestServer(t)

	st := decodeBody[wallet.Status](t, s.do(t, http.MethodGet, "/api/wallet", nil))
	assert.Equal(t, wallet.StateDisconnected, st.State)
	assert.Equal(t, "devnet", st.Network)

	s.connect(t)
	st = decodeBody[wallet.Status](t, s.do(t, http.MethodGet, "/api/wallet", nil))
	assert.Equal(t, wallet.StateConnected, st.State)
	assert.Equal(t, s.owner.PublicKey(), st.PublicKey)

	w := s.do(t, http.MethodDelete, "/api/wallet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wallet.StateDisconnected, decodeBody[wallet.Status](t, w).State)
}

func TestWalletConnect_BadKey(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/wallet", ConnectRequest{SecretKey: "[1,2,3]"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.Equal(t, "Wallet connection failed", resp.Notice.Title)

	// No configured keypair file.
	w = s.do(t, http.MethodPost, "/api/wallet", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard_WalletNotConnected(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.Equal(t, tokenops.KindWalletNotConnected, resp.Error)
	assert.Equal(t, "Wallet not connected", resp.Notice.Title)
	assert.Equal(t, tokenops.VariantDestructive, resp.Notice.Variant)
}

func TestDashboard_OwnerQueryAndCache(t *testing.T) {
	s := newTestServer(t)
	mint := s.addMint(t, 2, "")
	s.addBalance(t, s.owner.PublicKey(), mint, 150)

	w := s.do(t, http.MethodGet, "/api/dashboard?owner="+s.owner.PublicKey(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decodeBody[DashboardResponse](t, w)
	assert.Equal(t, "10", d.SOL)
	require.Len(t, d.Tokens, 1)
	assert.Equal(t, "1.5", d.Tokens[0].Amount)
	assert.False(t, d.Cached)

	// Once the wallet is connected the refresher snapshot is served.
	s.connect(t)
	require.Eventually(t, func() bool {
		_, ok := s.refresher.Snapshot(s.owner.PublicKey())
		return ok
	}, time.Second, 5*time.Millisecond)

	calls := s.ledger.Calls("getBalance")
	w = s.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[DashboardResponse](t, w).Cached)
	assert.Equal(t, calls, s.ledger.Calls("getBalance"))

	w = s.do(t, http.MethodGet, "/api/dashboard?refresh=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[DashboardResponse](t, w).Cached)
}

func TestDashboard_InvalidOwner(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/dashboard?owner=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, tokenops.KindInvalidAddress, decodeBody[ErrorResponse](t, w).Error)
}

func TestCreateMintSendFlow(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)

	// Create.
	w := s.do(t, http.MethodPost, "/api/create", tokenops.CreateRequest{
		Name: "Demo", Symbol: "DEMO", Decimals: 2, InitialSupply: "100",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decodeBody[ReceiptResponse](t, w)
	assert.Equal(t, "Token created successfully!", created.Notice.Title)
	mint := created.Receipt.Mint
	require.NotEmpty(t, mint)

	// Mint 5 more.
	w = s.do(t, http.MethodPost, "/api/mint/verify", map[string]string{"mint": mint})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	verified := decodeBody[VerifyMintResponse](t, w)
	assert.Equal(t, uint8(2), verified.Mint.Decimals)
	assert.Equal(t, "Mint verified", verified.Notice.Title)

	w = s.do(t, http.MethodPost, "/api/mint", tokenops.MintRequest{Amount: "5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "5 tokens have been minted to your wallet.", decodeBody[ReceiptResponse](t, w).Notice.Description)

	// Send.
	w = s.do(t, http.MethodPost, "/api/send/verify", map[string]string{"mint": mint})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decodeBody[VerifySendResponse](t, w)
	assert.Equal(t, "105", token.Token.DisplayBalance)
	assert.Equal(t, "Your balance: 105 tokens", token.Notice.Description)

	// The refresher may be fetching balances in the background, so only
	// count the calls a submission makes.
	recipient := wallet.NewKeypair().PublicKey()
	infoCalls, hashCalls := s.ledger.Calls("getAccountInfo"), s.ledger.Calls("getLatestBlockhash")
	w = s.do(t, http.MethodPost, "/api/send", tokenops.SendRequest{Recipient: recipient, Amount: "200"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.Equal(t, tokenops.KindInsufficientBalance, resp.Error)
	assert.Equal(t, "Insufficient balance", resp.Notice.Title)
	assert.Equal(t, infoCalls, s.ledger.Calls("getAccountInfo"))
	assert.Equal(t, hashCalls, s.ledger.Calls("getLatestBlockhash"))

	w = s.do(t, http.MethodPost, "/api/send", tokenops.SendRequest{Recipient: recipient, Amount: "0.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decodeBody[ReceiptResponse](t, w)
	assert.Equal(t, "50", sent.Receipt.RawAmount)

	// Verification is cleared after a successful send.
	w = s.do(t, http.MethodPost, "/api/send", tokenops.SendRequest{Recipient: recipient, Amount: "0.5"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cannot send tokens", decodeBody[ErrorResponse](t, w).Notice.Title)

	// Every submission was recorded.
	w = s.do(t, http.MethodGet, "/api/operations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ops := decodeBody[[]domain.OperationRecord](t, w)
	assert.Len(t, ops, 3)
}

func TestMint_NotVerified(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)

	w := s.do(t, http.MethodPost, "/api/mint", tokenops.MintRequest{Amount: "1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cannot mint tokens", decodeBody[ErrorResponse](t, w).Notice.Title)
}

func TestVerifyMint_NotAuthority(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)
	mint := s.addMint(t, 0, wallet.NewKeypair().PublicKey())

	w := s.do(t, http.MethodPost, "/api/mint/verify", map[string]string{"mint": mint})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not authorized", decodeBody[ErrorResponse](t, w).Notice.Title)
	assert.Empty(t, s.ledger.Sent())
}

func TestCreate_BadBody(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)

	req := httptest.NewRequest(http.MethodPost, "/api/create", bytes.NewBufferString(`{"name": "x", "colour": "red"}`))
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, tokenops.KindInvalidInput, decodeBody[ErrorResponse](t, w).Error)
}

func TestHistory(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)

	sigs := make([]solana.SignatureInfo, 3)
	for i := range sigs {
		sigs[i] = solana.SignatureInfo{Signature: "sig" + string(rune('a'+i)), Slot: int64(10 - i)}
	}
	s.ledger.AddSignatures(s.owner.PublicKey(), sigs)

	w := s.do(t, http.MethodGet, "/api/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decodeBody[domain.HistoryPage](t, w)
	require.Len(t, page.Transactions, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "sigb", page.Next)

	w = s.do(t, http.MethodGet, "/api/history?limit=2&before="+page.Next, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decodeBody[domain.HistoryPage](t, w)
	require.Len(t, page.Transactions, 1)
	assert.False(t, page.HasMore)

	w = s.do(t, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)

	w := s.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeBody[StatusResponse](t, w)
	assert.Equal(t, "running", st.Status)
	assert.Equal(t, wallet.StateConnected, st.Wallet.State)
	assert.Equal(t, tokenops.StateIdle, st.Forms.Send.State)
	require.NotNil(t, st.Refresher)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", nil)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "requests_total")
}

func TestRecoverMiddleware(t *testing.T) {
	h := NewHandler(Options{Service: tokenops.NewService(tokenops.Options{}), Logger: log.New(io.Discard, "", 0)})
	panicking := h.RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	panicking.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
