package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/reporting"
	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

func (s *testServer) addOperation(t *testing.T, id, wallet string, kind domain.OperationKind, status domain.OperationStatus, ts int64) {
	t.Helper()
	require.NoError(t, s.ops.Insert(context.Background(), &domain.OperationRecord{
		OperationID: id,
		Kind:        kind,
		Wallet:      wallet,
		Mint:        "mint1",
		Status:      status,
		LatencyMs:   100,
		Timestamp:   ts,
	}))
}

func TestReport(t *testing.T) {
	s := newTestServer(t)
	s.connect(t)
	now := time.Now().UnixMilli()
	me := s.owner.PublicKey()
	s.addOperation(t, "op1", me, domain.OperationCreate, domain.OperationConfirmed, now-1000)
	s.addOperation(t, "op2", me, domain.OperationMint, domain.OperationFailed, now-500)
	s.addOperation(t, "op3", "someone-else", domain.OperationSend, domain.OperationConfirmed, now-500)
	s.addOperation(t, "old", me, domain.OperationSend, domain.OperationConfirmed, now-48*time.Hour.Milliseconds())

	w := s.do(t, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	r := decodeBody[reporting.Report](t, w)
	assert.Equal(t, me, r.Wallet, "defaults to the connected wallet")
	assert.Equal(t, 2, r.Summary.Total, "outside the default window or other wallets excluded")
	assert.Equal(t, 1, r.Summary.Failed)
	require.Len(t, r.Kinds, 2)
	assert.Equal(t, domain.OperationCreate, r.Kinds[0].Kind)

	w = s.do(t, http.MethodGet, "/api/report?wallet=all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeBody[reporting.Report](t, w).Summary.Total)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/report?from=0&to=%d", now), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeBody[reporting.Report](t, w).Summary.Total, "explicit window includes old operations")
}

func TestReport_Formats(t *testing.T) {
	s := newTestServer(t)
	s.addOperation(t, "op1", "w1", domain.OperationMint, domain.OperationConfirmed, time.Now().UnixMilli())

	w := s.do(t, http.MethodGet, "/api/report?wallet=all&format=markdown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Operations Report"))

	w = s.do(t, http.MethodGet, "/api/report?wallet=all&format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "\nmint,1,1,0,")

	w = s.do(t, http.MethodGet, "/api/report?wallet=all&format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReport_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/report", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "no wallet connected")

	w = s.do(t, http.MethodGet, "/api/report?wallet=all&from=10&to=5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.Equal(t, tokenops.KindInvalidInput, resp.Error)
	assert.Equal(t, "Error generating report", resp.Notice.Title)

	w = s.do(t, http.MethodGet, "/api/report?wallet=all&to=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReport_ZeroBoundsAreExplicit(t *testing.T) {
	s := newTestServer(t)
	now := time.Now().UnixMilli()
	s.addOperation(t, "recent", "w1", domain.OperationMint, domain.OperationConfirmed, now-1000)
	s.addOperation(t, "old", "w1", domain.OperationSend, domain.OperationConfirmed, now-48*time.Hour.Milliseconds())

	w := s.do(t, http.MethodGet, "/api/report?wallet=all&from=0", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := decodeBody[reporting.Report](t, w)
	assert.Equal(t, int64(0), r.From, "from=0 is the epoch, not the default window")
	assert.Equal(t, 2, r.Summary.Total)

	w = s.do(t, http.MethodGet, "/api/report?wallet=all&from=0&to=0", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r = decodeBody[reporting.Report](t, w)
	assert.Equal(t, int64(0), r.To, "to=0 is not replaced by now")
	assert.Equal(t, 0, r.Summary.Total)
}
