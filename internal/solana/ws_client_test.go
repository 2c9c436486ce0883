package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newWSServer upgrades each connection and hands it to serve.
func newWSServer(t *testing.T, serve func(c *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		serve(c)
	}))
	return server, "ws" + strings.TrimPrefix(server.URL, "http")
}

// drain keeps the connection open until the client goes away.
func drain(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func readRequest(t *testing.T, c *websocket.Conn) (wsRequest, bool) {
	t.Helper()
	_, msg, err := c.ReadMessage()
	if err != nil {
		return wsRequest{}, false
	}
	var req wsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		t.Errorf("unmarshal request: %v", err)
		return wsRequest{}, false
	}
	return req, true
}

func ackSubscribe(t *testing.T, c *websocket.Conn, reqID uint64, subID int64) {
	t.Helper()
	resp := wsSubscribeResponse{JSONRPC: "2.0", ID: reqID, Result: &subID}
	if err := c.WriteJSON(resp); err != nil {
		t.Errorf("write response: %v", err)
	}
}

func notifySignature(t *testing.T, c *websocket.Conn, subID, slot int64, txErr interface{}) {
	t.Helper()
	notif := wsNotification{
		JSONRPC: "2.0",
		Method:  "signatureNotification",
		Params: &wsNotificationParams{
			Subscription: subID,
			Result: wsNotificationResult{
				Context: &wsContext{Slot: slot},
				Value:   wsSignatureValue{Err: txErr},
			},
		},
	}
	if err := c.WriteJSON(notif); err != nil {
		t.Errorf("write notification: %v", err)
	}
}

func TestWSClient_Connect(t *testing.T) {
	server, wsURL := newWSServer(t, drain)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeSignature(t *testing.T) {
	server, wsURL := newWSServer(t, func(c *websocket.Conn) {
		req, ok := readRequest(t, c)
		if !ok {
			return
		}

		if req.Method != "signatureSubscribe" {
			t.Errorf("expected signatureSubscribe, got %s", req.Method)
		}
		if len(req.Params) != 2 || req.Params[0] != "testsig" {
			t.Errorf("unexpected params: %v", req.Params)
		}
		config, _ := req.Params[1].(map[string]interface{})
		if config["commitment"] != CommitmentConfirmed {
			t.Errorf("expected confirmed commitment, got %v", config["commitment"])
		}

		// Notification directly after the ack must not be lost.
		ackSubscribe(t, c, req.ID, 12345)
		notifySignature(t, c, 12345, 100, nil)
		drain(c)
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeSignature(ctx, "testsig", CommitmentConfirmed)
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}

	select {
	case notif, ok := <-ch:
		if !ok {
			t.Fatal("channel closed without notification")
		}
		if notif.Signature != "testsig" {
			t.Errorf("expected testsig, got %s", notif.Signature)
		}
		if notif.Slot != 100 {
			t.Errorf("expected slot 100, got %d", notif.Slot)
		}
		if notif.Err != nil {
			t.Errorf("expected no error, got %v", notif.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}

	// One-shot: the channel is closed after the notification.
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after notification")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestWSClient_SubscribeSignature_TransactionError(t *testing.T) {
	server, wsURL := newWSServer(t, func(c *websocket.Conn) {
		req, ok := readRequest(t, c)
		if !ok {
			return
		}
		ackSubscribe(t, c, req.ID, 7)
		notifySignature(t, c, 7, 55, map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 1}}})
		drain(c)
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeSignature(ctx, "failedsig", "")
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}

	select {
	case notif := <-ch:
		if notif.Err == nil {
			t.Error("expected transaction error in notification")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_ConnectionDropClosesSubscription(t *testing.T) {
	server, wsURL := newWSServer(t, func(c *websocket.Conn) {
		req, ok := readRequest(t, c)
		if !ok {
			return
		}
		ackSubscribe(t, c, req.ID, 99)
		// Return closes the connection before any notification.
	})
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, &WSClientConfig{
		ReconnectDelay:    time.Hour,
		MaxReconnectDelay: time.Hour,
		PingInterval:      time.Minute,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
		SubscribeTimeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ch, err := client.SubscribeSignature(ctx, "lostsig", CommitmentConfirmed)
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel closed without a value")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not released after connection drop")
	}
}

func TestWSClient_SubscribeErrorResponse(t *testing.T) {
	server, wsURL := newWSServer(t, func(c *websocket.Conn) {
		req, ok := readRequest(t, c)
		if !ok {
			return
		}
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid Request"},
		})
		drain(c)
	})
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 200 * time.Millisecond

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, &cfg)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if _, err := client.SubscribeSignature(ctx, "bad", CommitmentConfirmed); err == nil {
		t.Fatal("expected subscribe error")
	}
}

func TestWSClient_CancelSendsUnsubscribe(t *testing.T) {
	unsubscribed := make(chan int64, 1)

	server, wsURL := newWSServer(t, func(c *websocket.Conn) {
		req, ok := readRequest(t, c)
		if !ok {
			return
		}
		ackSubscribe(t, c, req.ID, 31)

		req, ok = readRequest(t, c)
		if !ok {
			return
		}
		if req.Method == "signatureUnsubscribe" && len(req.Params) == 1 {
			if id, ok := req.Params[0].(float64); ok {
				unsubscribed <- int64(id)
			}
		}
		drain(c)
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := client.SubscribeSignature(ctx, "slowsig", CommitmentConfirmed)
	if err != nil {
		t.Fatalf("SubscribeSignature: %v", err)
	}
	cancel()

	select {
	case id := <-unsubscribed:
		if id != 31 {
			t.Errorf("expected unsubscribe of 31, got %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no signatureUnsubscribe sent")
	}

	if _, ok := <-ch; ok {
		t.Error("expected channel closed after cancel")
	}
}

func TestWSClient_Close(t *testing.T) {
	server, wsURL := newWSServer(t, drain)
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSClient_SubscribeAfterClose(t *testing.T) {
	server, wsURL := newWSServer(t, drain)
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	client.Close()

	if _, err := client.SubscribeSignature(ctx, "sig", CommitmentConfirmed); err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewWSClient(ctx, "ws://127.0.0.1:1", nil); err == nil {
		t.Fatal("expected dial error")
	}
}
