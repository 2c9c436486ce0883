package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
)

// State is the connection state of a Session.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateDisconnecting State = "disconnecting"
)

// Status is a snapshot of the session for display.
type Status struct {
	State     State  `json:"state"`
	PublicKey string `json:"publicKey,omitempty"`
	Network   string `json:"network"`
}

// Session binds at most one Signer at a time and notifies listeners on
// connect and disconnect.
type Session struct {
	network string

	mu     sync.RWMutex
	state  State
	signer Signer

	listenersMu  sync.Mutex
	onConnect    []func(Signer)
	onDisconnect []func(publicKey string)
}

// NewSession creates a disconnected session for the given cluster name.
func NewSession(network string) *Session {
	return &Session{
		network: network,
		state:   StateDisconnected,
	}
}

// OnConnect registers a listener called after a signer is connected.
func (s *Session) OnConnect(fn func(Signer)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onConnect = append(s.onConnect, fn)
}

// OnDisconnect registers a listener called after the signer is released.
func (s *Session) OnDisconnect(fn func(publicKey string)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onDisconnect = append(s.onDisconnect, fn)
}

// Connect binds signer. A previously bound, different signer is disconnected
// first. Connecting the same key again is a no-op.
func (s *Session) Connect(ctx context.Context, signer Signer) error {
	if signer == nil {
		return fmt.Errorf("%w: nil signer", ErrInvalidKeypair)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	pub := signer.PublicKey()
	if b, err := base58.Decode(pub); err != nil || len(b) != 32 {
		return fmt.Errorf("%w: public key %q", ErrInvalidKeypair, pub)
	}

	s.mu.Lock()
	if s.state == StateConnected && s.signer.PublicKey() == pub {
		s.mu.Unlock()
		return nil
	}
	if s.state == StateConnecting || s.state == StateDisconnecting {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("wallet is %s", state)
	}
	previous := s.signer
	s.signer = nil
	s.state = StateConnecting
	s.mu.Unlock()

	if previous != nil {
		s.notifyDisconnect(previous.PublicKey())
	}

	s.mu.Lock()
	s.signer = signer
	s.state = StateConnected
	s.mu.Unlock()

	s.notifyConnect(signer)
	return nil
}

// Disconnect releases the bound signer. It is a no-op when disconnected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	pub := s.signer.PublicKey()
	s.state = StateDisconnecting
	s.mu.Unlock()

	s.notifyDisconnect(pub)

	s.mu.Lock()
	s.signer = nil
	s.state = StateDisconnected
	s.mu.Unlock()
}

// Current returns the connected signer or ErrWalletNotConnected.
func (s *Session) Current() (Signer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected || s.signer == nil {
		return nil, ErrWalletNotConnected
	}
	return s.signer, nil
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a display snapshot.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{State: s.state, Network: s.network}
	if s.signer != nil {
		st.PublicKey = s.signer.PublicKey()
	}
	return st
}

func (s *Session) notifyConnect(signer Signer) {
	s.listenersMu.Lock()
	fns := append([]func(Signer){}, s.onConnect...)
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn(signer)
	}
}

func (s *Session) notifyDisconnect(pub string) {
	s.listenersMu.Lock()
	fns := append([]func(string){}, s.onDisconnect...)
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn(pub)
	}
}
