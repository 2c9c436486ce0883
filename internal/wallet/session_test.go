package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_ConnectDisconnect(t *testing.T) {
	s := NewSession("devnet")
	assert.Equal(t, StateDisconnected, s.State())

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	var connected []string
	var disconnected []string
	s.OnConnect(func(sg Signer) { connected = append(connected, sg.PublicKey()) })
	s.OnDisconnect(func(pub string) { disconnected = append(disconnected, pub) })

	kp := NewKeypair()
	require.NoError(t, s.Connect(context.Background(), kp))
	assert.Equal(t, StateConnected, s.State())

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), cur.PublicKey())

	st := s.Status()
	assert.Equal(t, StateConnected, st.State)
	assert.Equal(t, kp.PublicKey(), st.PublicKey)
	assert.Equal(t, "devnet", st.Network)

	s.Disconnect()
	assert.Equal(t, StateDisconnected, s.State())
	_, err = s.Current()
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	assert.Equal(t, []string{kp.PublicKey()}, connected)
	assert.Equal(t, []string{kp.PublicKey()}, disconnected)

	// Disconnect when already disconnected fires nothing.
	s.Disconnect()
	assert.Len(t, disconnected, 1)
}

func TestSession_ConnectSameKeyIsNoop(t *testing.T) {
	s := NewSession("devnet")
	calls := 0
	s.OnConnect(func(Signer) { calls++ })

	kp := NewKeypair()
	require.NoError(t, s.Connect(context.Background(), kp))
	require.NoError(t, s.Connect(context.Background(), kp))
	assert.Equal(t, 1, calls)
}

func TestSession_SwitchWallet(t *testing.T) {
	s := NewSession("devnet")
	var events []string
	s.OnConnect(func(sg Signer) { events = append(events, "connect:"+sg.PublicKey()) })
	s.OnDisconnect(func(pub string) { events = append(events, "disconnect:"+pub) })

	a, b := NewKeypair(), NewKeypair()
	require.NoError(t, s.Connect(context.Background(), a))
	require.NoError(t, s.Connect(context.Background(), b))

	assert.Equal(t, []string{
		"connect:" + a.PublicKey(),
		"disconnect:" + a.PublicKey(),
		"connect:" + b.PublicKey(),
	}, events)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, b.PublicKey(), cur.PublicKey())
}

func TestSession_ConnectInvalid(t *testing.T) {
	s := NewSession("devnet")

	assert.ErrorIs(t, s.Connect(context.Background(), nil), ErrInvalidKeypair)
	assert.ErrorIs(t, s.Connect(context.Background(), badSigner{}), ErrInvalidKeypair)
	assert.Equal(t, StateDisconnected, s.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Connect(ctx, NewKeypair()), context.Canceled)
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := NewSession("devnet")
	kp := NewKeypair()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Connect(context.Background(), kp)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Current()
			_ = s.Status()
		}()
	}
	wg.Wait()

	assert.Equal(t, StateConnected, s.State())
}

type badSigner struct{}

func (badSigner) PublicKey() string { return "not-a-key" }

func (badSigner) SignMessage(context.Context, []byte) ([]byte, error) { return nil, ErrSigningRejected }
