package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSecret returns a deterministic 64-byte secret key.
func fixedSecret() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return ed25519.NewKeyFromSeed(seed)
}

func TestKeypairFromBytes(t *testing.T) {
	secret := fixedSecret()
	kp, err := KeypairFromBytes(secret)
	require.NoError(t, err)

	pub := ed25519.PrivateKey(secret).Public().(ed25519.PublicKey)
	assert.Equal(t, base58.Encode(pub), kp.PublicKey())
}

func TestKeypairFromBytes_WrongLength(t *testing.T) {
	_, err := KeypairFromBytes(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidKeypair)
}

func TestParseKeypair_JSON(t *testing.T) {
	secret := fixedSecret()
	ints := make([]int, len(secret))
	for i, b := range secret {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)

	kp, err := ParseKeypair(data)
	require.NoError(t, err)

	want, _ := KeypairFromBytes(secret)
	assert.Equal(t, want.PublicKey(), kp.PublicKey())
}

func TestParseKeypair_Base58(t *testing.T) {
	secret := fixedSecret()
	kp, err := ParseKeypair([]byte("  " + base58.Encode(secret) + "\n"))
	require.NoError(t, err)

	want, _ := KeypairFromBytes(secret)
	assert.Equal(t, want.PublicKey(), kp.PublicKey())
}

func TestParseKeypair_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"out of range": "[256, 1, 2]",
		"negative":     "[-1]",
		"short array":  "[1, 2, 3]",
		"bad json":     "[1, 2,",
		"bad base58":   "0OIl",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseKeypair([]byte(input))
			assert.ErrorIs(t, err, ErrInvalidKeypair)
		})
	}
}

func TestLoadKeypairFile(t *testing.T) {
	kp := NewKeypair()
	data, err := json.Marshal(kp)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadKeypairFile(path)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), loaded.PublicKey())
}

func TestLoadKeypairFile_Missing(t *testing.T) {
	_, err := LoadKeypairFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestKeypair_SignMessage(t *testing.T) {
	kp := NewKeypair()
	msg := []byte("transaction message")

	sig, err := kp.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, sig, ed25519.SignatureSize)

	pub, err := base58.Decode(kp.PublicKey())
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, msg, sig))
}

func TestKeypair_SignMessage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewKeypair().SignMessage(ctx, []byte("x"))
	assert.True(t, errors.Is(err, context.Canceled))
}
