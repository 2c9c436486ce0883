package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

// Keypair is a Signer backed by an in-process ed25519 key.
type Keypair struct {
	account types.Account
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() *Keypair {
	return &Keypair{account: types.NewAccount()}
}

// KeypairFromBytes builds a keypair from a 64-byte secret key (seed || public key).
func KeypairFromBytes(b []byte) (*Keypair, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeypair, ed25519.PrivateKeySize, len(b))
	}
	acc, err := types.AccountFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return &Keypair{account: acc}, nil
}

// ParseKeypair accepts a solana-keygen JSON array ([u8;64]) or a base58
// encoded 64-byte secret key as exported by browser wallets.
func ParseKeypair(data []byte) (*Keypair, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKeypair)
	}
	if strings.HasPrefix(s, "[") {
		b, err := decodeKeypairJSON([]byte(s))
		if err != nil {
			return nil, err
		}
		return KeypairFromBytes(b)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return KeypairFromBytes(b)
}

// LoadKeypairFile reads a keypair file written by solana-keygen.
func LoadKeypairFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	return ParseKeypair(data)
}

// decodeKeypairJSON decodes [n,n,...] with every element in 0..255.
func decodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("%w: unmarshal keypair json: %v", ErrInvalidKeypair, err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: byte out of range at %d: %d", ErrInvalidKeypair, i, v)
		}
		b[i] = byte(v)
	}
	return b, nil
}

// PublicKey implements Signer.
func (k *Keypair) PublicKey() string {
	return k.account.PublicKey.ToBase58()
}

// SignMessage implements Signer.
func (k *Keypair) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return k.account.Sign(msg), nil
}

// Account exposes the SDK account for callers that sign locally generated
// keys, such as a new mint.
func (k *Keypair) Account() types.Account {
	return k.account
}

// MarshalJSON encodes the keypair in solana-keygen format.
func (k *Keypair) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(k.account.PrivateKey))
	for i, b := range k.account.PrivateKey {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// Compile-time interface check
var _ Signer = (*Keypair)(nil)
