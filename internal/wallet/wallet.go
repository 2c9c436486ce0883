// Package wallet is the signing boundary. Private keys never leave a Signer;
// the rest of the application only sees the public key and signatures.
package wallet

import (
	"context"
	"errors"
)

var (
	// ErrWalletNotConnected is returned when an operation needs a wallet and none is bound.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrSigningRejected is returned by a Signer that refuses to sign.
	ErrSigningRejected = errors.New("signing rejected")

	// ErrInvalidKeypair is returned for malformed keypair material.
	ErrInvalidKeypair = errors.New("invalid keypair")
)

// Signer is the wallet capability: a public key and the ability to sign
// serialized transaction messages with the matching private key.
type Signer interface {
	// PublicKey returns the base58 wallet address.
	PublicKey() string

	// SignMessage returns the 64-byte ed25519 signature of msg.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}
