package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	MetaplexProgramID        = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// PublicKeyLength is the size of an ed25519 public key.
const PublicKeyLength = 32

// ErrInvalidAddress is returned for strings that are not 32-byte base58 keys.
var ErrInvalidAddress = errors.New("invalid address")

const pdaMarker = "ProgramDerivedAddress"

// DecodeAddress decodes a base58 address into its 32 raw bytes.
func DecodeAddress(address string) ([]byte, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	b, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}
	if len(b) != PublicKeyLength {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, address, len(b))
	}
	return b, nil
}

// ValidateAddress checks that address is a syntactically valid public key.
// Both on-curve wallet keys and off-curve PDAs are accepted.
func ValidateAddress(address string) error {
	_, err := DecodeAddress(strings.TrimSpace(address))
	return err
}

// IsOnCurve reports whether the 32 bytes are a valid ed25519 point.
func IsOnCurve(point []byte) bool {
	if len(point) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// FindProgramAddress derives a program derived address and its bump seed.
// Bumps are tried from 255 downward until the hash falls off the curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodeAddress(programID)
	if err != nil {
		return "", 0, fmt.Errorf("program id: %w", err)
	}
	for _, seed := range seeds {
		if len(seed) > 32 {
			return "", 0, fmt.Errorf("seed longer than 32 bytes")
		}
	}

	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, program...)
		data = append(data, pdaMarker...)

		hash := sha256.Sum256(data)
		if !IsOnCurve(hash[:]) {
			return base58.Encode(hash[:]), uint8(bump), nil
		}
	}
	return "", 0, fmt.Errorf("no viable bump for program %s", programID)
}

// FindAssociatedTokenAddress derives the canonical token account of owner for mint.
// Seeds: [owner, token_program_id, mint]
func FindAssociatedTokenAddress(owner, mint string) (string, error) {
	ownerBytes, err := DecodeAddress(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintBytes, err := DecodeAddress(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	programBytes, _ := DecodeAddress(TokenProgramID)

	addr, _, err := FindProgramAddress([][]byte{ownerBytes, programBytes, mintBytes}, AssociatedTokenProgramID)
	return addr, err
}

// FindMetadataAddress derives the Metaplex metadata account for a mint.
// Seeds: ["metadata", metaplex_program_id, mint]
func FindMetadataAddress(mint string) (string, error) {
	mintBytes, err := DecodeAddress(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	programBytes, _ := DecodeAddress(MetaplexProgramID)

	addr, _, err := FindProgramAddress([][]byte{[]byte("metadata"), programBytes, mintBytes}, MetaplexProgramID)
	return addr, err
}

// ShortAddress renders an address as its first and last four characters.
func ShortAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}

// ExplorerTxURL returns the block explorer link for a transaction signature.
func ExplorerTxURL(baseURL, cluster, signature string) string {
	return explorerURL(baseURL, "tx", cluster, signature)
}

// ExplorerAddressURL returns the block explorer link for an account.
func ExplorerAddressURL(baseURL, cluster, address string) string {
	return explorerURL(baseURL, "address", cluster, address)
}

func explorerURL(baseURL, kind, cluster, id string) string {
	if baseURL == "" {
		baseURL = "https://explorer.solana.com"
	}
	u := strings.TrimRight(baseURL, "/") + "/" + kind + "/" + id
	if cluster != "" && cluster != "mainnet-beta" {
		u += "?cluster=" + cluster
	}
	return u
}
