package solana

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
)

// Account sizes of the token program.
const (
	MintAccountSize  = 82
	TokenAccountSize = 165
)

var (
	// ErrMintNotFound is returned when a mint address has no account.
	ErrMintNotFound = errors.New("mint not found")
	// ErrTokenAccountNotFound is returned when a token account does not exist.
	ErrTokenAccountNotFound = errors.New("token account not found")
	// ErrNotTokenProgram is returned when an account is owned by another program.
	ErrNotTokenProgram = errors.New("account not owned by token program")
)

// ParseMint decodes base64 mint account data.
//
// Mint layout:
// - mintAuthority: COption<Pubkey> (4 + 32)
// - supply: u64 at 36
// - decimals: u8 at 44
// - isInitialized: bool at 45
// - freezeAuthority: COption<Pubkey> (4 + 32) at 46
func ParseMint(address, data string) (*domain.Mint, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < MintAccountSize {
		return nil, fmt.Errorf("mint data too short: %d", len(decoded))
	}

	m := &domain.Mint{
		Address:         address,
		MintAuthority:   parseCOptionKey(decoded[0:36]),
		Supply:          new(big.Int).SetUint64(binary.LittleEndian.Uint64(decoded[36:44])),
		Decimals:        decoded[44],
		IsInitialized:   decoded[45] == 1,
		FreezeAuthority: parseCOptionKey(decoded[46:82]),
	}
	return m, nil
}

// ParseTokenAccount decodes base64 token account data.
// Token account layout: mint(32) | owner(32) | amount(8) | ...
func ParseTokenAccount(address, data string) (*domain.TokenAccount, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < 72 {
		return nil, fmt.Errorf("token account data too short: %d", len(decoded))
	}

	return &domain.TokenAccount{
		Address: address,
		Mint:    base58.Encode(decoded[0:32]),
		Owner:   base58.Encode(decoded[32:64]),
		Amount:  new(big.Int).SetUint64(binary.LittleEndian.Uint64(decoded[64:72])),
	}, nil
}

func parseCOptionKey(b []byte) *string {
	if binary.LittleEndian.Uint32(b[0:4]) == 0 {
		return nil
	}
	key := base58.Encode(b[4:36])
	return &key
}

// EncodeMint serializes a mint into its 82-byte account layout.
// Used by test ledgers to serve getAccountInfo.
func EncodeMint(m *domain.Mint) ([]byte, error) {
	out := make([]byte, MintAccountSize)
	if err := putCOptionKey(out[0:36], m.MintAuthority); err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	if m.Supply != nil {
		if !m.Supply.IsUint64() {
			return nil, fmt.Errorf("supply out of u64 range")
		}
		binary.LittleEndian.PutUint64(out[36:44], m.Supply.Uint64())
	}
	out[44] = m.Decimals
	if m.IsInitialized {
		out[45] = 1
	}
	if err := putCOptionKey(out[46:82], m.FreezeAuthority); err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}
	return out, nil
}

// EncodeTokenAccount serializes the mint, owner and amount fields of a token account.
func EncodeTokenAccount(a *domain.TokenAccount) ([]byte, error) {
	out := make([]byte, TokenAccountSize)
	mint, err := DecodeAddress(a.Mint)
	if err != nil {
		return nil, err
	}
	owner, err := DecodeAddress(a.Owner)
	if err != nil {
		return nil, err
	}
	copy(out[0:32], mint)
	copy(out[32:64], owner)
	if a.Amount != nil {
		binary.LittleEndian.PutUint64(out[64:72], a.Amount.Uint64())
	}
	out[108] = 1 // state: initialized
	return out, nil
}

func putCOptionKey(dst []byte, key *string) error {
	if key == nil {
		return nil
	}
	b, err := DecodeAddress(*key)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst[0:4], 1)
	copy(dst[4:36], b)
	return nil
}
