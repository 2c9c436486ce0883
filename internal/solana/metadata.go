package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"strings"
)

// TokenLabel is the display name and symbol of a mint.
type TokenLabel struct {
	Name   string
	Symbol string
}

// ParseMetaplexMetadata parses Metaplex Token Metadata account data.
// Metaplex Metadata layout:
// - key: u8 (1 byte, should be 4 for MetadataV1)
// - updateAuthority: Pubkey (32 bytes)
// - mint: Pubkey (32 bytes)
// - name: String (4 + length bytes, max 32 chars)
// - symbol: String (4 + length bytes, max 10 chars)
// - uri: String (4 + length bytes, max 200 chars)
// ...and more fields
func ParseMetaplexMetadata(data string) (TokenLabel, bool) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return TokenLabel{}, false
	}
	if len(decoded) < 69 || decoded[0] != 4 {
		return TokenLabel{}, false
	}

	// Skip: key(1) + updateAuthority(32) + mint(32) = 65 bytes
	offset := 65
	name, offset, ok := borshString(decoded, offset, 100)
	if !ok {
		return TokenLabel{}, false
	}
	symbol, _, ok := borshString(decoded, offset, 20)
	if !ok {
		return TokenLabel{}, false
	}

	label := TokenLabel{Name: name, Symbol: symbol}
	return label, label.Name != "" || label.Symbol != ""
}

// borshString reads a u32-length-prefixed string padded with NULs.
func borshString(b []byte, offset int, max uint32) (string, int, bool) {
	if offset+4 > len(b) {
		return "", offset, false
	}
	n := binary.LittleEndian.Uint32(b[offset:])
	offset += 4
	if n > max || offset+int(n) > len(b) {
		return "", offset, false
	}
	s := strings.TrimRight(string(b[offset:offset+int(n)]), "\x00")
	return strings.TrimSpace(s), offset + int(n), true
}

// FetchTokenLabel looks up Metaplex metadata for mint.
// Returns ok=false when the mint has no metadata account.
func FetchTokenLabel(ctx context.Context, rpc RPCClient, mint string) (TokenLabel, bool, error) {
	pda, err := FindMetadataAddress(mint)
	if err != nil {
		return TokenLabel{}, false, err
	}
	info, err := rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return TokenLabel{}, false, err
	}
	if info == nil || info.Data == "" {
		return TokenLabel{}, false, nil
	}
	label, ok := ParseMetaplexMetadata(info.Data)
	return label, ok, nil
}

// PlaceholderLabel labels a mint without metadata.
func PlaceholderLabel(mint string) TokenLabel {
	symbol := "TKN"
	if len(mint) >= 2 {
		symbol += mint[:2]
	}
	return TokenLabel{
		Name:   "Token " + ShortAddress(mint),
		Symbol: symbol,
	}
}
