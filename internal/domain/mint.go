package domain

import "math/big"

// Mint represents an SPL token mint account as read from the ledger.
type Mint struct {
	Address         string   // mint address (base58)
	Decimals        uint8    // 0..9 for mints created here
	MintAuthority   *string  // nil when minting is disabled
	FreezeAuthority *string  // nil when freezing is disabled
	Supply          *big.Int // raw supply, scaled by 10^Decimals
	IsInitialized   bool
}

// HasAuthority reports whether addr is the recorded mint authority.
func (m *Mint) HasAuthority(addr string) bool {
	return m != nil && m.MintAuthority != nil && *m.MintAuthority == addr
}

// MintInfo is the result of a successful mint verification.
type MintInfo struct {
	Mint          string `json:"mint"`
	Decimals      uint8  `json:"decimals"`
	MintAuthority string `json:"mint_authority"`
}
