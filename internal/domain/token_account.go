package domain

import "math/big"

// TokenAccount represents an SPL token account holding a balance of one mint.
type TokenAccount struct {
	Address  string   // token account address
	Owner    string   // owning wallet address
	Mint     string   // mint address
	Amount   *big.Int // raw amount, unscaled
	Decimals uint8    // decimals reported by the ledger for the mint
}

// TokenInfo is the result of a successful send verification: the sender's
// balance of one mint at the time of verification.
type TokenInfo struct {
	Mint           string   `json:"mint"`
	SourceAccount  string   `json:"source_account"`
	Decimals       uint8    `json:"decimals"`
	RawBalance     *big.Int `json:"-"`
	DisplayBalance string   `json:"balance"`
}

// TokenBalance is one dashboard row.
type TokenBalance struct {
	Account string `json:"account"`
	Mint    string `json:"mint"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`     // display amount
	Raw     string `json:"raw_amount"` // raw amount, base 10
	// Registered is true when the label comes from the local token registry
	// rather than the short-address placeholder.
	Registered bool  `json:"registered"`
	Decimals   uint8 `json:"decimals"`
}

// Dashboard is the balance overview of a wallet.
type Dashboard struct {
	Owner       string         `json:"owner"`
	Lamports    uint64         `json:"lamports"`
	SOL         string         `json:"sol"`
	Tokens      []TokenBalance `json:"tokens"`
	RefreshedAt int64          `json:"refreshed_at"` // Unix ms
}
