package domain

// RegisteredToken is a token created through this application. The ledger
// does not store name and symbol for plain SPL mints, so the create form
// records them locally.
// Corresponds to the token_registry table.
type RegisteredToken struct {
	Mint      string // PK
	Name      string
	Symbol    string
	Decimals  uint8
	Creator   string // wallet that created the mint
	Signature string // creation transaction
	CreatedAt int64  // Unix ms
}
