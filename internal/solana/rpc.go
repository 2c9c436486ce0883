package solana

import "context"

// Commitment levels used by this application.
const (
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// RPCClient defines the Solana JSON-RPC methods the token forms depend on.
type RPCClient interface {
	// GetBalance returns the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetTokenAccountsByOwner returns all token-program accounts owned by owner.
	GetTokenAccountsByOwner(ctx context.Context, owner string) ([]ParsedTokenAccount, error)

	// GetAccountInfo returns raw account info. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetLatestBlockhash returns a recent blockhash for transaction construction.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt lamports for size bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)

	// SendTransaction submits a signed, serialized transaction and returns its signature.
	SendTransaction(ctx context.Context, rawTx []byte) (string, error)

	// GetSignatureStatuses returns the status of each signature (nil entries are unknown).
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// ParsedTokenAccount is one entry of getTokenAccountsByOwner with jsonParsed encoding.
type ParsedTokenAccount struct {
	Pubkey   string
	Mint     string
	Owner    string
	Amount   string // raw amount, base 10
	Decimals uint8
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64 // nil once rooted
	Err                interface{}
	ConfirmationStatus string // processed | confirmed | finalized
}

// Reached reports whether the status satisfies the given commitment.
func (s *SignatureStatus) Reached(commitment string) bool {
	if s == nil {
		return false
	}
	switch commitment {
	case CommitmentFinalized:
		return s.ConfirmationStatus == CommitmentFinalized
	default:
		return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
	}
}
