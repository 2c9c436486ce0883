package domain

// OperationKind identifies which form submitted a transaction.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationMint   OperationKind = "mint"
	OperationSend   OperationKind = "send"
)

// String returns the string representation of OperationKind.
func (k OperationKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k OperationKind) IsValid() bool {
	return k == OperationCreate || k == OperationMint || k == OperationSend
}

// OperationStatus is the final status of a submitted operation.
type OperationStatus string

const (
	OperationConfirmed OperationStatus = "confirmed"
	OperationFailed    OperationStatus = "failed"
)

// OperationRecord is an append-only log entry for one submitted operation.
// Corresponds to the operations table.
type OperationRecord struct {
	OperationID  string          `json:"operation_id"` // PK, hash of kind|wallet|mint|signature|nonce|timestamp
	Kind         OperationKind   `json:"kind"`         // create | mint | send
	Wallet       string          `json:"wallet"`       // signing wallet
	Mint         string          `json:"mint"`         // token mint
	Counterparty string          `json:"counterparty"` // recipient wallet for send, empty otherwise
	RawAmount    string          `json:"raw_amount"`   // raw amount, base 10
	Signature    string          `json:"signature"`    // ledger signature (empty if submission failed)
	Status       OperationStatus `json:"status"`       // confirmed | failed
	ErrorKind    string          `json:"error_kind"`   // classified error kind, empty on success
	LatencyMs    int64           `json:"latency_ms"`   // submit to confirmation
	Timestamp    int64           `json:"timestamp_ms"` // Unix ms
}
