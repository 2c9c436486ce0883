package domain

// TxStatus is the outcome of a ledger transaction.
type TxStatus string

const (
	TxStatusSuccess TxStatus = "success"
	TxStatusError   TxStatus = "error"
)

// String returns the string representation of TxStatus.
func (s TxStatus) String() string {
	return string(s)
}

// TransactionRecord is one entry of a wallet's signature history.
type TransactionRecord struct {
	Signature   string   `json:"signature"`
	Slot        int64    `json:"slot"`
	BlockTime   *int64   `json:"block_time,omitempty"` // Unix seconds, nil when unknown
	Status      TxStatus `json:"status"`
	ExplorerURL string   `json:"explorer_url"`
}

// HistoryPage is one page of signature history.
type HistoryPage struct {
	Transactions []TransactionRecord `json:"transactions"`
	HasMore      bool                `json:"has_more"`
	// Next is the cursor for the following page (the last signature).
	Next string `json:"next,omitempty"`
}
