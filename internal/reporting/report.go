package reporting

import (
	"time"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
)

// Report summarizes the operation log over a time window.
type Report struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at"`
	From        int64     `json:"from_ms"` // Unix ms, inclusive
	To          int64     `json:"to_ms"`   // Unix ms, inclusive
	Wallet      string    `json:"wallet,omitempty"`

	Summary Summary `json:"summary"`

	// One row per operation kind, sorted create, mint, send.
	Kinds []KindRow `json:"kinds"`

	// Failure counts, sorted by kind then error kind.
	Failures []FailureRow `json:"failures"`

	// Most recent failed operations, newest first.
	RecentFailures []*domain.OperationRecord `json:"recent_failures"`
}

// Summary contains totals across all kinds.
type Summary struct {
	Total       int     `json:"total"`
	Confirmed   int     `json:"confirmed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"` // confirmed / total, 0 when empty
	Wallets     int     `json:"wallets"`
	Mints       int     `json:"mints"`
	FirstAt     int64   `json:"first_at_ms,omitempty"`
	LastAt      int64   `json:"last_at_ms,omitempty"`
}

// KindRow aggregates one operation kind. Latencies cover confirmed
// operations only.
type KindRow struct {
	Kind          domain.OperationKind `json:"kind"`
	Total         int                  `json:"total"`
	Confirmed     int                  `json:"confirmed"`
	Failed        int                  `json:"failed"`
	SuccessRate   float64              `json:"success_rate"`
	LatencyMean   float64              `json:"latency_mean_ms"`
	LatencyMedian float64              `json:"latency_median_ms"`
	LatencyP90    float64              `json:"latency_p90_ms"`
	LatencyMax    int64                `json:"latency_max_ms"`
}

// FailureRow counts failures of one kind by classified error.
type FailureRow struct {
	Kind      domain.OperationKind `json:"kind"`
	ErrorKind string               `json:"error_kind"`
	Count     int                  `json:"count"`
}
