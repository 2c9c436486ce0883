package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
)

// RecentFailureLimit caps Report.RecentFailures.
const RecentFailureLimit = 10

// ErrInvalidRange is returned when the window end precedes its start.
var ErrInvalidRange = errors.New("invalid time range")

// kindOrder fixes row order in reports.
var kindOrder = []domain.OperationKind{
	domain.OperationCreate,
	domain.OperationMint,
	domain.OperationSend,
}

// Generator produces reports from the operation log.
type Generator struct {
	operations storage.OperationLog
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(operations storage.OperationLog) *Generator {
	return &Generator{
		operations: operations,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate reports on operations with timestamps in [from, to] (Unix ms).
// A non-empty wallet restricts the report to that signer.
func (g *Generator) Generate(ctx context.Context, from, to int64, wallet string) (*Report, error) {
	if to < from {
		return nil, fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, to, from)
	}

	records, err := g.operations.GetByTimeRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load operations: %w", err)
	}
	if wallet != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.Wallet == wallet {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	return &Report{
		GeneratedAt:    g.now(),
		From:           from,
		To:             to,
		Wallet:         wallet,
		Summary:        summarize(records),
		Kinds:          kindRows(records),
		Failures:       failureRows(records),
		RecentFailures: recentFailures(records, RecentFailureLimit),
	}, nil
}

// summarize expects records ordered by timestamp ASC.
func summarize(records []*domain.OperationRecord) Summary {
	s := Summary{Total: len(records)}
	wallets := make(map[string]struct{})
	mints := make(map[string]struct{})
	for _, r := range records {
		if r.Status == domain.OperationConfirmed {
			s.Confirmed++
		} else {
			s.Failed++
		}
		wallets[r.Wallet] = struct{}{}
		if r.Mint != "" {
			mints[r.Mint] = struct{}{}
		}
	}
	s.SuccessRate = rate(s.Confirmed, s.Total)
	s.Wallets = len(wallets)
	s.Mints = len(mints)
	if len(records) > 0 {
		s.FirstAt = records[0].Timestamp
		s.LastAt = records[len(records)-1].Timestamp
	}
	return s
}

func kindRows(records []*domain.OperationRecord) []KindRow {
	byKind := make(map[domain.OperationKind][]*domain.OperationRecord)
	for _, r := range records {
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	rows := make([]KindRow, 0, len(kindOrder))
	for _, kind := range kindOrder {
		recs := byKind[kind]
		if len(recs) == 0 {
			continue
		}
		row := KindRow{Kind: kind, Total: len(recs)}
		var latencies []float64
		for _, r := range recs {
			if r.Status != domain.OperationConfirmed {
				row.Failed++
				continue
			}
			row.Confirmed++
			latencies = append(latencies, float64(r.LatencyMs))
			if r.LatencyMs > row.LatencyMax {
				row.LatencyMax = r.LatencyMs
			}
		}
		sort.Float64s(latencies)
		row.SuccessRate = rate(row.Confirmed, row.Total)
		row.LatencyMean = mean(latencies)
		row.LatencyMedian = percentile(latencies, 0.50)
		row.LatencyP90 = percentile(latencies, 0.90)
		rows = append(rows, row)
	}
	return rows
}

func failureRows(records []*domain.OperationRecord) []FailureRow {
	type key struct {
		kind      domain.OperationKind
		errorKind string
	}
	counts := make(map[key]int)
	for _, r := range records {
		if r.Status == domain.OperationConfirmed {
			continue
		}
		counts[key{r.Kind, r.ErrorKind}]++
	}

	rows := make([]FailureRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, FailureRow{Kind: k.kind, ErrorKind: k.errorKind, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Kind != rows[j].Kind {
			return kindIndex(rows[i].Kind) < kindIndex(rows[j].Kind)
		}
		return rows[i].ErrorKind < rows[j].ErrorKind
	})
	return rows
}

func kindIndex(k domain.OperationKind) int {
	for i, kind := range kindOrder {
		if kind == k {
			return i
		}
	}
	return len(kindOrder)
}

func recentFailures(records []*domain.OperationRecord, limit int) []*domain.OperationRecord {
	var out []*domain.OperationRecord
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		if records[i].Status != domain.OperationConfirmed {
			out = append(out, records[i])
		}
	}
	return out
}
