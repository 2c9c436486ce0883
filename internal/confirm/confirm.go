// Package confirm waits for submitted transactions to reach a commitment level.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sreeramp-official/solana-token-app/internal/observability"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
)

var (
	// ErrTimeout is returned when the commitment is not reached in time.
	ErrTimeout = errors.New("confirmation timeout")

	// ErrTransactionFailed is returned when the ledger executed the
	// transaction and recorded an error.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Defaults.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Confirmer blocks until a signature reaches the configured commitment.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) error
}

// PollerOptions configures Poller.
type PollerOptions struct {
	Commitment   string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Poller confirms by polling getSignatureStatuses.
type Poller struct {
	rpc  solana.RPCClient
	opts PollerOptions
}

// NewPoller creates a polling confirmer.
func NewPoller(rpc solana.RPCClient, opts PollerOptions) *Poller {
	if opts.Commitment == "" {
		opts.Commitment = solana.CommitmentConfirmed
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Poller{rpc: rpc, opts: opts}
}

// Confirm implements Confirmer.
func (p *Poller) Confirm(ctx context.Context, signature string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := p.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			if ctx.Err() != nil {
				return p.expired(ctx, signature)
			}
			return fmt.Errorf("get signature status: %w", err)
		}

		if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, st.Err)
			}
			if st.Reached(p.opts.Commitment) {
				observability.RecordConfirmLatency("poll", time.Since(start).Seconds())
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return p.expired(ctx, signature)
		case <-ticker.C:
		}
	}
}

func (p *Poller) expired(ctx context.Context, signature string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s not %s after %s", ErrTimeout, signature, p.opts.Commitment, p.opts.Timeout)
	}
	return ctx.Err()
}

// WSConfirmer confirms through signatureSubscribe and falls back to the
// poller when the subscription cannot be made or is dropped.
type WSConfirmer struct {
	ws       solana.WSClient
	fallback *Poller
	opts     PollerOptions
	logger   *log.Logger
}

// NewWSConfirmer creates a subscription based confirmer.
func NewWSConfirmer(ws solana.WSClient, fallback *Poller, logger *log.Logger) *WSConfirmer {
	if logger == nil {
		logger = log.New(os.Stdout, "[confirm] ", log.LstdFlags)
	}
	return &WSConfirmer{
		ws:       ws,
		fallback: fallback,
		opts:     fallback.opts,
		logger:   logger,
	}
}

// Confirm implements Confirmer.
func (c *WSConfirmer) Confirm(ctx context.Context, signature string) error {
	start := time.Now()
	subCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	ch, err := c.ws.SubscribeSignature(subCtx, signature, c.opts.Commitment)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("subscribe %s failed, polling: %v", solana.ShortAddress(signature), err)
		return c.fallback.Confirm(ctx, signature)
	}

	select {
	case n, ok := <-ch:
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if subCtx.Err() != nil {
				return fmt.Errorf("%w: %s not %s after %s", ErrTimeout, signature, c.opts.Commitment, c.opts.Timeout)
			}
			c.logger.Printf("subscription for %s dropped, polling", solana.ShortAddress(signature))
			return c.fallback.Confirm(ctx, signature)
		}
		if n.Err != nil {
			return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, n.Err)
		}
		observability.RecordConfirmLatency("ws", time.Since(start).Seconds())
		return nil
	case <-subCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s not %s after %s", ErrTimeout, signature, c.opts.Commitment, c.opts.Timeout)
	}
}

// Compile-time interface checks
var (
	_ Confirmer = (*Poller)(nil)
	_ Confirmer = (*WSConfirmer)(nil)
)
