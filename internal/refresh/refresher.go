// Package refresh re-fetches the connected wallet's dashboard on a fixed
// interval and caches the latest snapshot.
package refresh

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/observability"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

// DefaultInterval is the dashboard refresh period.
const DefaultInterval = 30 * time.Second

// Fetcher loads a dashboard. Implemented by *tokenops.Service.
type Fetcher interface {
	Dashboard(ctx context.Context, owner string) (*domain.Dashboard, error)
}

// Options configures a Refresher.
type Options struct {
	Fetcher  Fetcher
	Interval time.Duration // default: DefaultInterval
	Timeout  time.Duration // per refresh, default: Interval
	Logger   *log.Logger
	Now      func() time.Time
}

// Refresher runs at most one dashboard fetch at a time for the current owner.
type Refresher struct {
	fetcher  Fetcher
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time

	// lifecycle serializes Start and Stop so only one loop ever runs.
	lifecycle sync.Mutex

	mu       sync.Mutex
	owner    string
	cancel   context.CancelFunc
	done     chan struct{}
	running  bool
	snapshot *domain.Dashboard
	lastErr  error
	lastRun  time.Time
	runs     int
	skipped  int
}

// New creates a stopped Refresher.
func New(opts Options) *Refresher {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = interval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Refresher{
		fetcher:  opts.Fetcher,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		now:      now,
	}
}

// Attach starts the refresher when session connects and stops it when
// session disconnects.
func (r *Refresher) Attach(session *wallet.Session) {
	session.OnConnect(func(s wallet.Signer) { r.Start(s.PublicKey()) })
	session.OnDisconnect(func(string) { r.Stop() })
}

// Start refreshes owner immediately and then every interval. A running
// loop for another owner is stopped first.
func (r *Refresher) Start(owner string) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	r.owner = owner
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.logger.Printf("Starting dashboard refresh for %s (interval: %v)", owner, r.interval)
	go r.loop(ctx, owner, done)
}

// Stop ends the loop and drops the cached snapshot. It waits for an
// in-flight refresh to return.
func (r *Refresher) Stop() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.stop()
}

func (r *Refresher) stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.owner = ""
	r.snapshot = nil
	r.lastErr = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Println("Dashboard refresh stopped")
}

func (r *Refresher) loop(ctx context.Context, owner string, done chan struct{}) {
	defer close(done)

	r.refresh(ctx, owner)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx, owner)
		}
	}
}

// Refresh fetches the dashboard of the current owner now. It returns false
// when no owner is set or a refresh is already running.
func (r *Refresher) Refresh(ctx context.Context) bool {
	r.mu.Lock()
	owner := r.owner
	r.mu.Unlock()
	if owner == "" {
		return false
	}
	return r.refresh(ctx, owner)
}

func (r *Refresher) refresh(ctx context.Context, owner string) bool {
	r.mu.Lock()
	if r.running {
		r.skipped++
		r.mu.Unlock()
		r.logger.Println("Refresh already running, skipping...")
		observability.RecordRefreshSkipped()
		return false
	}
	r.running = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	d, err := r.fetcher.Dashboard(ctx, owner)
	now := r.now()

	r.mu.Lock()
	r.running = false
	r.lastRun = now
	r.runs++
	// Results for an owner that has since been replaced are dropped.
	if r.owner == owner {
		r.lastErr = err
		if err == nil {
			r.snapshot = d
		}
	}
	r.mu.Unlock()

	if err != nil {
		observability.RecordRefresh(err, 0, 0)
		if ctx.Err() == nil {
			r.logger.Printf("Refresh error for %s: %v", owner, err)
		}
		return true
	}
	observability.RecordRefresh(nil, len(d.Tokens), now.Unix())
	return true
}

// Snapshot returns the latest dashboard of owner, if one is cached.
func (r *Refresher) Snapshot(owner string) (*domain.Dashboard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil || r.snapshot.Owner != owner {
		return nil, false
	}
	cp := *r.snapshot
	cp.Tokens = append([]domain.TokenBalance(nil), r.snapshot.Tokens...)
	return &cp, true
}

// Store replaces the cached snapshot when d belongs to the current owner.
func (r *Refresher) Store(d *domain.Dashboard) {
	if d == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Owner == r.owner {
		r.snapshot = d
		r.lastErr = nil
	}
}

// Status is the refresher state reported by /status.
type Status struct {
	Owner     string    `json:"owner,omitempty"`
	Active    bool      `json:"active"`
	Running   bool      `json:"running"`
	Interval  string    `json:"interval"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Skipped   int       `json:"skipped"`
}

// Status returns the current refresher state.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		Owner:    r.owner,
		Active:   r.cancel != nil,
		Running:  r.running,
		Interval: r.interval.String(),
		LastRun:  r.lastRun,
		Runs:     r.runs,
		Skipped:  r.skipped,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}
