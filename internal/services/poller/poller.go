package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/PostiBox/internal/models"
	"github.com/BearBump/PostiBox/internal/services/shipments"
)

type Refresher interface {
	Refresh(ctx context.Context, acct shipments.Account) (*models.Snapshot, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Poller drives the poll cycles: every pollInterval (or on Trigger) it
// refreshes each configured account, serializing refreshes per cycle so a
// session is never used concurrently.
type Poller struct {
	svc      Refresher
	accounts []shipments.Account
	rl       RateLimiter

	backoff *Backoff

	pollInterval       time.Duration
	rateLimitPerMinute int64

	triggerCh chan struct{}

	// Accounts that keep failing are held back per the backoff schedule
	// instead of hammering the login flow every cycle.
	accountState map[string]*accountState

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalRefreshed      atomic.Int64
	totalSkipped        atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

type accountState struct {
	failCount   int32
	nextAttempt time.Time
}

func New(svc Refresher, accounts []shipments.Account, rl RateLimiter) *Poller {
	return &Poller{
		svc:                svc,
		accounts:           accounts,
		rl:                 rl,
		backoff:            NewBackoff(DefaultBackoffConfig()),
		pollInterval:       10 * time.Minute,
		rateLimitPerMinute: 60,
		triggerCh:          make(chan struct{}, 1),
		accountState:       make(map[string]*accountState, len(accounts)),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (p *Poller) WithSettings(pollInterval time.Duration, rlPerMin int64) *Poller {
	if pollInterval > 0 {
		p.pollInterval = pollInterval
	}
	if rlPerMin > 0 {
		p.rateLimitPerMinute = rlPerMin
	}
	return p
}

func (p *Poller) WithBackoff(cfg BackoffConfig) *Poller {
	p.backoff = NewBackoff(cfg)
	return p
}

// Trigger forces an immediate poll cycle (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	Accounts       int        `json:"accounts"`
	TotalRefreshed int64      `json:"totalRefreshed"`
	TotalSkipped   int64      `json:"totalSkipped"`
	TotalErrors    int64      `json:"totalErrors"`
	LastError      string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, p.startedAtUnixNano).UTC(),
		Accounts:       len(p.accounts),
		TotalRefreshed: p.totalRefreshed.Load(),
		TotalSkipped:   p.totalSkipped.Load(),
		TotalErrors:    p.totalErrors.Load(),
	}
	if n := p.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) Run(ctx context.Context) error {
	// First cycle right away so a fresh process has data before the first
	// tick.
	p.runOnce(ctx)

	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.runOnce(ctx)
		case <-p.triggerCh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	p.lastCycleUnixNano.Store(now.UnixNano())

	for _, acct := range p.accounts {
		if ctx.Err() != nil {
			return
		}
		st := p.stateFor(acct.Name)
		if now.Before(st.nextAttempt) {
			p.totalSkipped.Add(1)
			continue
		}
		if !p.allowRefresh(ctx, acct.Name, now) {
			p.totalSkipped.Add(1)
			continue
		}

		if _, err := p.svc.Refresh(ctx, acct); err != nil {
			st.failCount++
			st.nextAttempt = now.Add(p.backoff.Delay(st.failCount))
			p.totalErrors.Add(1)
			p.lastErrorMu.Lock()
			p.lastError = err.Error()
			p.lastErrorMu.Unlock()
			slog.Error("refresh account", "account", acct.Name, "fail_count", st.failCount, "error", err.Error())
			continue
		}
		st.failCount = 0
		st.nextAttempt = time.Time{}
		p.totalRefreshed.Add(1)
		slog.Info("account refreshed", "account", acct.Name)
	}
}

func (p *Poller) allowRefresh(ctx context.Context, account string, now time.Time) bool {
	if p.rl == nil || p.rateLimitPerMinute <= 0 {
		return true
	}
	minuteKey := fmt.Sprintf("rl:posti:%s:%s", account, now.Format("200601021504"))
	allowed, n, err := p.rl.Allow(ctx, minuteKey, p.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		// A broken limiter should not stop polling.
		slog.Warn("rate limiter unavailable", "account", account, "error", err.Error())
		return true
	}
	if !allowed {
		slog.Warn("rate limit exceeded", "account", account, "count", n)
	}
	return allowed
}

func (p *Poller) stateFor(account string) *accountState {
	st, ok := p.accountState[account]
	if !ok {
		st = &accountState{}
		p.accountState[account] = st
	}
	return st
}
