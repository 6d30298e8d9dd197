package navigation

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	defaultLeaseTimeout    = 10 * time.Second
	leasePollInterval      = 50 * time.Millisecond
	defaultTokenBudget     = 3500
	estimatedCharsPerToken = 4
	// estimatedTokensPerFrame approximates the fixed per-image cost the
	// model charges regardless of resolution tiling.
	estimatedTokensPerFrame = 258
)

// inferenceLease serializes access to the vision model: at most one
// prompt/response cycle is in flight at a time. It also tracks an approximate
// token counter against the model's context window; once the budget is spent,
// the next acquire first resets the underlying session through the injected
// hook so continuous operation never hits the hard context limit.
type inferenceLease struct {
	mu sync.Mutex

	held      bool
	heldSince time.Time

	acquireTimeout time.Duration

	tokensUsed  int
	tokenBudget int

	// onBudgetExceeded recreates the model session with a fresh system
	// prompt. Invoked outside an acquire, never mid-cycle.
	onBudgetExceeded func(ctx context.Context) error
}

func newInferenceLease(tokenBudget int, onBudgetExceeded func(ctx context.Context) error) *inferenceLease {
	if tokenBudget <= 0 {
		tokenBudget = defaultTokenBudget
	}

	return &inferenceLease{
		acquireTimeout:   defaultLeaseTimeout,
		tokenBudget:      tokenBudget,
		onBudgetExceeded: onBudgetExceeded,
	}
}

// Acquire blocks until the lease is free, then takes it. A lease stuck past
// the acquire timeout is force-cleared so one wedged inference call can never
// deadlock the whole pipeline; the pathological overlap this allows is
// preferred over a silent stall.
func (l *inferenceLease) Acquire(ctx context.Context) error {
	deadline := time.Now().Add(l.acquireTimeout)
	for {
		l.mu.Lock()
		if !l.held {
			if l.tokensUsed >= l.tokenBudget && l.onBudgetExceeded != nil {
				hook := l.onBudgetExceeded
				l.tokensUsed = 0
				l.mu.Unlock()
				if err := hook(ctx); err != nil {
					log.Printf("Warning: failed to reset model session after token budget: %v", err)
				}
				continue
			}
			l.held = true
			l.heldSince = time.Now()
			l.mu.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			heldFor := time.Since(l.heldSince)
			l.held = true
			l.heldSince = time.Now()
			l.mu.Unlock()
			log.Printf("Warning: force-clearing inference lease held for %s", heldFor)
			logger.WarnContext(ctx, "force-cleared stuck inference lease", "held_for", heldFor.String())
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leasePollInterval):
		}
	}
}

// Release frees the lease. Releasing an already free lease is a no-op. There
// is no holder identity: after a force-clear, the stuck holder's late Release
// does free the new holder's lease, extending the same bounded overlap the
// force-clear already accepted.
func (l *inferenceLease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
}

// RecordUsage adds provider-reported token usage to the budget counter.
func (l *inferenceLease) RecordUsage(tokens int) {
	if tokens <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokensUsed += tokens
}

// RecordEstimated approximates usage from text length and frame count, for
// cycles where the provider does not report usage.
func (l *inferenceLease) RecordEstimated(text string, frames int) {
	l.RecordUsage(len(text)/estimatedCharsPerToken + frames*estimatedTokensPerFrame)
}

// Reset clears the budget counter and frees the lease; called on navigation
// stop.
func (l *inferenceLease) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.tokensUsed = 0
}

func (l *inferenceLease) tokensSpent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokensUsed
}
