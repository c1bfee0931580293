package risk

import (
	"context"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/time/rate"
)

// Throttler is a leaky-bucket gate over one command stream (submit or
// modify). The ulule limiter decides allow/deny per key (the risk
// engine passes the instrument's venue); the composed rate.Limiter,
// shared by every key, exposes a continuous 0..1 "how full is the
// bucket" fraction that a pure allow/deny gate cannot report on its own.
type Throttler struct {
	name    string
	gate    *limiter.Limiter
	budget  *rate.Limiter
	perSec  float64
	burst   int
}

// NewThrottler builds a throttler allowing ratePerSec sustained
// commands/sec with the given burst capacity.
func NewThrottler(name string, ratePerSec float64, burst int) *Throttler {
	store := memory.NewStore()
	gate := limiter.New(store, limiter.Rate{Period: time.Second, Limit: int64(ratePerSec * float64(burst))})
	return &Throttler{
		name:   name,
		gate:   gate,
		budget: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		perSec: ratePerSec,
		burst:  burst,
	}
}

// Allow reports whether the next command may proceed, consuming budget
// from both the gate and the fractional-budget limiter together.
func (t *Throttler) Allow(ctx context.Context, key string) bool {
	lctx, err := t.gate.Get(ctx, key)
	if err != nil {
		return false
	}
	if lctx.Reached {
		return false
	}
	return t.budget.Allow()
}

// Used returns the fraction of the token budget currently consumed;
// 1.0 means fully throttled, 0.0 means an empty (unused) bucket.
func (t *Throttler) Used() float64 {
	available := t.budget.Tokens()
	if available >= float64(t.burst) {
		return 0
	}
	if available <= 0 {
		return 1
	}
	return 1 - available/float64(t.burst)
}
