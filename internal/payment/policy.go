package payment

import (
	"math/rand"
	"sync"
)

// OutcomePolicy decides whether a simulated charge attempt is approved.
// Keeping the sampling behind an interface lets tests force either outcome.
type OutcomePolicy interface {
	Approve() bool
}

// RatePolicy approves a fixed percentage of attempts.
type RatePolicy struct {
	mu  sync.Mutex
	pct int
	rng *rand.Rand
}

// NewRatePolicy builds a policy approving pct percent of attempts. A nil
// source seeds from the global generator.
func NewRatePolicy(pct int, src rand.Source) *RatePolicy {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	var rng *rand.Rand
	if src != nil {
		rng = rand.New(src)
	}
	return &RatePolicy{pct: pct, rng: rng}
}

func (p *RatePolicy) Approve() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng != nil {
		return p.rng.Intn(100) < p.pct
	}
	return rand.Intn(100) < p.pct
}

// StaticPolicy always returns the same outcome. Test helper.
type StaticPolicy bool

func (p StaticPolicy) Approve() bool { return bool(p) }
