package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxClients = 10000
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per client address. Buckets idle for
// longer than idleTTL are swept, and the set never holds more than max entries.
type limiterSet struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	max       int
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(rpm, burst int) *limiterSet {
	return &limiterSet{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(rpm) / 60.0),
		burst:    burst,
		idleTTL:  limiterIdleTTL,
		max:      limiterMaxClients,
		now:      time.Now,
	}
}

func (ls *limiterSet) allow(addr string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := ls.now()
	if now.Sub(ls.lastSweep) >= ls.idleTTL {
		ls.sweepLocked(now)
	}

	v, ok := ls.visitors[addr]
	if !ok {
		if len(ls.visitors) >= ls.max {
			ls.evictOldestLocked()
		}
		v = &visitor{limiter: rate.NewLimiter(ls.limit, ls.burst)}
		ls.visitors[addr] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (ls *limiterSet) sweepLocked(now time.Time) {
	for addr, v := range ls.visitors {
		if now.Sub(v.lastSeen) > ls.idleTTL {
			delete(ls.visitors, addr)
		}
	}
	ls.lastSweep = now
}

func (ls *limiterSet) evictOldestLocked() {
	var (
		oldest string
		seen   time.Time
	)
	for addr, v := range ls.visitors {
		if oldest == "" || v.lastSeen.Before(seen) {
			oldest, seen = addr, v.lastSeen
		}
	}
	delete(ls.visitors, oldest)
}

func (ls *limiterSet) len() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.visitors)
}
