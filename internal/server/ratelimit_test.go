package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLimiterSetLimitsPerClient(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	ls := newLimiterSet(6, 1)
	ls.now = clock.now

	assert.True(t, ls.allow("10.0.0.1"))
	assert.False(t, ls.allow("10.0.0.1"))
	assert.True(t, ls.allow("10.0.0.2"), "buckets are per client")

	clock.t = clock.t.Add(10 * time.Second)
	assert.True(t, ls.allow("10.0.0.1"), "bucket refills over time")
}

func TestLimiterSetSweepsIdleClients(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	ls := newLimiterSet(60, 10)
	ls.now = clock.now

	for i := 0; i < 100; i++ {
		ls.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 100, ls.len())

	clock.t = clock.t.Add(limiterIdleTTL + time.Second)
	ls.allow("10.0.1.1")
	assert.Equal(t, 1, ls.len(), "idle clients are swept")
}

func TestLimiterSetIsBounded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	ls := newLimiterSet(60, 10)
	ls.now = clock.now
	ls.max = 50

	for i := 0; i < 500; i++ {
		clock.t = clock.t.Add(time.Millisecond)
		ls.allow(fmt.Sprintf("spoofed-%d", i))
	}
	assert.Equal(t, 50, ls.len())

	ls.mu.Lock()
	_, newest := ls.visitors["spoofed-499"]
	_, oldest := ls.visitors["spoofed-0"]
	ls.mu.Unlock()
	assert.True(t, newest)
	assert.False(t, oldest, "the least recently seen client is evicted first")
}
