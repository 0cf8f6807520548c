package ipcrouter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	rl := NewRateLimiter(nil, nil)
	defer rl.Stop()
	rl.SetRule("op", RateRule{Limit: 2, Interval: 200 * time.Millisecond})

	assert.True(t, rl.Check("k1", "op"))
	assert.True(t, rl.Check("k1", "op"))
	assert.False(t, rl.Check("k1", "op"))

	time.Sleep(250 * time.Millisecond)
	assert.True(t, rl.Check("k1", "op"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(nil, nil)
	defer rl.Stop()
	rl.SetRule("op", RateRule{Limit: 1, Interval: time.Second})

	assert.True(t, rl.Check("a", "op"))
	assert.True(t, rl.Check("b", "op"))
	assert.False(t, rl.Check("a", "op"))
}

func TestRateLimiterNoRuleAlwaysAllows(t *testing.T) {
	rl := NewRateLimiter(nil, nil)
	defer rl.Stop()
	for i := 0; i < 10; i++ {
		require.True(t, rl.Check("k", "unconfigured"))
	}
}

func TestRateLimiterDefaultRuleAppliesToAllKeys(t *testing.T) {
	def := RateRule{Limit: 1, Interval: time.Second}
	rl := NewRateLimiter(&def, nil)
	defer rl.Stop()

	assert.True(t, rl.Check("k", "anything"))
	assert.False(t, rl.Check("k", "anything"))
}
