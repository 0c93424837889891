package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewKeyedLimiter(3, time.Minute)

	assert.True(t, limiter.Allow("client-a"))
	assert.True(t, limiter.Allow("client-a"))
	assert.True(t, limiter.Allow("client-a"))
	assert.False(t, limiter.Allow("client-a"), "fourth request within the window must be rejected")
}

func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	limiter := NewKeyedLimiter(1, time.Minute)

	assert.True(t, limiter.Allow("client-a"))
	assert.False(t, limiter.Allow("client-a"))
	assert.True(t, limiter.Allow("client-b"), "a saturated key must not affect other keys")
}
