package http

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_PerKeyBuckets(t *testing.T) {
	l := NewLimiter(0.001, 2)

	assert.True(t, l.Allow("uid:a"))
	assert.True(t, l.Allow("uid:a"))
	assert.False(t, l.Allow("uid:a"))

	assert.True(t, l.Allow("uid:b"))
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0, 0)
	assert.Nil(t, l)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("uid:a"))
	}
}

func TestLimiter_SweepsIdleBuckets(t *testing.T) {
	l := NewLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < limiterSweepSize; i++ {
		l.Allow(fmt.Sprintf("uid:%d", i))
	}
	assert.Equal(t, limiterSweepSize, l.size())

	now = now.Add(limiterIdleTTL + time.Second)
	l.Allow("uid:fresh")

	assert.Equal(t, 1, l.size())
}

func TestLimiterKey(t *testing.T) {
	assert.Equal(t, "uid:u1", limiterKey("u1", "10.0.0.1"))
	assert.Equal(t, "ip:10.0.0.1", limiterKey("", "10.0.0.1"))
}
