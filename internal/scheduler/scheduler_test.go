package scheduler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNextDelayWithinBounds(t *testing.T) {
	s := New(7000, 60000, zap.NewNop().Sugar())
	for i := 0; i < 1000; i++ {
		d := s.NextDelay()
		assert.GreaterOrEqual(t, d, uint32(7000))
		assert.LessOrEqual(t, d, uint32(60000))
	}
}

func TestNewInvalidBoundsFallBack(t *testing.T) {
	s := New(0, -5, zap.NewNop().Sugar())
	for i := 0; i < 100; i++ {
		d := s.NextDelay()
		assert.GreaterOrEqual(t, d, uint32(DefaultMinDelayMS))
		assert.LessOrEqual(t, d, uint32(DefaultMaxDelayMS))
	}
}

func TestNextDelayDegenerateRange(t *testing.T) {
	s := New(5000, 5000, zap.NewNop().Sugar())
	assert.Equal(t, uint32(5000), s.NextDelay())
}

func TestIsDue(t *testing.T) {
	assert.False(t, IsDue(0, 10000, 9999))
	assert.True(t, IsDue(0, 10000, 10000))
	assert.True(t, IsDue(0, 10000, 20000))

	// Across the counter wrap: started 4s before the boundary with a 10s
	// delay; due 6s after the wrap.
	start := uint32(math.MaxUint32 - 4000)
	assert.False(t, IsDue(start, 10000, 5000))
	assert.True(t, IsDue(start, 10000, 6001))
}
