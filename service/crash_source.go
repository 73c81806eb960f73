package service

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// CrashSource draws the crash point for a round. The point is drawn before
// the round starts running and never revealed until crash.
type CrashSource interface {
	Next() float64
}

// GrowthFunc maps elapsed running time to the current multiplier. It must be
// monotonically increasing with Growth(0) == 1.
type GrowthFunc func(elapsed time.Duration) float64

// ExponentialGrowth returns the standard multiplier curve e^(rate*t)
func ExponentialGrowth(rate float64) GrowthFunc {
	return func(elapsed time.Duration) float64 {
		return math.Exp(rate * elapsed.Seconds())
	}
}

type houseCrashSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	edge float64
	max  float64
}

// NewCrashSource returns the default crash distribution: (1-edge)/(1-U)
// clamped to [1, max], which pays out 1-edge of stakes in the long run.
func NewCrashSource(edge, max float64) CrashSource {
	return &houseCrashSource{
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		edge: edge,
		max:  max,
	}
}

func (s *houseCrashSource) Next() float64 {
	s.mu.Lock()
	u := s.rng.Float64()
	s.mu.Unlock()

	point := (1 - s.edge) / (1 - u)
	if point < 1 {
		point = 1
	}
	if point > s.max {
		point = s.max
	}
	// Two decimal places, matching what clients display
	return math.Floor(point*100) / 100
}
