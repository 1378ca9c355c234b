package analysis

import (
	"math"
	"sync/atomic"
)

// DefaultLevelCoefficient weights the previous level against a new block peak.
const DefaultLevelCoefficient = 0.9

// SilenceDB is reported for a level of exactly zero.
const SilenceDB = -120.0

// LevelFollower is a one-pole follower of block peak magnitudes:
// level = level*0.9 + peak*0.1. The zero value is ready to use.
// Update must only be called from one goroutine.
type LevelFollower struct {
	bits atomic.Uint32
}

// Update folds a new block peak into the level and returns the new level.
func (l *LevelFollower) Update(peak float32) float32 {
	if peak < 0 {
		peak = -peak
	}
	level := l.Level()*DefaultLevelCoefficient + peak*(1-DefaultLevelCoefficient)
	l.bits.Store(math.Float32bits(level))
	return level
}

// Level returns the current smoothed level (linear)
func (l *LevelFollower) Level() float32 {
	return math.Float32frombits(l.bits.Load())
}

// LevelDB returns the current smoothed level in decibels
func (l *LevelFollower) LevelDB() float64 {
	level := l.Level()
	if level <= 0 {
		return SilenceDB
	}
	return math.Max(SilenceDB, 20.0*math.Log10(float64(level)))
}

// Reset sets the level back to zero
func (l *LevelFollower) Reset() {
	l.bits.Store(0)
}
