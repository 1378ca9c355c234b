// Package pan provides stereo panning operations.
package pan

import (
	"math"
)

// EqualPower returns cos/sin gains for a position in [0, 1],
// where 0 is hard left and 1 is hard right.
func EqualPower(position float32) (left, right float32) {
	angle := float64(position) * math.Pi / 2.0
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

// Fold reflects an unbounded position into [0, 1] like a ball bouncing
// between the speakers: 1.2 becomes 0.8, -0.3 becomes 0.3, 2.5 becomes 0.5.
// Non-finite input returns the center.
func Fold(position float64) float64 {
	if math.IsNaN(position) || math.IsInf(position, 0) {
		return 0.5
	}
	p := math.Mod(position, 2.0)
	if p < 0 {
		p += 2.0
	}
	if p > 1.0 {
		p = 2.0 - p
	}
	return p
}
