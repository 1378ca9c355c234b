// Package modulation provides the low frequency oscillator and the
// multi-channel phaser used by the effects chain.
package modulation

import (
	"math"
)

// LFO is a sine low frequency oscillator
type LFO struct {
	sampleRate float64

	frequency float64 // Frequency in Hz
	phase     float64 // Current phase (0-1)
	phaseInc  float64 // Phase increment per sample
}

// NewLFO creates a 1 Hz LFO
func NewLFO(sampleRate float64) *LFO {
	lfo := &LFO{
		sampleRate: sampleRate,
		frequency:  1.0,
	}

	lfo.phaseInc = lfo.frequency / lfo.sampleRate
	return lfo
}

// SetFrequency sets the LFO frequency in Hz, clamped to [0.01, 20]
func (l *LFO) SetFrequency(hz float64) {
	l.frequency = math.Max(0.01, math.Min(20.0, hz))
	l.phaseInc = l.frequency / l.sampleRate
}

// Process generates the next LFO sample in [-1, 1]
func (l *LFO) Process() float64 {
	output := math.Sin(2.0 * math.Pi * l.phase)

	l.phase += l.phaseInc
	if l.phase >= 1.0 {
		l.phase -= 1.0
	}

	return output
}

// Reset rewinds the LFO to phase zero
func (l *LFO) Reset() {
	l.phase = 0.0
}
