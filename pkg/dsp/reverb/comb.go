// Package reverb provides the Freeverb algorithm and its building blocks
package reverb

import (
	"math"
)

// CombFilter implements a feedback comb filter for reverb
type CombFilter struct {
	buffer      []float32
	bufferSize  int
	bufferIdx   int
	feedback    float64
	filterstore float32
	damp1       float64
	damp2       float64
}

// NewCombFilter creates a new comb filter with the given delay in samples
func NewCombFilter(delaySamples int) *CombFilter {
	return &CombFilter{
		buffer:     make([]float32, delaySamples),
		bufferSize: delaySamples,
		bufferIdx:  0,
		feedback:   0.5,
		damp1:      0.5,
		damp2:      0.5,
	}
}

// SetFeedback sets the feedback amount (0-1)
func (c *CombFilter) SetFeedback(feedback float64) {
	c.feedback = math.Max(0.0, math.Min(1.0, feedback))
}

// SetDamping sets the damping amount (0-1)
func (c *CombFilter) SetDamping(damping float64) {
	c.damp1 = damping
	c.damp2 = 1.0 - damping
}

// Process processes a single sample through the comb filter
func (c *CombFilter) Process(input float32) float32 {
	output := c.buffer[c.bufferIdx]

	// Apply damping (simple lowpass filter)
	c.filterstore = float32(float64(output)*c.damp2 + float64(c.filterstore)*c.damp1)

	// Write to buffer with feedback
	c.buffer[c.bufferIdx] = input + float32(c.feedback)*c.filterstore

	// Advance buffer index
	c.bufferIdx++
	if c.bufferIdx >= c.bufferSize {
		c.bufferIdx = 0
	}

	return output
}

// Reset clears the comb filter state
func (c *CombFilter) Reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.bufferIdx = 0
	c.filterstore = 0
}

// AllPassFilter implements an all-pass filter for reverb diffusion
type AllPassFilter struct {
	buffer     []float32
	bufferSize int
	bufferIdx  int
	feedback   float64
}

// NewAllPassFilter creates a new all-pass filter with the given delay in samples
func NewAllPassFilter(delaySamples int) *AllPassFilter {
	return &AllPassFilter{
		buffer:     make([]float32, delaySamples),
		bufferSize: delaySamples,
		bufferIdx:  0,
		feedback:   0.5,
	}
}

// SetFeedback sets the feedback amount (typically around 0.5)
func (a *AllPassFilter) SetFeedback(feedback float64) {
	a.feedback = feedback
}

// Process processes a single sample through the all-pass filter
func (a *AllPassFilter) Process(input float32) float32 {
	bufout := a.buffer[a.bufferIdx]

	// All-pass filter equation: y[n] = -x[n] + x[n-D] + C * y[n-D]
	// where C is the feedback coefficient
	output := -input + bufout
	a.buffer[a.bufferIdx] = input + float32(a.feedback)*bufout

	// Advance buffer index
	a.bufferIdx++
	if a.bufferIdx >= a.bufferSize {
		a.bufferIdx = 0
	}

	return output
}

// Reset clears the all-pass filter state
func (a *AllPassFilter) Reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.bufferIdx = 0
}
