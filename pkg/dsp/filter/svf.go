package filter

import (
	"math"

	"github.com/justyntemme/crystal/pkg/dsp"
)

// SVFCoefficients holds the pre-warped frequency term and damping of a
// zero-delay feedback state variable filter. Computing them is the expensive
// part of the filter, so callers that sweep the cutoff recompute them per
// sample while the state lives elsewhere.
type SVFCoefficients struct {
	g  float32 // frequency coefficient
	a1 float32
	a2 float32
	a3 float32
}

// NewSVFCoefficients calculates coefficients for the given cutoff and
// resonance. The cutoff is clamped to the audible range and below Nyquist.
func NewSVFCoefficients(sampleRate, frequency, q float64) SVFCoefficients {
	frequency = dsp.ClampFrequency(frequency, sampleRate)
	if q < 0.01 {
		q = 0.01
	}

	// Pre-warp the frequency for the bilinear transform
	g := float32(math.Tan(math.Pi * frequency / sampleRate))
	k := float32(1.0 / q) // damping
	a1 := 1.0 / (1.0 + g*(g+k))
	a2 := g * a1
	return SVFCoefficients{g: g, a1: a1, a2: a2, a3: g * a2}
}

// SVFState holds the two trapezoidal integrator registers of a single
// channel. It is a plain value so it can live inside pooled structs.
type SVFState struct {
	ic1eq float32 // integrator 1 state
	ic2eq float32 // integrator 2 state
}

// Reset clears the integrators
func (s *SVFState) Reset() {
	s.ic1eq = 0
	s.ic2eq = 0
}

// Lowpass runs one sample and returns the lowpass output
func (s *SVFState) Lowpass(input float32, c SVFCoefficients) float32 {
	v3 := input - s.ic2eq
	v1 := c.a1*s.ic1eq + c.a2*v3
	v2 := s.ic2eq + c.a2*s.ic1eq + c.a3*v3

	s.ic1eq = 2.0*v1 - s.ic1eq
	s.ic2eq = 2.0*v2 - s.ic2eq
	return v2
}
