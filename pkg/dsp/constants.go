// Package dsp provides digital signal processing utilities and algorithms.
package dsp

// Common audio constants used throughout the DSP packages and the engine.
const (
	// Frequency ranges
	MinFrequency = 20.0    // 20 Hz
	MaxFrequency = 20000.0 // 20 kHz

	// NyquistGuard keeps filter cutoffs strictly below Nyquist
	NyquistGuard = 0.49

	// Q factor
	DefaultQ = 0.707 // Butterworth response

	// Channel counts
	Mono   = 1
	Stereo = 2

	// Common sample rates
	SampleRate44k1 = 44100.0
	SampleRate48k  = 48000.0

	// Buffer sizes
	MinBufferSize     = 32
	DefaultBufferSize = 512
	MaxBufferSize     = 8192

	// Smoothing time used by every smoothed engine parameter (100ms)
	ParameterSmoothing = 0.1

	// Phase constants
	TwoPi  = 6.283185307179586
	Pi     = 3.141592653589793
	HalfPi = 1.5707963267948966

	// Small values for comparisons
	Epsilon = 1e-6
)

// ClampFrequency limits a cutoff to the audible range and below Nyquist.
func ClampFrequency(freq, sampleRate float64) float64 {
	if freq < MinFrequency {
		freq = MinFrequency
	}
	if freq > MaxFrequency {
		freq = MaxFrequency
	}
	if limit := sampleRate * NyquistGuard; sampleRate > 0 && freq > limit {
		freq = limit
	}
	return freq
}
