// Package dsp provides digital signal processing utilities for audio
package dsp

import "math"

// Buffer utilities for common audio operations

// Clear zeroes a buffer - no allocations
func Clear(buffer []float32) {
	for i := range buffer {
		buffer[i] = 0
	}
}

// ClearAll zeroes every channel of a multi-channel buffer - no allocations
func ClearAll(buffers [][]float32) {
	for _, b := range buffers {
		Clear(b)
	}
}

// Peak finds the maximum absolute value in a buffer
func Peak(buffer []float32) float32 {
	peak := float32(0)
	for _, sample := range buffer {
		abs := float32(math.Abs(float64(sample)))
		if abs > peak {
			peak = abs
		}
	}
	return peak
}

// PeakAll finds the maximum absolute value across channels
func PeakAll(buffers [][]float32) float32 {
	peak := float32(0)
	for _, b := range buffers {
		if p := Peak(b); p > peak {
			peak = p
		}
	}
	return peak
}

// Saturate applies exponential soft saturation above unity.
// Samples inside [-1, 1] pass through unchanged; beyond that the curve
// 1 - e^-|x| keeps the output continuous and bounded by 1.
func Saturate(sample float32) float32 {
	if sample > 1.0 {
		return 1.0 - float32(math.Exp(-float64(sample)))
	}
	if sample < -1.0 {
		return -1.0 + float32(math.Exp(float64(sample)))
	}
	return sample
}

// SaturateBuffer applies Saturate to a buffer in place - no allocations
func SaturateBuffer(buffer []float32) {
	for i := range buffer {
		buffer[i] = Saturate(buffer[i])
	}
}

// Deinterleave splits interleaved frames into per-channel buffers.
// Returns the number of frames written.
func Deinterleave(dst [][]float32, src []float32) int {
	channels := len(dst)
	if channels == 0 {
		return 0
	}
	frames := len(src) / channels
	for ch := range dst {
		if len(dst[ch]) < frames {
			frames = len(dst[ch])
		}
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			dst[ch][i] = src[i*channels+ch]
		}
	}
	return frames
}

// Interleave merges per-channel buffers into interleaved frames.
// Returns the number of frames written.
func Interleave(dst []float32, src [][]float32) int {
	channels := len(src)
	if channels == 0 {
		return 0
	}
	frames := len(dst) / channels
	for ch := range src {
		if len(src[ch]) < frames {
			frames = len(src[ch])
		}
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			dst[i*channels+ch] = src[ch][i]
		}
	}
	return frames
}
