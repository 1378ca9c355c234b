package debug

import (
	"fmt"
	"math"
)

// AudioAnalyzer summarizes audio buffers for sanity checks and logging.
type AudioAnalyzer struct {
	ClippingThreshold float32
	SilenceThreshold  float32
}

// NewAudioAnalyzer creates an analyzer with default thresholds.
func NewAudioAnalyzer() *AudioAnalyzer {
	return &AudioAnalyzer{
		ClippingThreshold: 0.99,
		SilenceThreshold:  0.0001,
	}
}

// AnalysisResult contains the results of audio buffer analysis.
// Non-finite samples are counted and excluded from the other figures.
type AnalysisResult struct {
	Peak           float32
	RMS            float32
	DC             float32
	ClippedSamples int
	Silent         bool
	NonFinite      int
	ZeroCrossings  int
}

// Analyze measures a buffer.
func (a *AudioAnalyzer) Analyze(buffer []float32) AnalysisResult {
	var result AnalysisResult
	if len(buffer) == 0 {
		return result
	}

	var sum, sumSquares float64
	var last float32
	counted := 0

	for _, sample := range buffer {
		s := float64(sample)
		if math.IsNaN(s) || math.IsInf(s, 0) {
			result.NonFinite++
			continue
		}

		abs := float32(math.Abs(s))
		if abs > result.Peak {
			result.Peak = abs
		}
		if abs >= a.ClippingThreshold {
			result.ClippedSamples++
		}

		sum += s
		sumSquares += s * s

		if counted > 0 && (last < 0) != (sample < 0) {
			result.ZeroCrossings++
		}
		last = sample
		counted++
	}

	if counted > 0 {
		result.RMS = float32(math.Sqrt(sumSquares / float64(counted)))
		result.DC = float32(sum / float64(counted))
	}
	result.Silent = result.RMS < a.SilenceThreshold
	return result
}

// CheckBuffer reports non-finite samples and samples above ceiling.
func CheckBuffer(buffer []float32, name string, ceiling float32) []string {
	var issues []string
	result := defaultAnalyzer.Analyze(buffer)

	if result.NonFinite > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d non-finite samples", name, result.NonFinite))
	}
	if result.Peak > ceiling {
		issues = append(issues, fmt.Sprintf("%s: peak %.3f exceeds %.3f", name, result.Peak, ceiling))
	}
	return issues
}

var defaultAnalyzer = NewAudioAnalyzer()

// AnalyzeBuffer analyzes a buffer with the default thresholds.
func AnalyzeBuffer(buffer []float32) AnalysisResult {
	return defaultAnalyzer.Analyze(buffer)
}

// LogBufferStats logs a one-line summary of a buffer at debug level.
func LogBufferStats(logger *Logger, buffer []float32, name string) {
	r := defaultAnalyzer.Analyze(buffer)
	logger.Debug("%s: %d samples, peak %.3f, rms %.3f, dc %.5f, clipped %d",
		name, len(buffer), r.Peak, r.RMS, r.DC, r.ClippedSamples)
	if r.NonFinite > 0 {
		logger.Warn("%s: %d non-finite samples", name, r.NonFinite)
	}
}
