// Package granular implements the real-time granular engine: a rolling
// input history, a fixed pool of grains spawned on a tempo-synced clock,
// the dry/wet mixer and the modulated effects chain.
package granular

import (
	"math"

	"github.com/justyntemme/crystal/pkg/dsp"
	"github.com/justyntemme/crystal/pkg/dsp/buffer"
	"github.com/justyntemme/crystal/pkg/dsp/filter"
	"github.com/justyntemme/crystal/pkg/dsp/pan"
)

// GrainState is the lifecycle state of a pool slot.
type GrainState uint8

const (
	// GrainFree slots may be taken by the scheduler.
	GrainFree GrainState = iota
	// GrainWaiting slots count down a start delay in silence.
	GrainWaiting
	// GrainActive slots render audio.
	GrainActive
)

// String returns the state name.
func (s GrainState) String() string {
	switch s {
	case GrainFree:
		return "free"
	case GrainWaiting:
		return "waiting"
	case GrainActive:
		return "active"
	default:
		return "unknown"
	}
}

const (
	// minLoopSamples is the shortest loop that is played as a loop.
	minLoopSamples = 512
	// loopCrossfade is the cross-fade length at the end of each loop cycle.
	loopCrossfade = 256
)

// Grain is one short playback voice reading from the history buffer.
// Grains live by value in the pool and are reused.
type Grain struct {
	State GrainState

	startSample   int // history index the grain reads from
	currentSample int
	duration      int
	pitchRatio    float64
	amplitude     float32
	reversed      bool

	attackSamples int
	decaySamples  int

	looping      bool
	loopDuration int

	delaySamples int

	panStart float64
	panDrift float64 // position change per sample

	filterActive bool
	filterStart  float64
	filterEnd    float64
	filterRes    float64
	filterState  filter.SVFState
}

// Position returns how many samples the grain has rendered.
func (g *Grain) Position() int {
	return g.currentSample
}

// Duration returns the grain length in samples.
func (g *Grain) Duration() int {
	return g.duration
}

// start makes a Waiting grain Active.
func (g *Grain) start() {
	g.State = GrainActive
	g.currentSample = 0
	g.filterState.Reset()
}

// render adds one sample of the grain into out at index i and advances it.
// It reports whether the grain finished on this sample.
func (g *Grain) render(h *buffer.History, out [][]float32, i int, sampleRate float64) bool {
	switch g.State {
	case GrainWaiting:
		g.delaySamples--
		if g.delaySamples <= 0 {
			g.start()
		}
		return false
	case GrainActive:
	default:
		return false
	}

	mono := g.source(h)

	progress := float64(g.currentSample) / float64(g.duration)

	if g.filterActive {
		cutoff := g.filterStart + (g.filterEnd-g.filterStart)*progress
		c := filter.NewSVFCoefficients(sampleRate, cutoff, g.filterRes)
		mono = g.filterState.Lowpass(mono, c)
	}

	window := float32(0.5 * (1 - math.Cos(dsp.TwoPi*progress)))
	gain := window * g.envelope() * g.amplitude

	left, right := pan.EqualPower(float32(pan.Fold(g.panStart + g.panDrift*float64(g.currentSample))))
	for ch := range out {
		channelGain := float32(1)
		switch ch {
		case 0:
			channelGain = left
		case 1:
			channelGain = right
		}
		out[ch][i] += mono * gain * channelGain
	}

	g.currentSample++
	if g.currentSample >= g.duration {
		g.State = GrainFree
		return true
	}
	return false
}

// source reads the mono history sample for the current position, looping
// with a cross-fade or playing straight through, forwards or reversed.
func (g *Grain) source(h *buffer.History) float32 {
	phase := float64(g.currentSample) * g.pitchRatio

	if g.looping && g.loopDuration > minLoopSamples {
		loopLen := float64(g.loopDuration)
		loopPos := math.Mod(phase, loopLen)
		mono := h.ReadMono(h.Wrap(g.startSample + int(loopPos)))

		if fadeStart := loopLen - loopCrossfade; loopPos > fadeStart {
			// Blend toward the same point one loop earlier
			x := float32((loopPos - fadeStart) / loopCrossfade)
			earlier := h.ReadMono(h.Wrap(g.startSample + int(loopPos-loopLen)))
			mono = mono*(1-x) + earlier*x
		}
		return mono
	}

	offset := phase
	if g.reversed {
		offset = float64(g.duration) - phase
	}
	return h.ReadMono(h.Wrap(g.startSample + int(offset)))
}

// envelope returns the linear attack or decay ramp gain.
func (g *Grain) envelope() float32 {
	switch {
	case g.attackSamples > 0 && g.currentSample < g.attackSamples:
		return float32(g.currentSample) / float32(g.attackSamples)
	case g.decaySamples > 0 && g.currentSample > g.duration-g.decaySamples:
		return float32(g.duration-g.currentSample) / float32(g.decaySamples)
	}
	return 1
}
