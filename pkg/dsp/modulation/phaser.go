package modulation

import (
	"math"
)

// phaserStages is the all-pass cascade length per channel.
const phaserStages = 4

// AllPassFilter implements a first-order all-pass filter for phaser stages
type AllPassFilter struct {
	a1    float32 // Coefficient
	state float32 // Filter state
}

// Process processes a sample through the all-pass filter
func (f *AllPassFilter) Process(input float32) float32 {
	// y[n] = a1*x[n] + s; s = x[n] - a1*y[n]
	output := f.a1*input + f.state
	f.state = input - f.a1*output
	return output
}

// Reset resets the filter state
func (f *AllPassFilter) Reset() {
	f.state = 0
}

// allPassCoefficient uses the bilinear transform:
// a1 = (1 - tan(pi*fc/fs)) / (1 + tan(pi*fc/fs))
func allPassCoefficient(freq, sampleRate float64) float32 {
	tanFreq := math.Tan(math.Pi * freq / sampleRate)
	return float32((1.0 - tanFreq) / (1.0 + tanFreq))
}

// Phaser is a multi-channel phaser. Every channel has its own all-pass
// cascade and feedback path; one LFO sweeps all of them together.
type Phaser struct {
	sampleRate float64
	channels   int

	rate       float64 // LFO rate in Hz
	depth      float64 // Modulation depth (0-1)
	centerFreq float64 // Center frequency for modulation
	feedback   float64 // Feedback amount (-0.99 to 0.99)
	mix        float64 // Wet/dry mix (0-1)

	filters   [][phaserStages]AllPassFilter
	feedback1 []float32

	lfo *LFO

	minFreq float64
	maxFreq float64
}

// NewPhaser creates a new phaser effect for the given number of channels
func NewPhaser(sampleRate float64, channels int) *Phaser {
	if channels < 1 {
		channels = 1
	}
	p := &Phaser{
		sampleRate: sampleRate,
		channels:   channels,
		rate:       0.5,
		depth:      0.5,
		centerFreq: 1000.0,
		feedback:   0.5,
		mix:        0.5,
		filters:    make([][phaserStages]AllPassFilter, channels),
		feedback1:  make([]float32, channels),
	}

	p.lfo = NewLFO(sampleRate)
	p.lfo.SetFrequency(p.rate)
	p.updateFrequencyRange()

	return p
}

// SetRate sets the LFO rate in Hz
func (p *Phaser) SetRate(hz float64) {
	p.rate = math.Max(0.01, math.Min(10.0, hz))
	p.lfo.SetFrequency(p.rate)
}

// SetDepth sets the modulation depth (0-1)
func (p *Phaser) SetDepth(depth float64) {
	p.depth = math.Max(0.0, math.Min(1.0, depth))
	p.updateFrequencyRange()
}

// SetCenterFrequency sets the center frequency for modulation
func (p *Phaser) SetCenterFrequency(freq float64) {
	p.centerFreq = math.Max(100.0, math.Min(4000.0, freq))
	p.updateFrequencyRange()
}

// SetFeedback sets the feedback amount, limited to +-0.99
func (p *Phaser) SetFeedback(feedback float64) {
	p.feedback = math.Max(-0.99, math.Min(0.99, feedback))
}

// SetMix sets the wet/dry mix (0=dry, 1=wet)
func (p *Phaser) SetMix(mix float64) {
	p.mix = math.Max(0.0, math.Min(1.0, mix))
}

// updateFrequencyRange derives the sweep range from center and depth
func (p *Phaser) updateFrequencyRange() {
	freqRange := p.centerFreq * p.depth
	p.minFreq = math.Max(20.0, p.centerFreq-freqRange/2)
	p.maxFreq = math.Min(p.sampleRate/4, p.centerFreq+freqRange/2)
}

// nextCoefficient advances the LFO one sample and returns the all-pass
// coefficient for the swept frequency.
func (p *Phaser) nextCoefficient() float32 {
	normalized := (p.lfo.Process() + 1.0) / 2.0

	// Exponential sweep for a more musical response
	logMin := math.Log(p.minFreq)
	logMax := math.Log(p.maxFreq)
	freq := math.Exp(logMin + (logMax-logMin)*normalized)

	return allPassCoefficient(freq, p.sampleRate)
}

func (p *Phaser) processChannel(input, a1 float32, channel int) float32 {
	wet := input + p.feedback1[channel]*float32(p.feedback)

	// Limit to prevent runaway feedback
	if wet > 1.0 {
		wet = 1.0
	} else if wet < -1.0 {
		wet = -1.0
	}

	stages := &p.filters[channel]
	for i := range stages {
		stages[i].a1 = a1
		wet = stages[i].Process(wet)
	}

	p.feedback1[channel] = wet

	return input*float32(1-p.mix) + wet*float32(p.mix)
}

// ProcessMulti processes a block in place. Channels beyond the configured
// count pass through untouched.
func (p *Phaser) ProcessMulti(buffers [][]float32) {
	if len(buffers) == 0 {
		return
	}
	channels := len(buffers)
	if channels > p.channels {
		channels = p.channels
	}

	n := len(buffers[0])
	for i := 0; i < n; i++ {
		a1 := p.nextCoefficient()
		for ch := 0; ch < channels; ch++ {
			if i < len(buffers[ch]) {
				buffers[ch][i] = p.processChannel(buffers[ch][i], a1, ch)
			}
		}
	}
}

// Reset resets the phaser state
func (p *Phaser) Reset() {
	for ch := range p.filters {
		for i := range p.filters[ch] {
			p.filters[ch][i].Reset()
		}
		p.feedback1[ch] = 0
	}
	p.lfo.Reset()
}
