package granular

import (
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/justyntemme/crystal/pkg/dsp/oscillator"
	"github.com/justyntemme/crystal/pkg/framework/param"
)

const (
	// ChordVoices is the number of sines in the internal chord source.
	ChordVoices = 6
	// chordAmplitude is the level of each sine.
	chordAmplitude = 0.15
	chordMinHz     = 100.0
	chordMaxHz     = 400.0
)

// Chord holds one frequency per voice.
type Chord [ChordVoices]float64

// RandomChord draws a chord: voice i is uniform in [100, 400) Hz scaled by 1 + i/2.
func RandomChord(rng *rand.Rand) Chord {
	var c Chord
	for i := range c {
		c[i] = uniform(rng, chordMinHz, chordMaxHz) * (1 + 0.5*float64(i))
	}
	return c
}

// chordBank renders the internal chord source. Frequency changes glide
// over the smoothing time. Only the audio thread touches the oscillators;
// the published frequencies may be read from any goroutine.
type chordBank struct {
	voices    [ChordVoices]*oscillator.Oscillator
	freqs     [ChordVoices]param.Smoother
	published [ChordVoices]atomic.Uint64
}

func newChordBank(sampleRate float64, chord Chord) *chordBank {
	b := &chordBank{}
	for i := range b.voices {
		b.voices[i] = oscillator.New(sampleRate)
		b.freqs[i].SetCurrentAndTarget(chord[i])
	}
	b.publish(chord)
	return b
}

// prepare sets the sample rate, rewinds the voices and jumps to the
// current targets.
func (b *chordBank) prepare(sampleRate, seconds float64) {
	for i := range b.voices {
		b.voices[i].SetSampleRate(sampleRate)
		b.voices[i].Reset()
		b.freqs[i].Reset(sampleRate, seconds)
	}
}

// setChord starts a glide toward a new chord.
func (b *chordBank) setChord(c Chord) {
	for i := range b.freqs {
		b.freqs[i].SetTarget(c[i])
	}
	b.publish(c)
}

func (b *chordBank) publish(c Chord) {
	for i := range c {
		b.published[i].Store(math.Float64bits(c[i]))
	}
}

// chord returns the most recently requested chord.
func (b *chordBank) chord() Chord {
	var c Chord
	for i := range c {
		c[i] = math.Float64frombits(b.published[i].Load())
	}
	return c
}

// next renders one sample of the chord.
func (b *chordBank) next() float32 {
	var sum float32
	for i, osc := range b.voices {
		osc.SetFrequency(b.freqs[i].Next())
		sum += osc.Sine() * chordAmplitude
	}
	return sum
}
