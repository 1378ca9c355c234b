// Package process provides the per-block processing context: audio buffers,
// sample rate and the host transport.
package process

import (
	"math"
	"sync/atomic"
)

// DefaultTempo is used when no transport supplies a tempo.
const DefaultTempo = 120.0

// Transport supplies the host tempo in beats per minute.
// ok is false when the host has no tempo to report.
type Transport interface {
	Tempo() (bpm float64, ok bool)
}

// FixedTempo is a Transport with a constant tempo.
type FixedTempo float64

// Tempo implements Transport.
func (t FixedTempo) Tempo() (float64, bool) {
	return float64(t), t > 0
}

// AtomicTempo is a Transport whose tempo may be changed from any goroutine.
type AtomicTempo struct {
	bits atomic.Uint64
}

// NewAtomicTempo creates an AtomicTempo set to bpm.
func NewAtomicTempo(bpm float64) *AtomicTempo {
	t := &AtomicTempo{}
	t.Set(bpm)
	return t
}

// Set stores a new tempo.
func (t *AtomicTempo) Set(bpm float64) {
	t.bits.Store(math.Float64bits(bpm))
}

// Tempo implements Transport.
func (t *AtomicTempo) Tempo() (float64, bool) {
	bpm := math.Float64frombits(t.bits.Load())
	return bpm, bpm > 0 && !math.IsInf(bpm, 0)
}

// Context carries one block of audio through the engine with zero allocations.
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64
	Transport  Transport

	inputStorage  [][]float32
	outputStorage [][]float32
}

// NewContext creates a context with pre-allocated buffers of maxBlockSize
// frames per channel. Hosts that own their buffers may assign Input and
// Output directly instead.
func NewContext(sampleRate float64, maxBlockSize, channels int) *Context {
	c := &Context{
		SampleRate:    sampleRate,
		inputStorage:  NewBuffers(channels, maxBlockSize),
		outputStorage: NewBuffers(channels, maxBlockSize),
	}
	c.Input = make([][]float32, channels)
	c.Output = make([][]float32, channels)
	c.SetFrames(maxBlockSize)
	return c
}

// NewBuffers allocates a per-channel buffer set.
func NewBuffers(channels, frames int) [][]float32 {
	buffers := make([][]float32, channels)
	for ch := range buffers {
		buffers[ch] = make([]float32, frames)
	}
	return buffers
}

// SetFrames reslices the pre-allocated buffers to n frames, capped at the
// allocated size. Returns the frame count in use.
func (c *Context) SetFrames(n int) int {
	if len(c.inputStorage) == 0 {
		return 0
	}
	if n > len(c.inputStorage[0]) {
		n = len(c.inputStorage[0])
	}
	if n < 0 {
		n = 0
	}
	for ch := range c.inputStorage {
		c.Input[ch] = c.inputStorage[ch][:n]
		c.Output[ch] = c.outputStorage[ch][:n]
	}
	return n
}

// MaxFrames returns the allocated frames per channel, or 0 for host-owned buffers.
func (c *Context) MaxFrames() int {
	if len(c.inputStorage) == 0 {
		return 0
	}
	return len(c.inputStorage[0])
}

// Tempo returns the transport tempo, or DefaultTempo when unavailable.
func (c *Context) Tempo() float64 {
	if c.Transport == nil {
		return DefaultTempo
	}
	if bpm, ok := c.Transport.Tempo(); ok && bpm > 0 {
		return bpm
	}
	return DefaultTempo
}

// SamplesPerBeat returns the beat length in samples at the current tempo.
func (c *Context) SamplesPerBeat() float64 {
	return c.SampleRate * 60.0 / c.Tempo()
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	if len(c.Input) > 0 {
		return len(c.Input[0])
	}
	if len(c.Output) > 0 {
		return len(c.Output[0])
	}
	return 0
}

// NumInputChannels returns the number of input channels
func (c *Context) NumInputChannels() int {
	return len(c.Input)
}

// NumOutputChannels returns the number of output channels
func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// PassThrough copies input to output (for bypass)
func (c *Context) PassThrough() {
	n := min(c.NumInputChannels(), c.NumOutputChannels())
	for ch := 0; ch < n; ch++ {
		copy(c.Output[ch], c.Input[ch])
	}
	c.ClearExtraOutputs()
}

// ClearExtraOutputs zeroes output channels that have no matching input
func (c *Context) ClearExtraOutputs() {
	for ch := c.NumInputChannels(); ch < c.NumOutputChannels(); ch++ {
		clear(c.Output[ch])
	}
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	for ch := range c.Output {
		clear(c.Output[ch])
	}
}
