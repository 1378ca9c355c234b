// Package buffer provides real-time safe sample buffers: the multi-channel
// history ring grains read from and a lock-free FIFO for moving audio between
// the audio thread and non real-time goroutines.
package buffer

// HistorySeconds is the length of recorded history kept by the engine.
const HistorySeconds = 2.0

// SafetyMargin is the minimum distance, in samples, between the write cursor
// and any read offset chosen at grain spawn time.
const SafetyMargin = 512

// History is a fixed-capacity multi-channel ring of the most recent input.
// Indices passed to Read and Write must already be wrapped with Wrap.
type History struct {
	data     [][]float32
	length   int
	writePos int
}

// NewHistory allocates a cleared ring with the given channel count and length.
func NewHistory(channels, length int) *History {
	if channels < 1 {
		channels = 1
	}
	if length < 1 {
		length = 1
	}
	h := &History{
		data:   make([][]float32, channels),
		length: length,
	}
	for ch := range h.data {
		h.data[ch] = make([]float32, length)
	}
	return h
}

// Len returns the ring length in samples per channel.
func (h *History) Len() int {
	return h.length
}

// Channels returns the number of recorded channels.
func (h *History) Channels() int {
	return len(h.data)
}

// WritePos returns the current write cursor.
func (h *History) WritePos() int {
	return h.writePos
}

// Write stores a sample at a pre-wrapped index.
func (h *History) Write(channel, index int, sample float32) {
	h.data[channel][index] = sample
}

// Read returns the sample at a pre-wrapped index.
func (h *History) Read(channel, index int) float32 {
	return h.data[channel][index]
}

// ReadMono averages all channels at a pre-wrapped index.
func (h *History) ReadMono(index int) float32 {
	var sum float32
	for ch := range h.data {
		sum += h.data[ch][index]
	}
	return sum / float32(len(h.data))
}

// Advance moves the write cursor forward by one sample.
func (h *History) Advance() {
	h.writePos++
	if h.writePos >= h.length {
		h.writePos = 0
	}
}

// Wrap maps any index, including large negatives, into [0, Len).
func (h *History) Wrap(index int) int {
	index %= h.length
	if index < 0 {
		index += h.length
	}
	return index
}

// Clear zeroes the ring and rewinds the write cursor.
func (h *History) Clear() {
	for ch := range h.data {
		for i := range h.data[ch] {
			h.data[ch][i] = 0
		}
	}
	h.writePos = 0
}
