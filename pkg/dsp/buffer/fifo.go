package buffer

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

// ErrOverrun is returned by Write when the FIFO has no room for the samples.
var ErrOverrun = errors.New("buffer overrun: not enough space available")

// FIFO is a lock-free single-producer single-consumer ring of interleaved
// samples. The reader gets silence until the writer has queued the configured
// latency once, which absorbs scheduling and GC pauses on the producer side.
type FIFO struct {
	data           []float32
	readPos        uint64
	writePos       uint64
	size           uint32
	mask           uint32
	latencySamples uint32
	primed         atomic.Bool
	sampleRate     float64
	channels       int

	// Statistics for monitoring
	underruns uint64
	overruns  uint64
}

// Stats provides health monitoring information
type Stats struct {
	Underruns      uint64
	Overruns       uint64
	FillPercentage float32
	CurrentLatency time.Duration
}

// NewFIFO creates a FIFO for interleaved audio holding at least four times
// the requested latency.
func NewFIFO(sampleRate float64, channels int, latency time.Duration) *FIFO {
	if channels < 1 {
		channels = 1
	}
	latencyFrames := uint32(math.Round(latency.Seconds() * sampleRate))
	latencySamples := latencyFrames * uint32(channels)

	size := nextPowerOf2(latencySamples * 4)
	if size < 1024 {
		size = 1024
	}

	return &FIFO{
		data:           make([]float32, size),
		size:           size,
		mask:           size - 1,
		latencySamples: latencySamples,
		sampleRate:     sampleRate,
		channels:       channels,
	}
}

// Write queues samples. It never blocks; on overrun nothing is written.
func (f *FIFO) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	writePos := atomic.LoadUint64(&f.writePos)
	readPos := atomic.LoadUint64(&f.readPos)

	if f.space(readPos, writePos) < uint32(len(samples)) {
		atomic.AddUint64(&f.overruns, 1)
		return ErrOverrun
	}

	remaining := len(samples)
	srcOffset := 0
	for remaining > 0 {
		dstIdx := uint32(writePos) & f.mask
		copySize := remaining
		if dstIdx+uint32(copySize) > f.size {
			copySize = int(f.size - dstIdx)
		}
		copy(f.data[dstIdx:dstIdx+uint32(copySize)], samples[srcOffset:srcOffset+copySize])
		srcOffset += copySize
		remaining -= copySize
		writePos += uint64(copySize)
	}

	atomic.StoreUint64(&f.writePos, writePos)

	if !f.primed.Load() && writePos-readPos >= uint64(f.latencySamples) {
		f.primed.Store(true)
	}
	return nil
}

// Read fills output with queued samples and zeroes whatever it could not
// fill. Returns the number of real samples read. Safe on the audio thread.
func (f *FIFO) Read(output []float32) int {
	if len(output) == 0 {
		return 0
	}
	if !f.primed.Load() {
		for i := range output {
			output[i] = 0
		}
		return 0
	}

	readPos := atomic.LoadUint64(&f.readPos)
	writePos := atomic.LoadUint64(&f.writePos)

	toRead := len(output)
	if available := f.available(readPos, writePos); available < uint32(toRead) {
		toRead = int(available)
		atomic.AddUint64(&f.underruns, 1)
	}

	remaining := toRead
	dstOffset := 0
	for remaining > 0 {
		srcIdx := uint32(readPos) & f.mask
		copySize := remaining
		if srcIdx+uint32(copySize) > f.size {
			copySize = int(f.size - srcIdx)
		}
		copy(output[dstOffset:dstOffset+copySize], f.data[srcIdx:srcIdx+uint32(copySize)])
		dstOffset += copySize
		remaining -= copySize
		readPos += uint64(copySize)
	}

	atomic.StoreUint64(&f.readPos, readPos)

	for i := toRead; i < len(output); i++ {
		output[i] = 0
	}
	return toRead
}

// Prime releases queued samples to the reader before the latency target is
// reached. Consumers draining a finished stream call it before the last Read.
func (f *FIFO) Prime() {
	f.primed.Store(true)
}

// Space returns how many samples can currently be written.
func (f *FIFO) Space() int {
	return int(f.space(atomic.LoadUint64(&f.readPos), atomic.LoadUint64(&f.writePos)))
}

// Available returns how many samples can currently be read.
func (f *FIFO) Available() int {
	return int(f.available(atomic.LoadUint64(&f.readPos), atomic.LoadUint64(&f.writePos)))
}

// Channels returns the interleaving width.
func (f *FIFO) Channels() int {
	return f.channels
}

// Health returns current buffer statistics
func (f *FIFO) Health() Stats {
	readPos := atomic.LoadUint64(&f.readPos)
	writePos := atomic.LoadUint64(&f.writePos)

	available := f.available(readPos, writePos)
	frames := float64(available) / float64(f.channels)

	return Stats{
		Underruns:      atomic.LoadUint64(&f.underruns),
		Overruns:       atomic.LoadUint64(&f.overruns),
		FillPercentage: float32(available) / float32(f.size) * 100.0,
		CurrentLatency: time.Duration(frames * float64(time.Second) / f.sampleRate),
	}
}

// Reset clears the buffer. Must not race with Read or Write.
func (f *FIFO) Reset() {
	for i := range f.data {
		f.data[i] = 0
	}
	atomic.StoreUint64(&f.readPos, 0)
	atomic.StoreUint64(&f.writePos, 0)
	atomic.StoreUint64(&f.underruns, 0)
	atomic.StoreUint64(&f.overruns, 0)
	f.primed.Store(false)
}

func (f *FIFO) space(readPos, writePos uint64) uint32 {
	used := writePos - readPos
	if used >= uint64(f.size) {
		return 0
	}
	return f.size - uint32(used)
}

func (f *FIFO) available(readPos, writePos uint64) uint32 {
	if writePos < readPos {
		return 0
	}
	available := writePos - readPos
	if available > uint64(f.size) {
		return f.size
	}
	return uint32(available)
}

// nextPowerOf2 rounds up to the next power of 2
func nextPowerOf2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
