package host

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/justyntemme/crystal/pkg/dsp/buffer"
	"github.com/justyntemme/crystal/pkg/framework/debug"
)

const (
	recorderBitDepth = 16
	recorderLatency  = 250 * time.Millisecond
	recorderInterval = 50 * time.Millisecond
)

// Recorder writes the output tap to a 16-bit WAV file. The audio thread
// only touches the FIFO; a goroutine drains it into the encoder.
type Recorder struct {
	path   string
	fifo   *buffer.FIFO
	file   *os.File
	enc    *wav.Encoder
	logger *debug.Logger

	samples []float32
	ints    *audio.IntBuffer
	frames  uint64

	profiler atomic.Pointer[debug.Profiler]

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	err       error
}

// NewRecorder creates path and starts draining. Connect FIFO to
// Renderer.SetTap.
func NewRecorder(path string, sampleRate float64, channels int, logger *debug.Logger) (*Recorder, error) {
	if logger == nil {
		logger = debug.Default()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}

	fifo := buffer.NewFIFO(sampleRate, channels, recorderLatency)
	chunk := fifo.Space() / 2
	r := &Recorder{
		path:    path,
		fifo:    fifo,
		file:    f,
		enc:     wav.NewEncoder(f, int(sampleRate), recorderBitDepth, channels, 1),
		logger:  logger,
		samples: make([]float32, chunk),
		ints: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: int(sampleRate)},
			Data:           make([]int, chunk),
			SourceBitDepth: recorderBitDepth,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go r.run()
	logger.Info("recording to %s", path)
	return r, nil
}

// FIFO returns the queue the audio thread writes into.
func (r *Recorder) FIFO() *buffer.FIFO {
	return r.fifo
}

// SetProfiler times each encoded chunk as "encode".
func (r *Recorder) SetProfiler(p *debug.Profiler) {
	r.profiler.Store(p)
}

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(recorderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.fifo.Prime()
			r.err = r.drain()
			return
		case <-ticker.C:
			if err := r.drain(); err != nil {
				r.err = err
				return
			}
		}
	}
}

// drain encodes everything currently queued.
func (r *Recorder) drain() error {
	channels := r.fifo.Channels()
	for {
		available := r.fifo.Available()
		available -= available % channels
		if available == 0 {
			return nil
		}
		n := r.fifo.Read(r.samples[:min(available, len(r.samples))])
		if n == 0 {
			// Not primed yet
			return nil
		}
		if err := r.encode(r.samples[:n]); err != nil {
			return err
		}
	}
}

func (r *Recorder) encode(samples []float32) error {
	if p := r.profiler.Load(); p != nil {
		defer p.Start("encode")()
	}
	r.ints.Data = r.ints.Data[:len(samples)]
	for i, s := range samples {
		r.ints.Data[i] = FloatToPCM16(s)
	}
	if err := r.enc.Write(r.ints); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	r.frames += uint64(len(samples) / r.fifo.Channels())
	return nil
}

// Close stops the drain goroutine, flushes the queue and finalizes the file.
// The audio stream must be stopped first. Later calls return the first
// call's result.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done

		r.closeErr = errors.Join(r.err, r.enc.Close(), r.file.Close())
		if health := r.fifo.Health(); health.Overruns > 0 {
			r.logger.Warn("recording dropped %d blocks", health.Overruns)
		}
		r.logger.Info("recorded %d frames to %s", r.frames, r.path)
	})
	return r.closeErr
}

// FloatToPCM16 converts a sample to a clamped 16-bit integer.
func FloatToPCM16(s float32) int {
	switch {
	case math.IsNaN(float64(s)):
		return 0
	case s >= 1:
		return 32767
	case s <= -1:
		return -32768
	}
	return int(s * 32767)
}
