package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/justyntemme/crystal/pkg/dsp/buffer"
	"github.com/justyntemme/crystal/pkg/framework/debug"
)

const (
	feedChunkFrames = 1024
	feedRetry       = 5 * time.Millisecond
)

// Feeder decodes a source into a FIFO from its own goroutine, converting
// channel counts to the FIFO's width. With looping enabled the source is
// reopened at the end.
type Feeder struct {
	open     func() (Source, error)
	fifo     *buffer.FIFO
	loop     bool
	logger   *debug.Logger
	profiler *debug.Profiler
}

// NewFeeder creates a feeder. open is called once per pass over the source.
func NewFeeder(open func() (Source, error), fifo *buffer.FIFO, loop bool, logger *debug.Logger) *Feeder {
	if logger == nil {
		logger = debug.Default()
	}
	return &Feeder{open: open, fifo: fifo, loop: loop, logger: logger}
}

// SetProfiler times each source read as "decode". Call before Run.
func (f *Feeder) SetProfiler(p *debug.Profiler) {
	f.profiler = p
}

// OpenFile returns an opener for Feeder that decodes path and resamples it
// to sampleRate.
func OpenFile(registry *Registry, path string, sampleRate int) func() (Source, error) {
	return func() (Source, error) {
		src, err := registry.Open(path)
		if err != nil {
			return nil, err
		}
		res, err := Resample(src, sampleRate, DefaultResampleQuality)
		if err != nil {
			src.Close()
			return nil, err
		}
		return res, nil
	}
}

// Run feeds until the context is cancelled, the source ends without
// looping, or an error occurs. Cancellation returns nil.
func (f *Feeder) Run(ctx context.Context) error {
	for pass := 0; ; pass++ {
		frames, err := f.feed(ctx, pass)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return err
		case frames == 0:
			return ErrEmptySource
		case !f.loop:
			return nil
		}
	}
}

// feed plays one pass of the source and returns the frames queued.
func (f *Feeder) feed(ctx context.Context, pass int) (int, error) {
	src, err := f.open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if pass == 0 {
		f.logger.Info("source: %d Hz, %d channels", src.SampleRate(), src.Channels())
	}

	channels := f.fifo.Channels()
	in := make([]float32, feedChunkFrames*src.Channels())
	out := make([]float32, feedChunkFrames*channels)
	total := 0

	for {
		n, err := f.read(src, in)
		if n > 0 {
			if pass == 0 && total == 0 {
				debug.LogBufferStats(f.logger, in[:n], "source")
			}
			m := Remix(out, in[:n], src.Channels(), channels)
			if werr := f.write(ctx, out[:m]); werr != nil {
				return total, werr
			}
			total += m / channels
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read source: %w", err)
		}
	}
}

func (f *Feeder) read(src Source, dst []float32) (int, error) {
	if f.profiler != nil {
		defer f.profiler.Start("decode")()
	}
	return src.ReadSamples(dst)
}

// write queues samples, waiting while the FIFO is full.
func (f *Feeder) write(ctx context.Context, samples []float32) error {
	for {
		if f.fifo.Space() >= len(samples) {
			return f.fifo.Write(samples)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(feedRetry):
		}
	}
}
