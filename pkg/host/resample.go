package host

import (
	"errors"
	"fmt"
	"io"

	"github.com/dh1tw/gosamplerate"
)

// ErrUnsupportedRatio is returned when a conversion ratio is out of range.
var ErrUnsupportedRatio = errors.New("unsupported resampling ratio")

const (
	resampleBlockFrames = 1024
	resampleMaxRatio    = 16.0
	resampleMinRatio    = 1.0 / 16

	// DefaultResampleQuality is the libsamplerate converter used for sources.
	DefaultResampleQuality = gosamplerate.SRC_SINC_MEDIUM_QUALITY
)

// resampled streams a source through libsamplerate.
type resampled struct {
	src     Source
	conv    gosamplerate.Src
	ratio   float64
	rate    int
	in      []float32
	pending []float32
	eof     bool
}

// Resample converts src to sampleRate. Sources already at the rate are
// returned unchanged. Closing the result closes src.
func Resample(src Source, sampleRate, quality int) (Source, error) {
	if src.SampleRate() == sampleRate {
		return src, nil
	}

	ratio := float64(sampleRate) / float64(src.SampleRate())
	if !gosamplerate.IsValidRatio(ratio) || ratio < resampleMinRatio || ratio > resampleMaxRatio {
		return nil, fmt.Errorf("%w: %d Hz to %d Hz", ErrUnsupportedRatio, src.SampleRate(), sampleRate)
	}

	channels := src.Channels()
	outLen := int(resampleBlockFrames*resampleMaxRatio) * channels
	conv, err := gosamplerate.New(quality, channels, outLen)
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	return &resampled{
		src:   src,
		conv:  conv,
		ratio: ratio,
		rate:  sampleRate,
		in:    make([]float32, resampleBlockFrames*channels),
	}, nil
}

func (r *resampled) SampleRate() int { return r.rate }
func (r *resampled) Channels() int   { return r.src.Channels() }

func (r *resampled) ReadSamples(dst []float32) (int, error) {
	for len(r.pending) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, err
		}
	}

	channels := r.src.Channels()
	n := min(len(dst)-len(dst)%channels, len(r.pending))
	copy(dst, r.pending[:n])
	r.pending = r.pending[n:]
	return n, nil
}

// fill converts the next block of the source.
func (r *resampled) fill() error {
	n, err := r.src.ReadSamples(r.in)
	switch {
	case err == io.EOF:
		r.eof = true
	case err != nil:
		return err
	}

	out, err := r.conv.Process(r.in[:n], r.ratio, r.eof)
	if err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	r.pending = out
	return nil
}

func (r *resampled) Close() error {
	return errors.Join(gosamplerate.Delete(r.conv), r.src.Close())
}
