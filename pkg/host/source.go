// Package host connects the engine to the outside world: decoded audio
// files as input, portaudio and oto audio devices, a WAV recorder for the
// output and a raw-mode terminal for live control.
package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for a file.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrUnsupportedEncoding is returned for compressed or floating point PCM.
	ErrUnsupportedEncoding = errors.New("unsupported sample encoding")
	// ErrInvalidFile is returned when a file does not match its format.
	ErrInvalidFile = errors.New("invalid audio file")
	// ErrEmptySource is returned when a looping source yields no samples.
	ErrEmptySource = errors.New("source produced no samples")
)

// Source is a stream of interleaved float32 samples in [-1, 1].
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Channels is the interleaving width.
	Channels() int
	// ReadSamples fills dst with whole frames and returns the number of
	// samples (not frames) written. It returns 0, io.EOF at the end.
	ReadSamples(dst []float32) (int, error)
	// Close releases the decoder and its file.
	Close() error
}

// Decoder constructs a Source from a seekable reader.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// Registry maps lower-case file extensions to decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with the WAV, AIFF, MP3 and Ogg Vorbis decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WAVDecoder{}, ".wav", ".wave")
	r.Register(AIFFDecoder{}, ".aif", ".aiff")
	r.Register(MP3Decoder{}, ".mp3")
	r.Register(VorbisDecoder{}, ".ogg", ".oga")
	return r
}

// Register adds a decoder for one or more extensions such as ".wav".
func (r *Registry) Register(d Decoder, extensions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range extensions {
		r.decoders[strings.ToLower(ext)] = d
	}
}

// Lookup returns the decoder for a file name's extension.
func (r *Registry) Lookup(name string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decoders[strings.ToLower(filepath.Ext(name))]
	return d, ok
}

// Open decodes the file at path. Closing the source closes the file.
func (r *Registry) Open(path string) (Source, error) {
	d, ok := r.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	src, err := d.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &fileSource{Source: src, file: f}, nil
}

type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.file.Close())
}

// Remix converts interleaved frames between channel counts. Mono is copied
// to every output channel, a downmix to mono averages, and any other
// mismatch maps channels by index, padding with silence. Returns the
// number of samples written to dst.
func Remix(dst, src []float32, srcChannels, dstChannels int) int {
	if srcChannels < 1 || dstChannels < 1 {
		return 0
	}
	frames := min(len(src)/srcChannels, len(dst)/dstChannels)

	for i := 0; i < frames; i++ {
		in := src[i*srcChannels : (i+1)*srcChannels]
		out := dst[i*dstChannels : (i+1)*dstChannels]
		switch {
		case srcChannels == dstChannels:
			copy(out, in)
		case srcChannels == 1:
			for ch := range out {
				out[ch] = in[0]
			}
		case dstChannels == 1:
			var sum float32
			for _, s := range in {
				sum += s
			}
			out[0] = sum / float32(srcChannels)
		default:
			for ch := range out {
				out[ch] = 0
				if ch < srcChannels {
					out[ch] = in[ch]
				}
			}
		}
	}
	return frames * dstChannels
}
