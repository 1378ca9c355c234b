package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/justyntemme/crystal/pkg/dsp"
)

// Backends
const (
	backendPortAudio = "portaudio"
	backendOto       = "oto"
)

// inputLatency is the read-ahead kept between the file feeder and the audio callback.
const inputLatency = 100 * time.Millisecond

var errUsage = errors.New("usage")

type options struct {
	backend    string
	in         string
	source     string
	rate       float64
	block      int
	channels   int
	bpm        float64
	seed       uint64
	record     string
	preset     string
	savePreset string
	sets       []string
	profile    bool
	logLevel   string
	logFile    string
}

func parseOptions(args []string, output io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("crystal", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "usage: crystal [flags]")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.backend, "backend", backendPortAudio, "audio backend: portaudio or oto")
	fs.StringVar(&o.in, "in", "", "play a wav, aiff, mp3 or ogg file as the live input")
	fs.StringVar(&o.source, "source", "", "grain source: live or chord (default from preset)")
	fs.Float64Var(&o.rate, "rate", dsp.SampleRate44k1, "sample rate in Hz")
	fs.IntVar(&o.block, "block", dsp.DefaultBufferSize, "frames per block")
	fs.IntVar(&o.channels, "channels", dsp.Stereo, "input and output channels")
	fs.Float64Var(&o.bpm, "bpm", 120, "host tempo in beats per minute")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed, 0 for a random one")
	fs.StringVar(&o.record, "record", "", "record the output to a 16-bit wav file")
	fs.StringVar(&o.preset, "preset", "", "load a preset file on start")
	fs.StringVar(&o.savePreset, "save-preset", "", "save a preset file on exit")
	fs.Func("set", "set a parameter, e.g. -set mix=50% (repeatable)", func(s string) error {
		o.sets = append(o.sets, s)
		return nil
	})
	fs.BoolVar(&o.profile, "profile", false, "measure block processing time")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error or off")
	fs.StringVar(&o.logFile, "log-file", "", "append log output to a file instead of the terminal")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("%w: unexpected argument %q", errUsage, fs.Arg(0))
	}

	switch o.backend {
	case backendPortAudio, backendOto:
	default:
		return o, fmt.Errorf("%w: unknown backend %q", errUsage, o.backend)
	}
	switch o.source {
	case "", "live", "chord":
	default:
		return o, fmt.Errorf("%w: unknown source %q", errUsage, o.source)
	}
	if o.rate < 8000 || o.rate > 192000 {
		return o, fmt.Errorf("%w: sample rate %.0f out of range", errUsage, o.rate)
	}
	if o.block < dsp.MinBufferSize || o.block > dsp.MaxBufferSize {
		return o, fmt.Errorf("%w: block size %d out of range [%d, %d]",
			errUsage, o.block, dsp.MinBufferSize, dsp.MaxBufferSize)
	}
	if o.channels != dsp.Mono && o.channels != dsp.Stereo {
		return o, fmt.Errorf("%w: %d channels, want 1 or 2", errUsage, o.channels)
	}
	if o.bpm <= 0 {
		return o, fmt.Errorf("%w: tempo must be positive", errUsage)
	}
	return o, nil
}
