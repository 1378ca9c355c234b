package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/justyntemme/crystal/pkg/framework/debug"
)

// Duplex runs a Renderer on the default portaudio input and output devices.
// With inputs disabled only the output device is opened.
type Duplex struct {
	renderer *Renderer
	stream   *portaudio.Stream
	logger   *debug.Logger

	mu      sync.Mutex
	started bool
}

// OpenDuplex initializes portaudio and opens the default stream. Pass
// input false when the renderer takes its input from a FIFO.
func OpenDuplex(renderer *Renderer, framesPerBuffer int, input bool, logger *debug.Logger) (*Duplex, error) {
	if logger == nil {
		logger = debug.Default()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	d := &Duplex{renderer: renderer, logger: logger}
	inputs := 0
	if input {
		inputs = renderer.Channels()
	}

	stream, err := portaudio.OpenDefaultStream(inputs, renderer.Channels(),
		renderer.SampleRate(), framesPerBuffer, d.callback)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open portaudio stream: %w", err), portaudio.Terminate())
	}
	d.stream = stream

	info := stream.Info()
	logger.Info("portaudio: %s, %.0f Hz, %d in, %d out, latency %v",
		portaudio.VersionText(), info.SampleRate, inputs, renderer.Channels(), info.OutputLatency)
	return d, nil
}

func (d *Duplex) callback(in, out [][]float32) {
	d.renderer.RenderPlanar(in, out)
}

// Start begins streaming.
func (d *Duplex) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("start portaudio stream: %w", err)
	}
	d.started = true
	return nil
}

// Close stops the stream and terminates portaudio.
func (d *Duplex) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if d.started {
		errs = append(errs, d.stream.Stop())
		d.started = false
	}
	errs = append(errs, d.stream.Close(), portaudio.Terminate())
	d.logger.Info("portaudio: closed")
	return errors.Join(errs...)
}
