package host

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/justyntemme/crystal/pkg/framework/debug"
)

// Player streams a Renderer to the default output device through oto.
// oto pulls audio by calling Read from its own goroutine.
type Player struct {
	renderer *Renderer
	ctx      *oto.Context
	player   *oto.Player
	logger   *debug.Logger

	samples []float32
	mu      sync.Mutex // guards player state, never held by Read
	started bool
}

// NewPlayer opens the oto context. Only one context may exist per process.
func NewPlayer(renderer *Renderer, bufferSize time.Duration, logger *debug.Logger) (*Player, error) {
	if logger == nil {
		logger = debug.Default()
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(renderer.SampleRate()),
		ChannelCount: renderer.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open oto context: %w", err)
	}
	<-ready

	p := &Player{
		renderer: renderer,
		ctx:      ctx,
		logger:   logger,
		samples:  make([]float32, 8192),
	}
	p.player = ctx.NewPlayer(p)
	logger.Info("oto: %.0f Hz, %d channels", renderer.SampleRate(), renderer.Channels())
	return p, nil
}

// Read renders whole frames into p as little-endian float32.
func (p *Player) Read(buf []byte) (int, error) {
	frameBytes := 4 * p.renderer.Channels()
	n := len(buf) / frameBytes * p.renderer.Channels()
	if len(p.samples) < n {
		// oto asks for a similar size every time, so this happens once
		p.samples = make([]float32, n)
	}
	samples := p.samples[:n]

	p.renderer.RenderInterleaved(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(s))
	}
	return n * 4, nil
}

// Start begins playback.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	p.player.Play()
	p.started = true
	return nil
}

// Close stops playback. The oto context stays open until the process exits.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	p.logger.Info("oto: closed")
	return err
}
