package granular

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/justyntemme/crystal/pkg/dsp"
	"github.com/justyntemme/crystal/pkg/dsp/analysis"
	"github.com/justyntemme/crystal/pkg/dsp/buffer"
	"github.com/justyntemme/crystal/pkg/framework/bus"
	"github.com/justyntemme/crystal/pkg/framework/debug"
	"github.com/justyntemme/crystal/pkg/framework/process"
)

var (
	// ErrInvalidSampleRate is returned by Prepare for a non-positive or non-finite rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrInvalidBlockSize is returned by Prepare for a non-positive block size.
	ErrInvalidBlockSize = errors.New("invalid block size")
	// ErrUnsupportedLayout is returned by Prepare unless input and output are
	// both mono or both stereo.
	ErrUnsupportedLayout = bus.ErrUnsupportedLayout
	// ErrInvalidChord is returned for chords with non-positive or non-finite frequencies.
	ErrInvalidChord = errors.New("invalid chord")
)

// Config holds the engine settings fixed at construction.
type Config struct {
	PoolSize         int
	HistorySeconds   float64
	SmoothingSeconds float64
	// Seed seeds the engine's random source. Zero picks a random seed.
	Seed uint64
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		PoolSize:         DefaultPoolSize,
		HistorySeconds:   buffer.HistorySeconds,
		SmoothingSeconds: dsp.ParameterSmoothing,
	}
}

// Stats describes grain activity. Active and Waiting are counted at the end
// of the last block; Spawned and Completed are totals since Prepare.
type Stats struct {
	Active    int
	Waiting   int
	Spawned   uint64
	Completed uint64
}

// Engine owns all real-time state. Prepare and Process must be called from
// one goroutine at a time; the level, stats, chord and bypass methods may be
// called from any goroutine.
type Engine struct {
	params *Parameters
	config Config
	rng    *rand.Rand
	logger *debug.Logger

	sampleRate float64
	maxBlock   int
	channels   int
	prepared   bool

	history  *buffer.History
	pool     *Pool
	sched    scheduler
	settings spawnSettings
	mixer    mixer
	chord    *chordBank
	fx       *effects

	grainBuf  [][]float32
	inView    [][]float32
	outView   [][]float32
	grainView [][]float32
	frame     []float32

	spawned   uint64
	completed uint64

	inputLevel   analysis.LevelFollower
	outputLevel  analysis.LevelFollower
	active       atomic.Int64
	waiting      atomic.Int64
	spawnedOut   atomic.Uint64
	completedOut atomic.Uint64
	chordRequest atomic.Bool
	pendingChord atomic.Pointer[Chord]
	bypass       atomic.Bool
}

// New creates an engine reading the given parameters. A random chord is
// drawn for the chord source.
func New(params *Parameters, config Config) *Engine {
	defaults := DefaultConfig()
	if config.PoolSize < 1 {
		config.PoolSize = defaults.PoolSize
	}
	if config.HistorySeconds <= 0 {
		config.HistorySeconds = defaults.HistorySeconds
	}
	if config.SmoothingSeconds < 0 {
		config.SmoothingSeconds = defaults.SmoothingSeconds
	}

	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	e := &Engine{
		params: params,
		config: config,
		rng:    rng,
		logger: debug.Default(),
		pool:   NewPool(config.PoolSize),
	}
	e.chord = newChordBank(dsp.SampleRate44k1, RandomChord(rng))
	return e
}

// SetLogger replaces the logger used outside the audio thread.
func (e *Engine) SetLogger(logger *debug.Logger) {
	e.logger = logger
}

// Parameters returns the engine's parameter set.
func (e *Engine) Parameters() *Parameters {
	return e.params
}

// Prepare allocates all buffers for a sample rate, maximum block size and
// channel layout, and clears history, grains and effect tails.
func (e *Engine) Prepare(sampleRate float64, maxBlockSize, inputChannels, outputChannels int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("prepare: %w: %v", ErrInvalidSampleRate, sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("prepare: %w: %d", ErrInvalidBlockSize, maxBlockSize)
	}
	layout, err := bus.Validate(inputChannels, outputChannels)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	channels := layout.Channels()
	e.sampleRate = sampleRate
	e.maxBlock = maxBlockSize
	e.channels = channels

	e.history = buffer.NewHistory(channels, int(sampleRate*e.config.HistorySeconds))
	e.pool.Reset()
	e.sched.reset()

	e.grainBuf = process.NewBuffers(channels, maxBlockSize)
	e.inView = make([][]float32, channels)
	e.outView = make([][]float32, channels)
	e.grainView = make([][]float32, channels)
	e.frame = make([]float32, channels)

	smoothing := e.config.SmoothingSeconds
	e.mixer.reset(sampleRate, smoothing, e.params.Mix.GetPlainValue(), e.params.Gain.GetPlainValue())
	e.chord.prepare(sampleRate, smoothing)
	e.fx = newEffects(sampleRate, channels, smoothing, e.params.HPFFreq.GetPlainValue())

	e.inputLevel.Reset()
	e.outputLevel.Reset()
	e.spawned = 0
	e.completed = 0
	e.publishStats()
	e.prepared = true

	e.logger.Debug("engine prepared: %s, %.0f Hz, block %d, history %d samples, %d grains",
		layout, sampleRate, maxBlockSize, e.history.Len(), e.pool.Len())
	return nil
}

// SampleRate returns the prepared sample rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// HistoryLen returns the history length per channel in samples.
func (e *Engine) HistoryLen() int {
	if e.history == nil {
		return 0
	}
	return e.history.Len()
}

// Process renders one block. It never allocates, locks or fails. Output
// channels without a matching input are cleared; blocks longer than the
// prepared maximum are processed in pieces.
func (e *Engine) Process(ctx *process.Context) {
	if !e.prepared {
		ctx.Clear()
		return
	}

	channels := min(e.channels, ctx.NumInputChannels(), ctx.NumOutputChannels())
	for ch := channels; ch < ctx.NumOutputChannels(); ch++ {
		clear(ctx.Output[ch])
	}
	n := ctx.NumSamples()
	if channels == 0 || n == 0 {
		return
	}

	e.fx.chain.SetBypass(e.bypass.Load())
	e.consumeChordRequests()

	samplesPerBeat := e.sampleRate * 60 / ctx.Tempo()
	for start := 0; start < n; start += e.maxBlock {
		end := min(start+e.maxBlock, n)
		e.processBlock(ctx.Input, ctx.Output, start, end, channels, samplesPerBeat)
	}
	e.publishStats()
}

func (e *Engine) processBlock(input, output [][]float32, start, end, channels int, samplesPerBeat float64) {
	length := end - start
	in := e.inView[:channels]
	out := e.outView[:channels]
	grains := e.grainView[:channels]
	for ch := 0; ch < channels; ch++ {
		in[ch] = input[ch][start:end]
		out[ch] = output[ch][start:end]
		grains[ch] = e.grainBuf[ch][:length]
		clear(grains[ch])
	}

	p := e.params
	e.settings.read(p, e.sampleRate, samplesPerBeat, e.pool.Len())
	e.mixer.setTargets(p.Mix.GetPlainValue(), p.Gain.GetPlainValue())
	useChord := int(math.Round(p.InputSource.GetPlainValue())) == SourceChord

	var inPeak float32
	for i := 0; i < length; i++ {
		var chordSample float32
		if useChord {
			chordSample = e.chord.next()
		}

		pos := e.history.WritePos()
		for ch := 0; ch < channels; ch++ {
			s := in[ch][i]
			if useChord {
				s = chordSample
			}
			e.frame[ch] = s
			e.history.Write(ch, pos, s)
			inPeak = max(inPeak, float32(math.Abs(float64(s))))
		}

		if e.sched.tick(e.settings.interval) {
			if g := e.pool.FirstFree(); g != nil {
				spawn(g, &e.settings, e.history, e.rng)
				e.spawned++
			}
		}

		for k := 0; k < e.pool.Len(); k++ {
			if g := e.pool.At(k); g.State != GrainFree && g.render(e.history, grains, i, e.sampleRate) {
				e.completed++
			}
		}

		dry, wet, gain := e.mixer.next()
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = mixSample(e.frame[ch], grains[ch][i], dry, wet, gain)
		}

		e.history.Advance()
	}

	e.fx.update(length, p.HPFFreq.GetPlainValue(), e.rng)
	e.fx.process(out)

	e.inputLevel.Update(inPeak)
	e.outputLevel.Update(dsp.PeakAll(out))
}

func (e *Engine) publishStats() {
	active, waiting := e.pool.Counts()
	e.active.Store(int64(active))
	e.waiting.Store(int64(waiting))
	e.spawnedOut.Store(e.spawned)
	e.completedOut.Store(e.completed)
}

// Stats returns the grain activity after the last block. The fields are
// read individually and may straddle a block boundary.
func (e *Engine) Stats() Stats {
	return Stats{
		Active:    int(e.active.Load()),
		Waiting:   int(e.waiting.Load()),
		Spawned:   e.spawnedOut.Load(),
		Completed: e.completedOut.Load(),
	}
}

// InputLevel returns the smoothed input peak level.
func (e *Engine) InputLevel() float32 {
	return e.inputLevel.Level()
}

// OutputLevel returns the smoothed output peak level.
func (e *Engine) OutputLevel() float32 {
	return e.outputLevel.Level()
}

// InputLevelDB returns the smoothed input level in decibels.
func (e *Engine) InputLevelDB() float64 {
	return e.inputLevel.LevelDB()
}

// OutputLevelDB returns the smoothed output level in decibels.
func (e *Engine) OutputLevelDB() float64 {
	return e.outputLevel.LevelDB()
}

// SetEffectsBypass bypasses the highpass, reverb and phaser from the next block.
func (e *Engine) SetEffectsBypass(bypass bool) {
	e.bypass.Store(bypass)
}

// EffectsBypassed reports whether the effects chain is bypassed.
func (e *Engine) EffectsBypassed() bool {
	return e.bypass.Load()
}

// RequestChord asks the audio thread to glide to a new random chord.
func (e *Engine) RequestChord() {
	e.chordRequest.Store(true)
}

// SetChord asks the audio thread to glide to the given chord.
func (e *Engine) SetChord(c Chord) error {
	for i, f := range c {
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: voice %d is %v Hz", ErrInvalidChord, i, f)
		}
	}
	e.pendingChord.Store(&c)
	return nil
}

// Chord returns the chord most recently applied by the audio thread.
func (e *Engine) Chord() Chord {
	return e.chord.chord()
}

func (e *Engine) consumeChordRequests() {
	if c := e.pendingChord.Swap(nil); c != nil {
		e.chord.setChord(*c)
	}
	if e.chordRequest.Swap(false) {
		e.chord.setChord(RandomChord(e.rng))
	}
}

// SaveState writes the current chord; presets store it beside the parameters.
func (e *Engine) SaveState(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, e.Chord())
}

// LoadState reads a chord written by SaveState and requests it.
func (e *Engine) LoadState(r io.Reader) error {
	var c Chord
	if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
		return fmt.Errorf("read chord: %w", err)
	}
	return e.SetChord(c)
}
