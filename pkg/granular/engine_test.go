package granular

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/justyntemme/crystal/pkg/framework/debug"
	"github.com/justyntemme/crystal/pkg/framework/process"
	"github.com/justyntemme/crystal/pkg/framework/state"
)

const testBlock = 512

func testConfig(seed uint64) Config {
	config := DefaultConfig()
	config.Seed = seed
	return config
}

func newTestEngine(t testing.TB, params *Parameters, seed uint64) (*Engine, *process.Context) {
	t.Helper()
	if params == nil {
		params = NewParameters()
	}
	e := New(params, testConfig(seed))
	if err := e.Prepare(testRate, testBlock, 2, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	return e, process.NewContext(testRate, testBlock, 2)
}

// fillSine writes a sine continuing from sample offset start into every input channel.
func fillSine(ctx *process.Context, start int, freq, amplitude float64) {
	for ch := range ctx.Input {
		for i := range ctx.Input[ch] {
			phase := 2 * math.Pi * freq * float64(start+i) / ctx.SampleRate
			ctx.Input[ch][i] = float32(amplitude * math.Sin(phase))
		}
	}
}

func TestPrepareErrors(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		block      int
		in, out    int
		want       error
	}{
		{"ZeroRate", 0, 512, 2, 2, ErrInvalidSampleRate},
		{"NegativeRate", -48000, 512, 2, 2, ErrInvalidSampleRate},
		{"NaNRate", math.NaN(), 512, 2, 2, ErrInvalidSampleRate},
		{"InfRate", math.Inf(1), 512, 2, 2, ErrInvalidSampleRate},
		{"ZeroBlock", 48000, 0, 2, 2, ErrInvalidBlockSize},
		{"MonoToStereo", 48000, 512, 1, 2, ErrUnsupportedLayout},
		{"StereoToMono", 48000, 512, 2, 1, ErrUnsupportedLayout},
		{"Surround", 48000, 512, 6, 6, ErrUnsupportedLayout},
		{"NoChannels", 48000, 512, 0, 0, ErrUnsupportedLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(NewParameters(), testConfig(1))
			err := e.Prepare(tt.sampleRate, tt.block, tt.in, tt.out)
			if !errors.Is(err, tt.want) {
				t.Errorf("Prepare() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("Valid", func(t *testing.T) {
		e := New(NewParameters(), testConfig(1))
		for _, channels := range []int{1, 2} {
			if err := e.Prepare(44100, 256, channels, channels); err != nil {
				t.Errorf("%d channels: unexpected error %v", channels, err)
			}
		}
	})
}

func TestHistoryAllocation(t *testing.T) {
	e := New(NewParameters(), testConfig(1))
	if e.HistoryLen() != 0 {
		t.Error("History should not exist before Prepare")
	}

	for _, rate := range []float64{22050, 44100, 48000, 96000} {
		if err := e.Prepare(rate, testBlock, 2, 2); err != nil {
			t.Fatal(err)
		}
		if want := int(rate * 2); e.HistoryLen() != want {
			t.Errorf("%.0f Hz: history length %d, want %d", rate, e.HistoryLen(), want)
		}
		if e.SampleRate() != rate {
			t.Errorf("SampleRate() = %f, want %f", e.SampleRate(), rate)
		}
	}
}

func TestHistoryClearedOnPrepare(t *testing.T) {
	e, ctx := newTestEngine(t, nil, 1)
	for b := 0; b < 10; b++ {
		fillSine(ctx, b*testBlock, 440, 0.5)
		e.Process(ctx)
	}
	if e.history.WritePos() != 10*testBlock {
		t.Fatalf("write position %d, want %d", e.history.WritePos(), 10*testBlock)
	}

	if err := e.Prepare(testRate, testBlock, 2, 2); err != nil {
		t.Fatal(err)
	}
	if e.history.WritePos() != 0 {
		t.Error("Write position should rewind on Prepare")
	}
	for ch := 0; ch < e.history.Channels(); ch++ {
		for i := 0; i < e.history.Len(); i++ {
			if e.history.Read(ch, i) != 0 {
				t.Fatalf("history[%d][%d] = %f after Prepare", ch, i, e.history.Read(ch, i))
			}
		}
	}
	if s := e.Stats(); s.Active+s.Waiting != 0 || s.Spawned != 0 {
		t.Errorf("Stats should be cleared on Prepare, got %+v", s)
	}
}

func TestProcessBeforePrepare(t *testing.T) {
	e := New(NewParameters(), testConfig(1))
	ctx := process.NewContext(testRate, testBlock, 2)
	fillSine(ctx, 0, 440, 0.5)
	for ch := range ctx.Output {
		for i := range ctx.Output[ch] {
			ctx.Output[ch][i] = 1
		}
	}

	e.Process(ctx)
	for ch := range ctx.Output {
		for i, s := range ctx.Output[ch] {
			if s != 0 {
				t.Fatalf("output[%d][%d] = %f, want silence", ch, i, s)
			}
		}
	}
}

func TestDryPath(t *testing.T) {
	params := NewParameters()
	params.Mix.SetPlainValue(0)
	params.Gain.SetPlainValue(0.5)
	e, ctx := newTestEngine(t, params, 5)
	e.SetEffectsBypass(true)

	for b := 0; b < 50; b++ {
		fillSine(ctx, b*testBlock, 330, 0.8)
		e.Process(ctx)
		for ch := range ctx.Output {
			for i := range ctx.Output[ch] {
				want := ctx.Input[ch][i] * 0.5
				if diff := math.Abs(float64(ctx.Output[ch][i] - want)); diff > 1e-7 {
					t.Fatalf("block %d: output[%d][%d] = %f, want %f", b, ch, i, ctx.Output[ch][i], want)
				}
			}
		}
	}
	if e.Stats().Spawned == 0 {
		t.Error("Grains should still be scheduled with the mix at zero")
	}
}

func TestLongRunStaysWithinPool(t *testing.T) {
	params := NewParameters()
	params.Density.SetPlainValue(2)
	params.LifeMin.SetPlainValue(0.25)
	params.LifeMax.SetPlainValue(1)
	params.DelayProb.SetPlainValue(0.5)
	params.ReverseProb.SetPlainValue(0.3)
	params.PanSpeed.SetPlainValue(0.5)
	e, ctx := newTestEngine(t, params, 99)
	ctx.Transport = process.FixedTempo(120)

	blocks := int(10 * testRate / testBlock)
	for b := 0; b < blocks; b++ {
		fillSine(ctx, b*testBlock, 220, 0.5)
		e.Process(ctx)

		s := e.Stats()
		if s.Active+s.Waiting > DefaultPoolSize {
			t.Fatalf("block %d: %d active + %d waiting exceeds %d slots", b, s.Active, s.Waiting, DefaultPoolSize)
		}
		for ch := range ctx.Output {
			if issues := debug.CheckBuffer(ctx.Output[ch], "output", 4); len(issues) > 0 {
				t.Fatalf("block %d: %v", b, issues)
			}
		}
	}

	s := e.Stats()
	if s.Spawned == 0 || s.Completed == 0 {
		t.Errorf("Expected grains to spawn and complete, got %+v", s)
	}
	// Two grains per beat at 120 BPM for 10 s
	if s.Spawned < 35 || s.Spawned > 41 {
		t.Errorf("Spawned %d grains, want about 40", s.Spawned)
	}
	if s.Completed > s.Spawned {
		t.Errorf("Completed %d exceeds spawned %d", s.Completed, s.Spawned)
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	params := NewParameters()
	params.Density.SetPlainValue(8)
	params.GrainFilterProb.SetPlainValue(0.5)
	a, ctxA := newTestEngine(t, params, 1234)
	b, ctxB := newTestEngine(t, params, 1234)

	for n := 0; n < 100; n++ {
		fillSine(ctxA, n*testBlock, 180, 0.6)
		fillSine(ctxB, n*testBlock, 180, 0.6)
		a.Process(ctxA)
		b.Process(ctxB)
		for ch := range ctxA.Output {
			for i := range ctxA.Output[ch] {
				if ctxA.Output[ch][i] != ctxB.Output[ch][i] {
					t.Fatalf("block %d: engines diverged at [%d][%d]", n, ch, i)
				}
			}
		}
	}
	if a.Chord() != b.Chord() {
		t.Error("Chords drawn from the same seed should match")
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	params := NewParameters()
	params.Density.SetPlainValue(16)
	params.GrainFilterProb.SetPlainValue(1)
	params.LoopBeats.SetPlainValue(1)
	e, ctx := newTestEngine(t, params, 8)
	fillSine(ctx, 0, 440, 0.5)
	for i := 0; i < 20; i++ {
		e.Process(ctx)
	}
	e.RequestChord()

	allocs := testing.AllocsPerRun(100, func() {
		e.Process(ctx)
	})
	if allocs != 0 {
		t.Errorf("Process allocated %.1f times per block", allocs)
	}
}

func TestExtraOutputsCleared(t *testing.T) {
	e := New(NewParameters(), testConfig(2))
	if err := e.Prepare(testRate, 256, 1, 1); err != nil {
		t.Fatal(err)
	}

	ctx := &process.Context{
		Input:      process.NewBuffers(1, 256),
		Output:     process.NewBuffers(2, 256),
		SampleRate: testRate,
	}
	for i := range ctx.Output[1] {
		ctx.Input[0][i] = 0.25
		ctx.Output[1][i] = 1
	}

	e.Process(ctx)
	for i, s := range ctx.Output[1] {
		if s != 0 {
			t.Fatalf("output[1][%d] = %f, want 0", i, s)
		}
	}
	if ctx.Output[0][0] == 0 {
		t.Error("Mono output should carry the dry signal")
	}
}

func TestLongBlocksAreSplit(t *testing.T) {
	params := NewParameters()
	params.Mix.SetPlainValue(0)
	e := New(params, testConfig(3))
	if err := e.Prepare(testRate, 128, 2, 2); err != nil {
		t.Fatal(err)
	}
	e.SetEffectsBypass(true)

	ctx := process.NewContext(testRate, 1000, 2)
	fillSine(ctx, 0, 440, 0.5)
	e.Process(ctx)

	for ch := range ctx.Output {
		for i := range ctx.Output[ch] {
			if ctx.Output[ch][i] != ctx.Input[ch][i] {
				t.Fatalf("output[%d][%d] = %f, want %f", ch, i, ctx.Output[ch][i], ctx.Input[ch][i])
			}
		}
	}
	if e.history.WritePos() != 1000 {
		t.Errorf("history advanced %d samples, want 1000", e.history.WritePos())
	}
}

func TestInPlaceProcessing(t *testing.T) {
	params := NewParameters()
	params.Mix.SetPlainValue(0)
	params.Gain.SetPlainValue(2)
	e, ctx := newTestEngine(t, params, 4)
	e.SetEffectsBypass(true)

	fillSine(ctx, 0, 440, 0.25)
	want := ctx.Input[0][100] * 2
	ctx.Output = ctx.Input
	e.Process(ctx)
	if got := ctx.Output[0][100]; math.Abs(float64(got-want)) > 1e-7 {
		t.Errorf("in-place output = %f, want %f", got, want)
	}
}

func TestLevelMeters(t *testing.T) {
	e, ctx := newTestEngine(t, nil, 6)
	if e.InputLevel() != 0 || e.OutputLevel() != 0 {
		t.Fatal("Meters should start at zero")
	}

	for b := 0; b < 100; b++ {
		fillSine(ctx, b*testBlock, 440, 0.5)
		e.Process(ctx)
	}
	if level := e.InputLevel(); math.Abs(float64(level-0.5)) > 0.01 {
		t.Errorf("InputLevel() = %f, want about 0.5", level)
	}
	if e.OutputLevel() <= 0 {
		t.Error("OutputLevel() should follow the output")
	}
	if db := e.InputLevelDB(); math.Abs(db-(-6.02)) > 0.2 {
		t.Errorf("InputLevelDB() = %f, want about -6", db)
	}

	// Silence decays the meters
	ctx.Input = process.NewBuffers(2, testBlock)
	for b := 0; b < 200; b++ {
		e.Process(ctx)
	}
	if e.InputLevel() > 1e-6 {
		t.Errorf("InputLevel() = %g after silence", e.InputLevel())
	}
}

// toneMagnitude returns the amplitude of the component of x at freq.
func toneMagnitude(x []float32, freq, sampleRate float64) float64 {
	var re, im float64
	w := 2 * math.Pi * freq / sampleRate
	for n, s := range x {
		re += float64(s) * math.Cos(w*float64(n))
		im -= float64(s) * math.Sin(w*float64(n))
	}
	return 2 * math.Hypot(re, im) / float64(len(x))
}

func TestChordSource(t *testing.T) {
	params := NewParameters()
	params.Mix.SetPlainValue(0)
	params.InputSource.SetPlainValue(SourceChord)
	e, ctx := newTestEngine(t, params, 11)
	e.SetEffectsBypass(true)

	chord := Chord{220, 330, 440, 550, 660, 770}
	if err := e.SetChord(chord); err != nil {
		t.Fatal(err)
	}

	// Let the glide from the random chord settle
	for b := 0; b < 20; b++ {
		e.Process(ctx)
	}
	if e.Chord() != chord {
		t.Fatalf("Chord() = %v, want %v", e.Chord(), chord)
	}

	const blocks = 47
	left := make([]float32, 0, blocks*testBlock)
	for b := 0; b < blocks; b++ {
		e.Process(ctx)
		left = append(left, ctx.Output[0]...)
	}

	// Half a second holds a whole number of cycles of every voice
	left = left[:int(testRate/2)]
	for _, f := range chord {
		if mag := toneMagnitude(left, f, testRate); math.Abs(mag-chordAmplitude) > 0.01 {
			t.Errorf("%.0f Hz magnitude %f, want about %f", f, mag, chordAmplitude)
		}
	}
	if mag := toneMagnitude(left, 1000, testRate); mag > 0.01 {
		t.Errorf("1000 Hz magnitude %f, want near zero", mag)
	}
}

func TestRequestChord(t *testing.T) {
	e, ctx := newTestEngine(t, nil, 21)
	before := e.Chord()
	for i, f := range before {
		lo, hi := chordMinHz*(1+0.5*float64(i)), chordMaxHz*(1+0.5*float64(i))
		if f < lo || f >= hi {
			t.Errorf("voice %d = %f Hz outside [%f, %f)", i, f, lo, hi)
		}
	}

	e.RequestChord()
	if e.Chord() != before {
		t.Error("Chord should change on the audio thread, not in RequestChord")
	}
	e.Process(ctx)
	if e.Chord() == before {
		t.Error("Chord should change after the next block")
	}
}

func TestSetChordValidation(t *testing.T) {
	e := New(NewParameters(), testConfig(1))
	for _, bad := range []float64{0, -220, math.NaN(), math.Inf(1)} {
		c := Chord{220, 330, 440, 550, 660, 770}
		c[3] = bad
		if err := e.SetChord(c); !errors.Is(err, ErrInvalidChord) {
			t.Errorf("SetChord with %v: error = %v, want ErrInvalidChord", bad, err)
		}
	}
}

func TestEngineState(t *testing.T) {
	chord := Chord{110, 220, 330, 440, 550, 660}

	src, ctx := newTestEngine(t, nil, 31)
	if err := src.SetChord(chord); err != nil {
		t.Fatal(err)
	}
	src.Process(ctx)
	src.Parameters().Density.SetPlainValue(4)

	var buf bytes.Buffer
	manager := state.NewManager(src.Parameters().Registry)
	manager.SetCustom(src)
	if err := manager.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst, dstCtx := newTestEngine(t, nil, 32)
	manager = state.NewManager(dst.Parameters().Registry)
	manager.SetCustom(dst)
	if err := manager.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	dst.Process(dstCtx)

	if dst.Chord() != chord {
		t.Errorf("Chord() = %v, want %v", dst.Chord(), chord)
	}
	if got := dst.Parameters().Density.GetPlainValue(); math.Abs(got-4) > 1e-9 {
		t.Errorf("Density = %f, want 4", got)
	}

	t.Run("Truncated", func(t *testing.T) {
		if err := dst.LoadState(bytes.NewReader([]byte{1, 2, 3})); err == nil {
			t.Error("Expected error for truncated chord")
		}
	})
}

func TestEffectsBypassFlag(t *testing.T) {
	e, ctx := newTestEngine(t, nil, 1)
	e.SetEffectsBypass(true)
	if !e.EffectsBypassed() {
		t.Fatal("EffectsBypassed() should report the flag")
	}
	e.Process(ctx)
	if !e.fx.chain.IsBypassed() {
		t.Error("Chain bypass should follow the flag on the next block")
	}
	e.SetEffectsBypass(false)
	e.Process(ctx)
	if e.fx.chain.IsBypassed() {
		t.Error("Chain should be active again")
	}
}

func BenchmarkEngineProcess(b *testing.B) {
	params := NewParameters()
	params.Density.SetPlainValue(16)
	params.LifeMax.SetPlainValue(2)
	params.GrainFilterProb.SetPlainValue(1)
	e, ctx := newTestEngine(b, params, 1)
	fillSine(ctx, 0, 440, 0.5)
	for i := 0; i < 200; i++ {
		e.Process(ctx)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Process(ctx)
	}
}
