package granular

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/justyntemme/crystal/pkg/dsp/buffer"
)

func TestSchedulerTick(t *testing.T) {
	t.Run("Interval", func(t *testing.T) {
		var s scheduler
		for i := 1; i <= 12; i++ {
			if due := s.tick(4); due != (i%4 == 0) {
				t.Errorf("tick %d: due=%v", i, due)
			}
		}
	})

	t.Run("NonPositiveInterval", func(t *testing.T) {
		var s scheduler
		for _, interval := range []int{0, -1} {
			for i := 0; i < 1000; i++ {
				if s.tick(interval) {
					t.Fatalf("interval %d should never spawn", interval)
				}
			}
		}
	})

	t.Run("Reset", func(t *testing.T) {
		var s scheduler
		s.tick(10)
		s.tick(10)
		s.reset()
		for i := 1; i < 10; i++ {
			if s.tick(10) {
				t.Fatalf("spawned after %d ticks following reset", i)
			}
		}
		if !s.tick(10) {
			t.Error("Expected spawn on the tenth tick after reset")
		}
	})
}

func TestDivisionsUpTo(t *testing.T) {
	tests := []struct {
		beats float64
		want  int
	}{
		{0, 0},
		{0.2, 0},
		{0.25, 1},
		{0.3, 1},
		{1, 6},
		{2, 9},
		{16, 15},
		{100, 15},
	}
	for _, tt := range tests {
		if got := divisionsUpTo(tt.beats); got != tt.want {
			t.Errorf("divisionsUpTo(%g) = %d, want %d", tt.beats, got, tt.want)
		}
	}
}

func TestSettingsRead(t *testing.T) {
	p := NewParameters()
	p.LifeMin.SetPlainValue(1.5)
	p.LifeMax.SetPlainValue(0.5)
	p.PitchMin.SetPlainValue(3)
	p.PitchMax.SetPlainValue(-2)
	p.Density.SetPlainValue(0.25)
	p.Attack.SetPlainValue(50)

	var s spawnSettings
	s.read(p, testRate, 24000, DefaultPoolSize)

	if s.lifeMin > s.lifeMax || math.Abs(s.lifeMin-0.5) > 1e-9 || math.Abs(s.lifeMax-1.5) > 1e-9 {
		t.Errorf("Life range not swapped: [%g, %g]", s.lifeMin, s.lifeMax)
	}
	if s.pitchMin != -2 || s.pitchMax != 3 {
		t.Errorf("Pitch range not swapped: [%d, %d]", s.pitchMin, s.pitchMax)
	}
	if s.interval != 96000 {
		t.Errorf("interval = %d, want 96000", s.interval)
	}
	if s.attackSamples != 2400 {
		t.Errorf("attackSamples = %d, want 2400", s.attackSamples)
	}
	if want := float32(1 / math.Sqrt(6.4)); math.Abs(float64(s.amplitude-want)) > 1e-7 {
		t.Errorf("amplitude = %f, want %f", s.amplitude, want)
	}
}

func spawnTestSettings() spawnSettings {
	return spawnSettings{
		sampleRate:     testRate,
		samplesPerBeat: 24000,
		interval:       12000,
		lifeMin:        0.25,
		lifeMax:        1,
		pitchMin:       -2,
		pitchMax:       3,
		reverseProb:    0.5,
		loopMax:        2,
		delayProb:      0.5,
		delayMax:       1,
		filterProb:     0.5,
		filterRes:      2,
		panSpeed:       0.5,
		amplitude:      0.4,
	}
}

func TestSpawnInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	h := buffer.NewHistory(2, int(testRate*buffer.HistorySeconds))
	for i := 0; i < 777; i++ {
		h.Advance()
	}
	s := spawnTestSettings()

	var reversed, looping, waiting, filtered int
	const draws = 5000
	for n := 0; n < draws; n++ {
		var g Grain
		spawn(&g, &s, h, rng)

		if g.duration < int(s.lifeMin*s.samplesPerBeat) || g.duration > int(s.lifeMax*s.samplesPerBeat) {
			t.Fatalf("duration %d outside life range", g.duration)
		}
		if g.looping && g.loopDuration > g.duration {
			t.Fatalf("loop %d longer than grain %d", g.loopDuration, g.duration)
		}

		offset := h.Wrap(h.WritePos() - g.startSample)
		if offset < buffer.SafetyMargin || offset > int(testRate*maxSourceSeconds) {
			t.Fatalf("source offset %d outside [%d, %d]", offset, buffer.SafetyMargin, int(testRate*maxSourceSeconds))
		}

		octave := math.Log2(g.pitchRatio)
		if octave != math.Trunc(octave) || octave < -2 || octave > 3 {
			t.Fatalf("pitch ratio %g is not a power of two in range", g.pitchRatio)
		}

		if g.panStart < 0 || g.panStart >= 1 {
			t.Fatalf("pan start %g outside [0, 1)", g.panStart)
		}
		if math.Abs(math.Abs(g.panDrift)-s.panSpeed/s.sampleRate) > 1e-15 {
			t.Fatalf("pan drift %g, want magnitude %g", g.panDrift, s.panSpeed/s.sampleRate)
		}

		switch g.State {
		case GrainWaiting:
			waiting++
			beats := float64(g.delaySamples) / s.samplesPerBeat
			if beats <= 0 || beats > s.delayMax {
				t.Fatalf("delay %g beats outside (0, %g]", beats, s.delayMax)
			}
		case GrainActive:
		default:
			t.Fatalf("spawned grain is %v", g.State)
		}

		if g.filterActive {
			filtered++
			for _, f := range []float64{g.filterStart, g.filterEnd} {
				if f < filterMinHz || f >= filterMaxHz {
					t.Fatalf("filter endpoint %g outside [%g, %g)", f, filterMinHz, filterMaxHz)
				}
			}
			if g.filterRes != s.filterRes {
				t.Fatalf("filter resonance %g, want %g", g.filterRes, s.filterRes)
			}
		}
		if g.reversed {
			reversed++
		}
		if g.looping {
			looping++
		}
	}

	if looping != draws {
		t.Errorf("Every grain should loop with a 2 beat maximum, got %d/%d", looping, draws)
	}
	for name, count := range map[string]int{"reversed": reversed, "waiting": waiting, "filtered": filtered} {
		if frac := float64(count) / draws; frac < 0.45 || frac > 0.55 {
			t.Errorf("%s fraction %.3f, want about 0.5", name, frac)
		}
	}
}

func TestSpawnFallbacks(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	h := buffer.NewHistory(1, int(testRate*buffer.HistorySeconds))

	t.Run("LoopBelowDivisions", func(t *testing.T) {
		s := spawnTestSettings()
		s.loopMax = 0.1
		var g Grain
		spawn(&g, &s, h, rng)
		if !g.looping || g.loopDuration != int(0.1*s.samplesPerBeat) {
			t.Errorf("Expected raw 0.1 beat loop, got looping=%v length %d", g.looping, g.loopDuration)
		}
	})

	t.Run("LoopDisabled", func(t *testing.T) {
		s := spawnTestSettings()
		s.loopMax = 0.005
		var g Grain
		spawn(&g, &s, h, rng)
		if g.looping {
			t.Error("Loop maximum below 0.01 beats should disable looping")
		}
	})

	t.Run("DelayBelowDivisions", func(t *testing.T) {
		s := spawnTestSettings()
		s.delayProb = 1
		s.delayMax = 0.2
		for i := 0; i < 100; i++ {
			var g Grain
			spawn(&g, &s, h, rng)
			if g.State != GrainActive {
				t.Fatal("Without a division at or below the delay maximum the grain starts at once")
			}
		}
	})

	t.Run("TinyLife", func(t *testing.T) {
		s := spawnTestSettings()
		s.lifeMin, s.lifeMax = 0, 0
		var g Grain
		spawn(&g, &s, h, rng)
		if g.duration != 1 {
			t.Errorf("duration = %d, want at least 1", g.duration)
		}
	})

	t.Run("ClearsPreviousGrain", func(t *testing.T) {
		s := spawnTestSettings()
		s.filterProb = 0
		s.loopMax = 0
		g := Grain{filterActive: true, looping: true, currentSample: 99}
		spawn(&g, &s, h, rng)
		if g.filterActive || g.looping || g.currentSample != 0 {
			t.Error("spawn should start from a zero grain")
		}
	})
}

func TestPool(t *testing.T) {
	p := NewPool(4)
	if p.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", p.Len())
	}

	p.At(0).State = GrainActive
	p.At(1).State = GrainWaiting
	if g := p.FirstFree(); g != p.At(2) {
		t.Error("FirstFree should return the lowest free slot")
	}
	if active, waiting := p.Counts(); active != 1 || waiting != 1 {
		t.Errorf("Counts() = %d, %d, want 1, 1", active, waiting)
	}

	p.At(2).State = GrainActive
	p.At(3).State = GrainActive
	if p.FirstFree() != nil {
		t.Error("Full pool should have no free slot")
	}

	p.Reset()
	if active, waiting := p.Counts(); active != 0 || waiting != 0 {
		t.Error("Reset should free every slot")
	}
	if NewPool(0).Len() != 1 {
		t.Error("Pool size should be at least 1")
	}
}

func BenchmarkSpawn(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	h := buffer.NewHistory(2, int(testRate*buffer.HistorySeconds))
	s := spawnTestSettings()
	var g Grain

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		spawn(&g, &s, h, rng)
	}
}
