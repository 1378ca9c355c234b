package granular

import (
	"math"
	"math/rand/v2"

	"github.com/justyntemme/crystal/pkg/dsp/buffer"
)

// divisions are the beat fractions loops and start delays snap to, ascending.
var divisions = [...]float64{0.25, 0.333, 0.5, 0.666, 0.75, 1, 1.25, 1.5, 2, 3, 4, 6, 8, 12, 16}

const (
	// minDensity keeps the spawn interval finite.
	minDensity = 0.01
	// minBeats is the smallest loop or delay setting treated as enabled.
	minBeats = 0.01
	// maxSourceSeconds is the furthest back a grain may start reading.
	maxSourceSeconds = 1.5
	// filterMinHz and filterMaxHz bound the random per-grain cutoff sweep.
	filterMinHz = 100.0
	filterMaxHz = 8000.0
)

// divisionsUpTo returns how many divisions are at most beats.
func divisionsUpTo(beats float64) int {
	n := 0
	for n < len(divisions) && divisions[n] <= beats {
		n++
	}
	return n
}

// spawnSettings is the per-block snapshot of everything a spawn draws from.
type spawnSettings struct {
	sampleRate     float64
	samplesPerBeat float64
	interval       int

	lifeMin, lifeMax   float64
	pitchMin, pitchMax int
	reverseProb        float64
	attackSamples      int
	decaySamples       int
	loopMax            float64
	delayProb          float64
	delayMax           float64
	filterProb         float64
	filterRes          float64
	panSpeed           float64
	amplitude          float32
}

// read fills the snapshot from the parameters. Inverted ranges are swapped.
func (s *spawnSettings) read(p *Parameters, sampleRate, samplesPerBeat float64, poolSize int) {
	s.sampleRate = sampleRate
	s.samplesPerBeat = samplesPerBeat
	s.interval = int(samplesPerBeat / math.Max(p.Density.GetPlainValue(), minDensity))

	s.lifeMin = p.LifeMin.GetPlainValue()
	s.lifeMax = p.LifeMax.GetPlainValue()
	if s.lifeMin > s.lifeMax {
		s.lifeMin, s.lifeMax = s.lifeMax, s.lifeMin
	}

	s.pitchMin = int(math.Round(p.PitchMin.GetPlainValue()))
	s.pitchMax = int(math.Round(p.PitchMax.GetPlainValue()))
	if s.pitchMin > s.pitchMax {
		s.pitchMin, s.pitchMax = s.pitchMax, s.pitchMin
	}

	s.reverseProb = p.ReverseProb.GetPlainValue()
	s.attackSamples = int(sampleRate * p.Attack.GetPlainValue() / 1000)
	s.decaySamples = int(sampleRate * p.Decay.GetPlainValue() / 1000)
	s.loopMax = p.LoopBeats.GetPlainValue()
	s.delayProb = p.DelayProb.GetPlainValue()
	s.delayMax = p.DelayMax.GetPlainValue()
	s.filterProb = p.GrainFilterProb.GetPlainValue()
	s.filterRes = p.GrainFilterRes.GetPlainValue()
	s.panSpeed = p.PanSpeed.GetPlainValue()
	s.amplitude = float32(1 / math.Sqrt(float64(poolSize)*0.1))
}

// scheduler decides once per sample whether a grain is due.
type scheduler struct {
	counter int
}

// tick advances the clock one sample and reports whether a spawn is due.
// A non-positive interval never spawns.
func (s *scheduler) tick(interval int) bool {
	s.counter++
	if interval <= 0 || s.counter < interval {
		return false
	}
	s.counter = 0
	return true
}

func (s *scheduler) reset() {
	s.counter = 0
}

// uniform returns a float in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// uniformInt returns an int in [lo, hi].
func uniformInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// spawn populates a free grain from the settings and the random source.
func spawn(g *Grain, s *spawnSettings, h *buffer.History, rng *rand.Rand) {
	*g = Grain{}

	g.duration = max(int(s.samplesPerBeat*uniform(rng, s.lifeMin, s.lifeMax)), 1)
	g.attackSamples = s.attackSamples
	g.decaySamples = s.decaySamples
	g.reversed = rng.Float64() < s.reverseProb

	if s.loopMax > minBeats {
		div := s.loopMax
		if n := divisionsUpTo(s.loopMax); n > 0 {
			div = divisions[rng.IntN(n)]
		}
		g.looping = true
		g.loopDuration = min(int(s.samplesPerBeat*div), g.duration)
	}

	maxOffset := min(int(s.sampleRate*maxSourceSeconds), h.Len()-1)
	offset := uniformInt(rng, buffer.SafetyMargin, maxOffset)
	g.startSample = h.Wrap(h.WritePos() - offset)

	g.pitchRatio = math.Exp2(float64(uniformInt(rng, s.pitchMin, s.pitchMax)))
	g.amplitude = s.amplitude

	g.panStart = rng.Float64()
	direction := -1.0
	if rng.Float64() > 0.5 {
		direction = 1.0
	}
	g.panDrift = direction * s.panSpeed / s.sampleRate

	g.State = GrainActive
	if rng.Float64() < s.delayProb && s.delayMax > minBeats {
		if n := divisionsUpTo(s.delayMax); n > 0 {
			g.delaySamples = int(s.samplesPerBeat * divisions[rng.IntN(n)])
			g.State = GrainWaiting
		}
	}

	if rng.Float64() < s.filterProb {
		g.filterActive = true
		g.filterStart = uniform(rng, filterMinHz, filterMaxHz)
		g.filterEnd = uniform(rng, filterMinHz, filterMaxHz)
		g.filterRes = s.filterRes
	}
}
