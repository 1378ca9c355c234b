package granular

import (
	"math/rand/v2"

	"github.com/justyntemme/crystal/pkg/dsp"
	"github.com/justyntemme/crystal/pkg/dsp/filter"
	"github.com/justyntemme/crystal/pkg/dsp/modulation"
	"github.com/justyntemme/crystal/pkg/dsp/reverb"
	fx "github.com/justyntemme/crystal/pkg/framework/dsp"
	"github.com/justyntemme/crystal/pkg/framework/param"
)

// Effects chain settings
const (
	reverbDamping   = 0.2
	reverbWet       = 0.3
	reverbDry       = 1.0
	reverbWidth     = 0.1
	reverbRoomStart = 0.5
	reverbRoomMin   = 0.4
	reverbRoomMax   = 0.95
	reverbDriftOdds = 0.05 // chance per block of a new room target
	phaserRate      = 0.5
	phaserDepth     = 0.5
	phaserMix       = 0.5
	phaserCenter    = 1000.0
	phaserFeedback  = 0.5
	phaserCenterMin = 400.0
	phaserCenterMax = 3000.0
	phaserFeedMax   = 0.7
	phaserDriftOdds = 0.1 // chance per block of new phaser targets
	stageHighpass   = "highpass"
	stageReverb     = "reverb"
	stagePhaser     = "phaser"
)

// effects is the post-mix chain: resonant highpass, reverb, phaser. The
// reverb room and the phaser wander randomly; their smoothers advance by
// the block length so ramps are measured in audio time.
type effects struct {
	sampleRate float64

	highpass *filter.Biquad
	reverb   *reverb.Freeverb
	phaser   *modulation.Phaser
	chain    *fx.Chain

	cutoff   param.Smoother
	room     param.Smoother
	center   param.Smoother
	feedback param.Smoother
}

func newEffects(sampleRate float64, channels int, smoothing, cutoff float64) *effects {
	e := &effects{
		sampleRate: sampleRate,
		highpass:   filter.NewBiquad(channels),
		reverb:     reverb.NewFreeverb(sampleRate),
		phaser:     modulation.NewPhaser(sampleRate, channels),
	}

	e.reverb.SetDamping(reverbDamping)
	e.reverb.SetWetLevel(reverbWet)
	e.reverb.SetDryLevel(reverbDry)
	e.reverb.SetWidth(reverbWidth)

	e.phaser.SetRate(phaserRate)
	e.phaser.SetDepth(phaserDepth)
	e.phaser.SetMix(phaserMix)

	chain, err := fx.NewBuilder("effects").
		With(stageHighpass, e.highpass).
		With(stageReverb, e.reverb).
		With(stagePhaser, e.phaser).
		Build()
	if err != nil {
		// Stage names are fixed and processors are non-nil
		panic(err)
	}
	e.chain = chain

	for _, s := range []*param.Smoother{&e.cutoff, &e.room, &e.center, &e.feedback} {
		s.Reset(sampleRate, smoothing)
	}
	e.cutoff.SetCurrentAndTarget(cutoff)
	e.room.SetCurrentAndTarget(reverbRoomStart)
	e.center.SetCurrentAndTarget(phaserCenter)
	e.feedback.SetCurrentAndTarget(phaserFeedback)
	e.apply()
	return e
}

// apply pushes the current smoothed values into the processors.
func (e *effects) apply() {
	e.highpass.SetHighpass(e.sampleRate, e.cutoff.Current(), dsp.DefaultQ)
	e.reverb.SetRoomSize(e.room.Current())
	e.phaser.SetCenterFrequency(e.center.Current())
	e.phaser.SetFeedback(e.feedback.Current())
}

// update draws new random targets, advances the smoothers by n samples
// and reconfigures the processors.
func (e *effects) update(n int, cutoff float64, rng *rand.Rand) {
	e.cutoff.SetTarget(cutoff)

	if rng.Float64() < reverbDriftOdds {
		e.room.SetTarget(uniform(rng, reverbRoomMin, reverbRoomMax))
	}
	if rng.Float64() < phaserDriftOdds {
		e.center.SetTarget(uniform(rng, phaserCenterMin, phaserCenterMax))
		e.feedback.SetTarget(rng.Float64() * phaserFeedMax)
	}

	e.cutoff.Skip(n)
	e.room.Skip(n)
	e.center.Skip(n)
	e.feedback.Skip(n)
	e.apply()
}

// process runs the chain over one block in place.
func (e *effects) process(buffers [][]float32) {
	e.chain.ProcessMulti(buffers)
}

func (e *effects) reset() {
	e.chain.Reset()
}
