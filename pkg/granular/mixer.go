package granular

import (
	"github.com/justyntemme/crystal/pkg/dsp"
	"github.com/justyntemme/crystal/pkg/framework/param"
)

// mixer blends the dry signal with the grains, applies gain and soft clips.
// Mix and gain ramp once per sample, shared by all channels.
type mixer struct {
	mix  param.Smoother
	gain param.Smoother
}

func (m *mixer) reset(sampleRate, seconds, mix, gain float64) {
	m.mix.Reset(sampleRate, seconds)
	m.gain.Reset(sampleRate, seconds)
	m.mix.SetCurrentAndTarget(mix)
	m.gain.SetCurrentAndTarget(gain)
}

func (m *mixer) setTargets(mix, gain float64) {
	m.mix.SetTarget(mix)
	m.gain.SetTarget(gain)
}

// next advances both ramps one sample and returns the dry, wet and output gains.
func (m *mixer) next() (dry, wet, gain float32) {
	mix := float32(m.mix.Next())
	return 1 - mix, mix, float32(m.gain.Next())
}

// mixSample combines one dry and one grain sample.
func mixSample(in, grains, dry, wet, gain float32) float32 {
	return dsp.Saturate((in*dry + grains*wet) * gain)
}
