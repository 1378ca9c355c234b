package granular

import (
	"github.com/justyntemme/crystal/pkg/framework/param"
)

// Parameter IDs
const (
	ParamDensity uint32 = iota
	ParamLifeMin
	ParamLifeMax
	ParamPitchMin
	ParamPitchMax
	ParamMix
	ParamGain
	ParamReverseProb
	ParamAttack
	ParamDecay
	ParamLoopBeats
	ParamDelayProb
	ParamDelayMax
	ParamInputSource
	ParamHPFFreq
	ParamGrainFilterProb
	ParamGrainFilterRes
	ParamPanSpeed
)

// Input sources
const (
	SourceLive  = 0
	SourceChord = 1
)

// Parameters holds the engine controls. The typed fields point into
// Registry so the audio thread reads them without map lookups.
type Parameters struct {
	Registry *param.Registry

	Density         *param.Parameter
	LifeMin         *param.Parameter
	LifeMax         *param.Parameter
	PitchMin        *param.Parameter
	PitchMax        *param.Parameter
	Mix             *param.Parameter
	Gain            *param.Parameter
	ReverseProb     *param.Parameter
	Attack          *param.Parameter
	Decay           *param.Parameter
	LoopBeats       *param.Parameter
	DelayProb       *param.Parameter
	DelayMax        *param.Parameter
	InputSource     *param.Parameter
	HPFFreq         *param.Parameter
	GrainFilterProb *param.Parameter
	GrainFilterRes  *param.Parameter
	PanSpeed        *param.Parameter
}

// NewParameters builds the engine parameter set with its default values.
func NewParameters() *Parameters {
	p := &Parameters{
		Density: param.New(ParamDensity, "Density").Key("DENSITY").
			ShortName("Dens").
			Range(0.25, 16).Default(2).Unit("grains/beat").
			Build(),
		LifeMin: param.BeatsParameter(ParamLifeMin, "Min Life", 0.0625, 2, 0.25).
			Key("LIFE_MIN").Build(),
		LifeMax: param.BeatsParameter(ParamLifeMax, "Max Life", 0.0625, 2, 1).
			Key("LIFE_MAX").Build(),
		PitchMin: param.OctaveParameter(ParamPitchMin, "Min Pitch", -4, 4, 0).
			Key("PITCH_MIN").Build(),
		PitchMax: param.OctaveParameter(ParamPitchMax, "Max Pitch", -4, 4, 0).
			Key("PITCH_MAX").Build(),
		Mix: param.ProbabilityParameter(ParamMix, "Mix", 0.5).
			Key("MIX").Build(),
		Gain: param.GainParameter(ParamGain, "Gain", 4, 1).
			Key("GAIN").Build(),
		ReverseProb: param.ProbabilityParameter(ParamReverseProb, "Reverse Prob", 0).
			Key("REVERSE_PROB").Build(),
		Attack: param.TimeParameter(ParamAttack, "Envelope Attack", 0, 100, 10).
			Key("ATTACK").Build(),
		Decay: param.TimeParameter(ParamDecay, "Envelope Decay", 0, 100, 10).
			Key("DECAY").Build(),
		LoopBeats: param.BeatsParameter(ParamLoopBeats, "Max Loop", 0, 8, 0.25).
			Key("LOOP_BEATS").Build(),
		DelayProb: param.ProbabilityParameter(ParamDelayProb, "Delay Prob", 0).
			Key("DELAY_PROB").Build(),
		DelayMax: param.BeatsParameter(ParamDelayMax, "Max Delay", 0, 2, 0.5).
			Key("DELAY_MAX").Build(),
		InputSource: param.Choice(ParamInputSource, "Input Source", []param.ChoiceOption{
			{Value: SourceLive, Name: "Live", Aliases: []string{"input", "in"}},
			{Value: SourceChord, Name: "Chord", Aliases: []string{"sine", "sines"}},
		}).Key("INPUT_SOURCE").Build(),
		HPFFreq: param.FrequencyParameter(ParamHPFFreq, "HPF Freq", 20, 5000, 20).
			Key("HPF_FREQ").Build(),
		GrainFilterProb: param.ProbabilityParameter(ParamGrainFilterProb, "Grain Filter Prob", 0.5).
			Key("GRAIN_FILTER_DEPTH").ShortName("Grn Filt").Build(),
		GrainFilterRes: param.ResonanceParameter(ParamGrainFilterRes, "Grain Filter Res", 0.1, 5, 1).
			Key("GRAIN_FILTER_RES").ShortName("Grn Res").Build(),
		PanSpeed: param.RateParameter(ParamPanSpeed, "Pan Speed", 0, 1, 0).
			Key("PAN_SPEED").Build(),
	}

	p.Registry = param.NewRegistry()
	// Keys and IDs above are unique
	if err := p.Registry.Add(p.all()...); err != nil {
		panic(err)
	}
	return p
}

func (p *Parameters) all() []*param.Parameter {
	return []*param.Parameter{
		p.Density, p.LifeMin, p.LifeMax, p.PitchMin, p.PitchMax,
		p.Mix, p.Gain, p.ReverseProb, p.Attack, p.Decay,
		p.LoopBeats, p.DelayProb, p.DelayMax, p.InputSource,
		p.HPFFreq, p.GrainFilterProb, p.GrainFilterRes, p.PanSpeed,
	}
}

// Set applies a "key=value" assignment such as "hpf_freq=1.2kHz".
func (p *Parameters) Set(assignment string) error {
	return p.Registry.Set(assignment)
}
