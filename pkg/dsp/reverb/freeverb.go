package reverb

import (
	"math"
)

// Freeverb tuning constants (scaled for 44.1kHz)
const (
	numCombs     = 8
	numAllpasses = 4
	muted        = 0.0
	fixedGain    = 0.015
	scaleDamping = 0.4
	scaleRoom    = 0.28
	offsetRoom   = 0.7
	initialRoom  = 0.5
	initialDamp  = 0.5
	initialWet   = 1.0 / 3.0
	initialDry   = 0.0
	initialWidth = 1.0
	stereoSpread = 23
)

// Comb filter tuning values (in samples at 44.1kHz)
var combTuning = [numCombs]int{
	1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617,
}

// Allpass filter tuning values (in samples at 44.1kHz)
var allpassTuning = [numAllpasses]int{
	556, 441, 341, 225,
}

// Freeverb implements the Freeverb reverb algorithm by Jezar at Dreampoint
type Freeverb struct {
	// Comb filters for left and right channels
	combL [numCombs]*CombFilter
	combR [numCombs]*CombFilter

	// Allpass filters for left and right channels
	allpassL [numAllpasses]*AllPassFilter
	allpassR [numAllpasses]*AllPassFilter

	// Parameters
	gain       float64
	roomSize   float64
	damping    float64
	wetLevel   float64
	dryLevel   float64
	width      float64
	sampleRate float64

	// Cached values
	wet1  float64
	wet2  float64
	dry   float64
	damp1 float64
	damp2 float64
}

// NewFreeverb creates a new Freeverb reverb instance
func NewFreeverb(sampleRate float64) *Freeverb {
	f := &Freeverb{
		gain:       fixedGain,
		roomSize:   initialRoom,
		damping:    initialDamp,
		wetLevel:   initialWet,
		dryLevel:   initialDry,
		width:      initialWidth,
		sampleRate: sampleRate,
	}

	// Scale factor for different sample rates
	scaleFactor := sampleRate / 44100.0

	// Create comb filters with scaled delay times
	for i := 0; i < numCombs; i++ {
		delaySamplesL := int(float64(combTuning[i]) * scaleFactor)
		delaySamplesR := int(float64(combTuning[i]+stereoSpread) * scaleFactor)

		f.combL[i] = NewCombFilter(delaySamplesL)
		f.combR[i] = NewCombFilter(delaySamplesR)
	}

	// Create allpass filters with scaled delay times
	for i := 0; i < numAllpasses; i++ {
		delaySamplesL := int(float64(allpassTuning[i]) * scaleFactor)
		delaySamplesR := int(float64(allpassTuning[i]+stereoSpread) * scaleFactor)

		f.allpassL[i] = NewAllPassFilter(delaySamplesL)
		f.allpassR[i] = NewAllPassFilter(delaySamplesR)

		// Allpass filters use fixed feedback
		f.allpassL[i].SetFeedback(0.5)
		f.allpassR[i].SetFeedback(0.5)
	}

	// Initialize internal parameters
	f.update()

	return f
}

// SetRoomSize sets the room size (0-1)
func (f *Freeverb) SetRoomSize(size float64) {
	f.roomSize = math.Max(0.0, math.Min(1.0, size))
	f.update()
}

// SetDamping sets the damping amount (0-1)
func (f *Freeverb) SetDamping(damping float64) {
	f.damping = math.Max(0.0, math.Min(1.0, damping))
	f.update()
}

// SetWetLevel sets the wet signal level (0-1)
func (f *Freeverb) SetWetLevel(level float64) {
	f.wetLevel = math.Max(0.0, math.Min(1.0, level))
	f.update()
}

// SetDryLevel sets the dry signal level (0-1)
func (f *Freeverb) SetDryLevel(level float64) {
	f.dryLevel = math.Max(0.0, math.Min(1.0, level))
	f.update()
}

// RoomSize returns the current room size
func (f *Freeverb) RoomSize() float64 {
	return f.roomSize
}

// SetWidth sets the stereo width (0-1)
func (f *Freeverb) SetWidth(width float64) {
	f.width = math.Max(0.0, math.Min(1.0, width))
	f.update()
}

// update recalculates internal values after parameter changes
func (f *Freeverb) update() {
	// Calculate wet signal levels based on width
	f.wet1 = f.wetLevel * (f.width/2.0 + 0.5)
	f.wet2 = f.wetLevel * ((1.0 - f.width) / 2.0)

	// Set dry level
	f.dry = f.dryLevel

	// Calculate feedback and damping values
	feedback := f.roomSize*scaleRoom + offsetRoom
	f.damp1 = f.damping * scaleDamping
	f.damp2 = 1.0 - f.damp1

	// Update comb filters
	for i := 0; i < numCombs; i++ {
		f.combL[i].SetFeedback(feedback)
		f.combR[i].SetFeedback(feedback)
		f.combL[i].SetDamping(f.damp1)
		f.combR[i].SetDamping(f.damp1)
	}
}

// ProcessStereo processes stereo input through the reverb
func (f *Freeverb) ProcessStereo(inputL, inputR float32) (outputL, outputR float32) {
	// Mix input to mono for reverb processing
	input := (inputL + inputR) * float32(f.gain)

	// Initialize output accumulators
	var outL, outR float32

	// Process through parallel comb filters
	for i := 0; i < numCombs; i++ {
		outL += f.combL[i].Process(input)
		outR += f.combR[i].Process(input)
	}

	// Process through series allpass filters
	for i := 0; i < numAllpasses; i++ {
		outL = f.allpassL[i].Process(outL)
		outR = f.allpassR[i].Process(outR)
	}

	// Apply wet/dry mix and width
	outputL = outL*float32(f.wet1) + outR*float32(f.wet2) + inputL*float32(f.dry)
	outputR = outR*float32(f.wet1) + outL*float32(f.wet2) + inputR*float32(f.dry)

	return outputL, outputR
}

// Process processes a mono input sample through the left network only
func (f *Freeverb) Process(input float32) float32 {
	in := input * float32(f.gain)

	var out float32
	for i := 0; i < numCombs; i++ {
		out += f.combL[i].Process(in)
	}
	for i := 0; i < numAllpasses; i++ {
		out = f.allpassL[i].Process(out)
	}

	return out*float32(f.wet1) + input*float32(f.dry)
}

// ProcessMulti processes a block in place. One channel runs the mono path,
// two or more run the stereo path on the first pair and leave the rest dry.
func (f *Freeverb) ProcessMulti(buffers [][]float32) {
	switch {
	case len(buffers) == 1:
		buf := buffers[0]
		for i := range buf {
			buf[i] = f.Process(buf[i])
		}
	case len(buffers) >= 2:
		left, right := buffers[0], buffers[1]
		n := len(left)
		if len(right) < n {
			n = len(right)
		}
		for i := 0; i < n; i++ {
			left[i], right[i] = f.ProcessStereo(left[i], right[i])
		}
	}
}

// Reset clears all internal state
func (f *Freeverb) Reset() {
	// Reset all comb filters
	for i := 0; i < numCombs; i++ {
		f.combL[i].Reset()
		f.combR[i].Reset()
	}

	// Reset all allpass filters
	for i := 0; i < numAllpasses; i++ {
		f.allpassL[i].Reset()
		f.allpassR[i].Reset()
	}
}
