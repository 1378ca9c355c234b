// Package param provides the lock-free parameter store the engine reads on
// the audio thread, plus the linear smoother used to de-zipper control changes.
package param

// Smoother ramps linearly from its current value to a target over a fixed
// number of samples. Changing the target mid-ramp restarts the full ramp
// from wherever the value is now. The zero value holds 0 and never ramps
// until Reset gives it a ramp length.
type Smoother struct {
	current    float64
	target     float64
	step       float64
	rampLength int
	countdown  int
}

// NewSmoother creates a smoother whose ramps last the given number of seconds.
func NewSmoother(sampleRate, seconds float64) *Smoother {
	s := &Smoother{}
	s.Reset(sampleRate, seconds)
	return s
}

// Reset sets the ramp length and jumps to the current target.
func (s *Smoother) Reset(sampleRate, seconds float64) {
	s.rampLength = int(sampleRate * seconds)
	if s.rampLength < 0 {
		s.rampLength = 0
	}
	s.SetCurrentAndTarget(s.target)
}

// SetCurrentAndTarget jumps to value without ramping.
func (s *Smoother) SetCurrentAndTarget(value float64) {
	s.current = value
	s.target = value
	s.step = 0
	s.countdown = 0
}

// SetTarget starts a ramp toward target. Setting the same target again is a no-op.
func (s *Smoother) SetTarget(target float64) {
	if target == s.target {
		return
	}
	if s.rampLength <= 0 {
		s.SetCurrentAndTarget(target)
		return
	}
	s.target = target
	s.countdown = s.rampLength
	s.step = (s.target - s.current) / float64(s.countdown)
}

// Next advances one sample and returns the new value.
func (s *Smoother) Next() float64 {
	if s.countdown <= 0 {
		return s.target
	}
	s.countdown--
	if s.countdown == 0 {
		s.current = s.target
	} else {
		s.current += s.step
	}
	return s.current
}

// Skip advances n samples at once and returns the new value. Block-rate
// users call it with the block length so ramps are measured in audio time.
func (s *Smoother) Skip(n int) float64 {
	if n <= 0 {
		return s.current
	}
	if n >= s.countdown {
		s.SetCurrentAndTarget(s.target)
		return s.current
	}
	s.countdown -= n
	s.current += s.step * float64(n)
	return s.current
}

// Current returns the value without advancing.
func (s *Smoother) Current() float64 {
	return s.current
}

// Target returns the value being ramped toward.
func (s *Smoother) Target() float64 {
	return s.target
}

// IsSmoothing reports whether a ramp is in progress.
func (s *Smoother) IsSmoothing() bool {
	return s.countdown > 0
}

// RampLength returns the ramp length in samples.
func (s *Smoother) RampLength() int {
	return s.rampLength
}
