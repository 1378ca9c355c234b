package param

import (
	"fmt"
	"strings"
)

// ChoiceOption represents a single choice in a list parameter
type ChoiceOption struct {
	Value   float64
	Name    string
	Aliases []string
}

// Choice creates a parameter builder for a multiple choice parameter.
// Option values must be consecutive integers starting at the first value.
func Choice(id uint32, name string, options []ChoiceOption) *Builder {
	formatter := func(value float64) string {
		for _, opt := range options {
			if opt.Value == value {
				return opt.Name
			}
		}
		return "Unknown"
	}

	parser := func(str string) (float64, error) {
		str = strings.TrimSpace(str)
		for _, opt := range options {
			if strings.EqualFold(str, opt.Name) {
				return opt.Value, nil
			}
			for _, alias := range opt.Aliases {
				if strings.EqualFold(str, alias) {
					return opt.Value, nil
				}
			}
		}
		return 0, fmt.Errorf("unknown option: %s", str)
	}

	minVal, maxVal := 0.0, 0.0
	if len(options) > 0 {
		minVal = options[0].Value
		maxVal = options[len(options)-1].Value
	}

	b := New(id, name).
		Range(minVal, maxVal).
		Steps(int32(len(options) - 1)).
		Formatter(formatter, parser)
	b.param.Flags |= IsList
	if len(options) > 0 {
		b.Default(options[0].Value)
	}
	return b
}

// IntegerParameter creates a stepped parameter over whole numbers
func IntegerParameter(id uint32, name string, min, max, defaultVal int) *Builder {
	return New(id, name).
		Range(float64(min), float64(max)).
		Steps(int32(max - min)).
		Default(float64(defaultVal))
}

// OctaveParameter creates a whole-octave transposition parameter
func OctaveParameter(id uint32, name string, min, max, defaultVal int) *Builder {
	return IntegerParameter(id, name, min, max, defaultVal).
		Unit("oct").
		Formatter(OctaveFormatter, OctaveParser)
}

// GainParameter creates a linear gain multiplier parameter (0 to max)
func GainParameter(id uint32, name string, max, defaultVal float64) *Builder {
	return New(id, name).
		Range(0, max).
		Default(defaultVal).
		Formatter(LinearGainFormatter, LinearGainParser)
}

// ProbabilityParameter creates a 0-1 parameter shown as a percentage
func ProbabilityParameter(id uint32, name string, defaultVal float64) *Builder {
	return New(id, name).
		Range(0, 1).
		Default(defaultVal).
		Unit("%").
		Formatter(FractionPercentFormatter, FractionPercentParser)
}

// FrequencyParameter creates a standard frequency parameter
func FrequencyParameter(id uint32, name string, min, max, defaultVal float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(defaultVal).
		Unit("Hz").
		Formatter(FrequencyFormatter, FrequencyParser)
}

// TimeParameter creates a time parameter (ms or s depending on range)
func TimeParameter(id uint32, name string, minMs, maxMs, defaultMs float64) *Builder {
	return New(id, name).
		Range(minMs, maxMs).
		Default(defaultMs).
		Unit("ms").
		Formatter(TimeFormatter, TimeParser)
}

// BeatsParameter creates a musical duration parameter measured in beats
func BeatsParameter(id uint32, name string, min, max, defaultVal float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(defaultVal).
		Unit("beats").
		Formatter(BeatsFormatter, BeatsParser)
}

// ResonanceParameter creates a filter resonance (Q) parameter
func ResonanceParameter(id uint32, name string, minQ, maxQ, defaultQ float64) *Builder {
	return New(id, name).
		Range(minQ, maxQ).
		Default(defaultQ).
		Formatter(func(v float64) string {
			return fmt.Sprintf("Q %.2f", v)
		}, func(s string) (float64, error) {
			s = strings.TrimSpace(strings.ToLower(s))
			s = strings.TrimPrefix(s, "q")
			return parseFloat(strings.TrimSpace(s))
		})
}

// RateParameter creates a rate parameter (per-second or Hz)
func RateParameter(id uint32, name string, min, max, defaultVal float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(defaultVal).
		Formatter(func(v float64) string {
			return fmt.Sprintf("%.2f /s", v)
		}, func(s string) (float64, error) {
			s = strings.TrimSuffix(strings.TrimSpace(s), "/s")
			return parseFloat(strings.TrimSpace(s))
		})
}

// Helper function to parse float with error handling
func parseFloat(s string) (float64, error) {
	var value float64
	_, err := fmt.Sscanf(s, "%f", &value)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return value, nil
}
