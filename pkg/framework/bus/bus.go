// Package bus describes audio channel layouts and checks which ones the
// engine accepts.
package bus

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLayout is returned for channel layouts other than matching
// mono or stereo input and output.
var ErrUnsupportedLayout = errors.New("unsupported channel layout")

// MaxChannels is the widest supported layout.
const MaxChannels = 2

// Direction represents the bus direction
type Direction int32

const (
	// DirectionInput represents input bus
	DirectionInput Direction = 0
	// DirectionOutput represents output bus
	DirectionOutput Direction = 1
)

// String returns "in" or "out".
func (d Direction) String() string {
	if d == DirectionInput {
		return "in"
	}
	return "out"
}

// Info contains bus configuration
type Info struct {
	Direction    Direction
	ChannelCount int
	Name         string
}

// Configuration is the main input and output bus pair
type Configuration struct {
	Input  Info
	Output Info
}

// NewStereoConfiguration creates a standard stereo I/O configuration
func NewStereoConfiguration() *Configuration {
	return &Configuration{
		Input:  Info{Direction: DirectionInput, ChannelCount: 2, Name: "Stereo In"},
		Output: Info{Direction: DirectionOutput, ChannelCount: 2, Name: "Stereo Out"},
	}
}

// NewMonoConfiguration creates a mono I/O configuration
func NewMonoConfiguration() *Configuration {
	return &Configuration{
		Input:  Info{Direction: DirectionInput, ChannelCount: 1, Name: "Mono In"},
		Output: Info{Direction: DirectionOutput, ChannelCount: 1, Name: "Mono Out"},
	}
}

// ForChannels returns the configuration for a channel count.
func ForChannels(channels int) (*Configuration, error) {
	switch channels {
	case 1:
		return NewMonoConfiguration(), nil
	case 2:
		return NewStereoConfiguration(), nil
	}
	return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, channels)
}

// Validate checks an input/output channel pair: both mono or both stereo.
func Validate(inputChannels, outputChannels int) (*Configuration, error) {
	if inputChannels != outputChannels {
		return nil, fmt.Errorf("%w: %d in, %d out", ErrUnsupportedLayout, inputChannels, outputChannels)
	}
	return ForChannels(inputChannels)
}

// Channels returns the channel count shared by input and output.
func (c *Configuration) Channels() int {
	return c.Output.ChannelCount
}

// String returns a short description such as "Stereo In -> Stereo Out".
func (c *Configuration) String() string {
	return c.Input.Name + " -> " + c.Output.Name
}
