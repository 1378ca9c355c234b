package main

import (
	"fmt"
	"strings"

	"github.com/justyntemme/crystal/pkg/framework/param"
	"github.com/justyntemme/crystal/pkg/granular"
)

// controlStep is the normalized change applied per key press.
const controlStep = 0.05

// Keys
const (
	keyCtrlC = 3
	keyQuit  = 'q'
)

type binding struct {
	param *param.Parameter
	step  float64
}

// controls maps key presses to engine changes. Lower case lowers a
// parameter, upper case raises it.
type controls struct {
	engine   *granular.Engine
	params   *granular.Parameters
	bindings map[byte]binding
}

func newControls(engine *granular.Engine) *controls {
	p := engine.Parameters()
	c := &controls{
		engine:   engine,
		params:   p,
		bindings: make(map[byte]binding),
	}
	c.bind('d', p.Density)
	c.bind('l', p.LifeMax)
	c.bind('o', p.PitchMin)
	c.bind('p', p.PitchMax)
	c.bind('m', p.Mix)
	c.bind('g', p.Gain)
	c.bind('r', p.ReverseProb)
	c.bind('a', p.Attack)
	c.bind('e', p.Decay)
	c.bind('n', p.LoopBeats)
	c.bind('y', p.DelayProb)
	c.bind('h', p.HPFFreq)
	c.bind('f', p.GrainFilterProb)
	c.bind('z', p.GrainFilterRes)
	c.bind('w', p.PanSpeed)
	return c
}

func (c *controls) bind(key byte, p *param.Parameter) {
	c.bindings[key] = binding{param: p, step: -controlStep}
	c.bindings[key-'a'+'A'] = binding{param: p, step: controlStep}
}

// handle applies key and returns a message to show, or "" for none. It
// returns false when the key asks to quit.
func (c *controls) handle(key byte) (string, bool) {
	if b, ok := c.bindings[key]; ok {
		step := b.step
		if b.param.StepCount > 0 {
			step = step / controlStep / float64(b.param.StepCount)
		}
		b.param.SetValue(b.param.GetValue() + step)
		return fmt.Sprintf("%s %s", b.param.Name, b.param.String()), true
	}

	switch key {
	case keyQuit, keyCtrlC:
		return "", false
	case 'c':
		c.engine.RequestChord()
		return "new chord", true
	case 's':
		if c.params.InputSource.GetPlainValue() == granular.SourceChord {
			c.params.InputSource.SetPlainValue(granular.SourceLive)
		} else {
			c.params.InputSource.SetPlainValue(granular.SourceChord)
		}
		return "source " + c.params.InputSource.String(), true
	case 'b':
		bypass := !c.engine.EffectsBypassed()
		c.engine.SetEffectsBypass(bypass)
		if bypass {
			return "effects bypassed", true
		}
		return "effects on", true
	case '0':
		c.params.Registry.ResetAll()
		return "parameters reset", true
	case '?':
		return c.help(), true
	}
	return "", true
}

func (c *controls) help() string {
	var b strings.Builder
	for key := byte('a'); key <= 'z'; key++ {
		if bind, ok := c.bindings[key]; ok {
			fmt.Fprintf(&b, "%c/%c %s  ", key, key-'a'+'A', bind.param.Name)
		}
	}
	b.WriteString("c chord  s source  b bypass  0 reset  q quit")
	return b.String()
}
