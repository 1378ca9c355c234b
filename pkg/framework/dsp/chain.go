// Package dsp chains multi-channel processors into an effects path.
package dsp

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Processor processes every channel of a block in place.
type Processor interface {
	ProcessMulti(buffers [][]float32)
	Reset()
}

type stage struct {
	name      string
	processor Processor
}

// Chain runs its stages in order. The bypass flag may be toggled from any
// goroutine; Process and Reset belong to the audio thread.
type Chain struct {
	name   string
	stages []*stage
	bypass atomic.Bool
}

// NewChain creates a new DSP chain.
func NewChain(name string) *Chain {
	return &Chain{name: name}
}

// Add appends a named stage to the chain.
func (c *Chain) Add(name string, processor Processor) *Chain {
	c.stages = append(c.stages, &stage{name: name, processor: processor})
	return c
}

// ProcessMulti runs every stage unless the chain is bypassed.
func (c *Chain) ProcessMulti(buffers [][]float32) {
	if c.bypass.Load() {
		return
	}
	for _, s := range c.stages {
		s.processor.ProcessMulti(buffers)
	}
}

// Reset resets all processors in the chain.
func (c *Chain) Reset() {
	for _, s := range c.stages {
		s.processor.Reset()
	}
}

// SetBypass sets the bypass state of the whole chain.
func (c *Chain) SetBypass(bypass bool) {
	c.bypass.Store(bypass)
}

// Count returns the number of stages in the chain.
func (c *Chain) Count() int {
	return len(c.stages)
}

// Builder provides a fluent API for building DSP chains.
type Builder struct {
	chain *Chain
	names map[string]bool
	errs  []error
}

// NewBuilder creates a new chain builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		chain: NewChain(name),
		names: make(map[string]bool),
	}
}

// With adds a named processor to the chain.
func (b *Builder) With(name string, processor Processor) *Builder {
	switch {
	case processor == nil:
		b.errs = append(b.errs, fmt.Errorf("stage %q: processor cannot be nil", name))
	case b.names[name]:
		b.errs = append(b.errs, fmt.Errorf("stage %q: duplicate name", name))
	default:
		b.names[name] = true
		b.chain.Add(name, processor)
	}
	return b
}

// Build returns the chain or every error collected while building it.
func (b *Builder) Build() (*Chain, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("build chain %s: %w", b.chain.name, errors.Join(b.errs...))
	}
	if b.chain.Count() == 0 {
		return nil, fmt.Errorf("build chain %s: chain is empty", b.chain.name)
	}
	return b.chain, nil
}
