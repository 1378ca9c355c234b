package host

import (
	"github.com/justyntemme/crystal/pkg/dsp"
	"github.com/justyntemme/crystal/pkg/dsp/buffer"
	"github.com/justyntemme/crystal/pkg/framework/debug"
	"github.com/justyntemme/crystal/pkg/framework/process"
)

// Processor renders one block from the context inputs into its outputs.
type Processor interface {
	Process(ctx *process.Context)
}

// Renderer drives a Processor from a device callback. Input comes from the
// device, from a FIFO filled by a Feeder, or is silence. Every rendered
// block can be tapped into a FIFO for recording. Render methods must be
// called from one goroutine and never allocate.
type Renderer struct {
	proc     Processor
	ctx      *process.Context
	channels int
	maxBlock int

	input    *buffer.FIFO
	tap      *buffer.FIFO
	profiler *debug.BlockProfiler

	scratch []float32
}

// NewRenderer creates a renderer with its own block buffers.
func NewRenderer(proc Processor, sampleRate float64, maxBlock, channels int, transport process.Transport) *Renderer {
	ctx := process.NewContext(sampleRate, maxBlock, channels)
	ctx.Transport = transport
	return &Renderer{
		proc:     proc,
		ctx:      ctx,
		channels: channels,
		maxBlock: maxBlock,
		scratch:  make([]float32, maxBlock*channels),
	}
}

// SetInput makes the renderer read its input from f instead of the device.
// Set before the stream starts.
func (r *Renderer) SetInput(f *buffer.FIFO) {
	r.input = f
}

// SetTap copies every rendered block into f. Set before the stream starts.
func (r *Renderer) SetTap(f *buffer.FIFO) {
	r.tap = f
}

// SetProfiler times every Process call. Set before the stream starts.
func (r *Renderer) SetProfiler(p *debug.BlockProfiler) {
	r.profiler = p
}

// Channels returns the interleaving width.
func (r *Renderer) Channels() int {
	return r.channels
}

// SampleRate returns the processing rate.
func (r *Renderer) SampleRate() float64 {
	return r.ctx.SampleRate
}

// RenderInterleaved fills out with whole frames and returns the number of
// samples written. Input is taken from the FIFO, or silence without one.
func (r *Renderer) RenderInterleaved(out []float32) int {
	frames := len(out) / r.channels
	for done := 0; done < frames; {
		n := r.ctx.SetFrames(min(frames-done, r.maxBlock))
		block := r.scratch[:n*r.channels]

		if r.input != nil {
			r.input.Read(block)
			dsp.Deinterleave(r.ctx.Input, block)
		} else {
			dsp.ClearAll(r.ctx.Input)
		}

		r.process(n)

		dst := out[done*r.channels : (done+n)*r.channels]
		dsp.Interleave(dst, r.ctx.Output)
		if r.tap != nil {
			_ = r.tap.Write(dst)
		}
		done += n
	}
	return frames * r.channels
}

// RenderPlanar processes device buffers. With an input FIFO set the device
// input is ignored.
func (r *Renderer) RenderPlanar(in, out [][]float32) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	for done := 0; done < frames; {
		n := r.ctx.SetFrames(min(frames-done, r.maxBlock))

		if r.input != nil {
			block := r.scratch[:n*r.channels]
			r.input.Read(block)
			dsp.Deinterleave(r.ctx.Input, block)
		} else {
			for ch := range r.ctx.Input {
				if ch < len(in) {
					copy(r.ctx.Input[ch], in[ch][done:done+n])
				} else {
					dsp.Clear(r.ctx.Input[ch])
				}
			}
		}

		r.process(n)

		for ch := range out {
			if ch < r.channels {
				copy(out[ch][done:done+n], r.ctx.Output[ch])
			} else {
				dsp.Clear(out[ch][done : done+n])
			}
		}
		if r.tap != nil {
			block := r.scratch[:n*r.channels]
			dsp.Interleave(block, r.ctx.Output)
			_ = r.tap.Write(block)
		}
		done += n
	}
}

func (r *Renderer) process(frames int) {
	if r.profiler == nil {
		r.proc.Process(r.ctx)
		return
	}
	start := r.profiler.Begin()
	r.proc.Process(r.ctx)
	r.profiler.End(start, frames)
}
