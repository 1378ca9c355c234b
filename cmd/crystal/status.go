package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/justyntemme/crystal/pkg/dsp/buffer"
	"github.com/justyntemme/crystal/pkg/framework/debug"
	"github.com/justyntemme/crystal/pkg/granular"
	"github.com/justyntemme/crystal/pkg/host"
)

const statusInterval = 100 * time.Millisecond

// monitor gathers what the status line shows. profiler and input may be nil.
type monitor struct {
	engine   *granular.Engine
	profiler *debug.BlockProfiler
	input    *buffer.FIFO
}

func (m *monitor) status() host.Status {
	stats := m.engine.Stats()
	s := host.Status{
		InputDB:  m.engine.InputLevelDB(),
		OutputDB: m.engine.OutputLevelDB(),
		Active:   stats.Active,
		Waiting:  stats.Waiting,
		Spawned:  stats.Spawned,
		Source:   m.engine.Parameters().InputSource.String(),
		Load:     -1,
	}
	if m.engine.EffectsBypassed() {
		s.Source += " dry fx"
	}
	if m.profiler != nil {
		s.Load = m.profiler.Stats().CPULoad
	}
	if m.input != nil {
		health := m.input.Health()
		s.Latency = health.CurrentLatency
		s.Underruns = health.Underruns
	}
	return s
}

// run redraws the status line until ctx ends.
func (m *monitor) run(ctx context.Context, out io.Writer, width func() int) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprint(out, "\r\x1b[K")
			return
		case <-ticker.C:
			fmt.Fprintf(out, "\r%s\x1b[K", host.FormatStatus(m.status(), width()-1))
		}
	}
}

// rawWriter turns LF into CRLF for a terminal in raw mode and starts each
// write on a fresh line so log output does not overwrite the status line.
type rawWriter struct {
	w io.Writer
}

func (r rawWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	out = append(out, "\r\x1b[K"...)
	out = append(out, bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))...)
	if _, err := r.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
