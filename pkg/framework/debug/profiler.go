package debug

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler times named sections such as source decoding and resampling.
// It takes a lock per measurement; the audio callback uses BlockProfiler.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	enabled      atomic.Bool
	maxSamples   int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name      string
	Count     uint64
	Total     time.Duration
	Min       time.Duration
	Max       time.Duration
	Last      time.Duration
	samples   []time.Duration
	nextIndex int
}

// DefaultProfiler is the global profiler instance.
var DefaultProfiler = NewProfiler(1000)

// NewProfiler creates a profiler keeping up to maxSamples recent timings per section.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples < 1 {
		maxSamples = 1
	}
	p := &Profiler{
		measurements: make(map[string]*Measurement),
		maxSamples:   maxSamples,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// IsEnabled returns whether profiling is enabled.
func (p *Profiler) IsEnabled() bool {
	return p.enabled.Load()
}

// Start begins timing a named section and returns the function that ends it.
func (p *Profiler) Start(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}

	start := time.Now()
	return func() {
		p.record(name, time.Since(start))
	}
}

// Time measures the execution time of fn.
func (p *Profiler) Time(name string, fn func()) {
	stop := p.Start(name)
	defer stop()
	fn()
}

func (p *Profiler) record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.measurements[name]
	if !ok {
		m = &Measurement{
			Name:    name,
			Min:     elapsed,
			Max:     elapsed,
			samples: make([]time.Duration, 0, p.maxSamples),
		}
		p.measurements[name] = m
	}

	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	m.Min = min(m.Min, elapsed)
	m.Max = max(m.Max, elapsed)

	if len(m.samples) < p.maxSamples {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.nextIndex] = elapsed
	}
	m.nextIndex = (m.nextIndex + 1) % p.maxSamples
}

// GetMeasurement returns a copy of the measurement for a named section.
func (p *Profiler) GetMeasurement(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.measurements[name]
	if !ok {
		return Measurement{}, false
	}
	c := *m
	c.samples = slices.Clone(m.samples)
	return c, true
}

// Names returns the profiled section names in sorted order.
func (p *Profiler) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.measurements))
	for name := range p.measurements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*Measurement)
}

// Report formats every measurement.
func (p *Profiler) Report() string {
	names := p.Names()
	if len(names) == 0 {
		return "No measurements recorded"
	}

	var sb strings.Builder
	sb.WriteString("Performance Report:\n")
	for _, name := range names {
		m, _ := p.GetMeasurement(name)
		fmt.Fprintf(&sb, "%s: count %d, avg %v, min %v, max %v, p95 %v\n",
			name, m.Count, m.Average(), m.Min, m.Max, m.Percentile(95))
	}
	return sb.String()
}

// Average returns the mean time of the measurement.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the p-th percentile (0-100) of the recent samples.
func (m Measurement) Percentile(p float64) time.Duration {
	if len(m.samples) == 0 {
		return 0
	}
	sorted := slices.Clone(m.samples)
	slices.Sort(sorted)
	p = min(max(p, 0), 100)
	return sorted[int(float64(len(sorted)-1)*p/100.0)]
}

// Start begins timing a named section using the default profiler.
func Start(name string) func() {
	return DefaultProfiler.Start(name)
}

// Time measures fn using the default profiler.
func Time(name string, fn func()) {
	DefaultProfiler.Time(name, fn)
}

// BlockProfiler measures audio callback blocks without locks or allocation.
type BlockProfiler struct {
	sampleRate float64
	blocks     atomic.Uint64
	frames     atomic.Uint64
	totalNs    atomic.Int64
	maxNs      atomic.Int64
	lastNs     atomic.Int64
}

// BlockStats is a snapshot of a BlockProfiler.
type BlockStats struct {
	Blocks  uint64
	Average time.Duration
	Max     time.Duration
	Last    time.Duration
	// CPULoad is processing time as a percentage of the audio time processed.
	CPULoad float64
}

// NewBlockProfiler creates a block profiler for the given sample rate.
func NewBlockProfiler(sampleRate float64) *BlockProfiler {
	return &BlockProfiler{sampleRate: sampleRate}
}

// Begin marks the start of a block.
func (b *BlockProfiler) Begin() time.Time {
	return time.Now()
}

// End records a block of frames started at start.
func (b *BlockProfiler) End(start time.Time, frames int) {
	b.record(time.Since(start), frames)
}

func (b *BlockProfiler) record(elapsed time.Duration, frames int) {
	ns := elapsed.Nanoseconds()
	b.blocks.Add(1)
	b.frames.Add(uint64(frames))
	b.totalNs.Add(ns)
	b.lastNs.Store(ns)
	for {
		cur := b.maxNs.Load()
		if ns <= cur || b.maxNs.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// Stats returns the current statistics.
func (b *BlockProfiler) Stats() BlockStats {
	s := BlockStats{
		Blocks: b.blocks.Load(),
		Max:    time.Duration(b.maxNs.Load()),
		Last:   time.Duration(b.lastNs.Load()),
	}
	total := b.totalNs.Load()
	if s.Blocks > 0 {
		s.Average = time.Duration(total / int64(s.Blocks))
	}
	if frames := b.frames.Load(); frames > 0 && b.sampleRate > 0 {
		audioNs := float64(frames) / b.sampleRate * 1e9
		s.CPULoad = float64(total) / audioNs * 100
	}
	return s
}

// Reset clears the statistics.
func (b *BlockProfiler) Reset() {
	b.blocks.Store(0)
	b.frames.Store(0)
	b.totalNs.Store(0)
	b.maxNs.Store(0)
	b.lastNs.Store(0)
}

// Report formats the block statistics.
func (b *BlockProfiler) Report() string {
	s := b.Stats()
	return fmt.Sprintf("Blocks: %d, avg %v, max %v, CPU load %.2f%% at %.0f Hz",
		s.Blocks, s.Average, s.Max, s.CPULoad, b.sampleRate)
}
