package host

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// meterFloorDB is the level drawn as an empty meter.
const meterFloorDB = -60.0

// Status is one refresh of the terminal display.
type Status struct {
	InputDB   float64
	OutputDB  float64
	Active    int
	Waiting   int
	Spawned   uint64
	Source    string
	Load      float64 // percent, negative when not profiling
	Latency   time.Duration
	Underruns uint64
}

// FormatMeter draws a level in dB as a bar of width cells from -60 dB to 0 dB.
func FormatMeter(db float64, width int) string {
	if width < 1 {
		return ""
	}
	fill := 0
	if !math.IsNaN(db) && db > meterFloorDB {
		fill = int(math.Round((min(db, 0) - meterFloorDB) / -meterFloorDB * float64(width)))
	}
	return strings.Repeat("#", fill) + strings.Repeat("-", width-fill)
}

// FormatStatus renders a single status line fitted to width columns.
func FormatStatus(s Status, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "in %s %6.1f dB  out %s %6.1f dB  grains %2d+%-2d of %d  %s",
		FormatMeter(s.InputDB, 12), math.Max(s.InputDB, -99.9),
		FormatMeter(s.OutputDB, 12), math.Max(s.OutputDB, -99.9),
		s.Active, s.Waiting, s.Spawned, s.Source)
	if s.Load >= 0 {
		fmt.Fprintf(&b, "  cpu %4.1f%%", s.Load)
	}
	if s.Latency > 0 {
		fmt.Fprintf(&b, "  buf %v", s.Latency.Round(time.Millisecond))
	}
	if s.Underruns > 0 {
		fmt.Fprintf(&b, "  xruns %d", s.Underruns)
	}

	line := b.String()
	if width > 0 && len(line) > width {
		line = line[:width]
	}
	return line
}
