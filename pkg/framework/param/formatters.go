package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Common parameter formatters and parsers

// FrequencyFormatter formats frequency values with Hz/kHz
func FrequencyFormatter(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.2f kHz", hz/1000)
	}
	return fmt.Sprintf("%.1f Hz", hz)
}

// FrequencyParser parses frequency strings
func FrequencyParser(str string) (float64, error) {
	str = strings.TrimSpace(str)

	lower := strings.ToLower(str)
	if strings.HasSuffix(lower, "khz") || strings.HasSuffix(lower, "k") {
		numStr := strings.TrimSuffix(strings.TrimSuffix(lower, "hz"), "k")
		val, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
		if err != nil {
			return 0, err
		}
		return val * 1000, nil
	}

	lower = strings.TrimSuffix(lower, "hz")
	return strconv.ParseFloat(strings.TrimSpace(lower), 64)
}

// DecibelFormatter formats dB values
func DecibelFormatter(db float64) string {
	if db <= -60 {
		return "-∞ dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// LinearGainFormatter formats a gain multiplier with its dB equivalent
func LinearGainFormatter(gain float64) string {
	if gain <= 0 {
		return "x0.00 (-∞ dB)"
	}
	return fmt.Sprintf("x%.2f (%.1f dB)", gain, 20*math.Log10(gain))
}

// LinearGainParser accepts "2", "x2", "2x" or "-6dB"
func LinearGainParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	if strings.HasSuffix(str, "db") {
		db, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "db")), 64)
		if err != nil {
			return 0, err
		}
		return math.Pow(10, db/20), nil
	}
	str = strings.TrimSuffix(strings.TrimPrefix(str, "x"), "x")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// FractionPercentFormatter formats a 0-1 value as a percentage
func FractionPercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value*100)
}

// FractionPercentParser accepts "50%" or a plain fraction such as "0.5"
func FractionPercentParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	if strings.HasSuffix(str, "%") {
		val, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "%")), 64)
		if err != nil {
			return 0, err
		}
		return val / 100, nil
	}
	return strconv.ParseFloat(str, 64)
}

// TimeFormatter formats time values with appropriate units
func TimeFormatter(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", ms/1000)
	}
	return fmt.Sprintf("%.1f ms", ms)
}

// TimeParser parses time strings into milliseconds
func TimeParser(str string) (float64, error) {
	str = strings.TrimSpace(strings.ToLower(str))

	if strings.HasSuffix(str, "s") && !strings.HasSuffix(str, "ms") {
		val, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "s")), 64)
		if err != nil {
			return 0, err
		}
		return val * 1000, nil
	}

	str = strings.TrimSuffix(str, "ms")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// BeatsFormatter formats a duration in beats
func BeatsFormatter(beats float64) string {
	if math.Abs(beats-1) < 1e-9 {
		return "1 beat"
	}
	return fmt.Sprintf("%.3g beats", beats)
}

// BeatsParser accepts "0.25", "1/4", "1/4 beats" or "2 beats"
func BeatsParser(str string) (float64, error) {
	str = strings.TrimSpace(strings.ToLower(str))
	str = strings.TrimSuffix(strings.TrimSuffix(str, "beats"), "beat")
	str = strings.TrimSpace(str)

	if num, den, ok := strings.Cut(str, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, err
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, fmt.Errorf("zero denominator in %q", str)
		}
		return n / d, nil
	}
	return strconv.ParseFloat(str, 64)
}

// OctaveFormatter formats a signed octave offset
func OctaveFormatter(octaves float64) string {
	return fmt.Sprintf("%+.0f oct", octaves)
}

// OctaveParser parses "+2", "-1 oct" or "3"
func OctaveParser(str string) (float64, error) {
	str = strings.TrimSpace(strings.ToLower(str))
	str = strings.TrimSpace(strings.TrimSuffix(str, "oct"))
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	return math.Round(val), nil
}
