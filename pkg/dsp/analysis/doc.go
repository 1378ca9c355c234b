// Package analysis provides level metering for real-time display.
//
// The audio thread publishes a smoothed peak level once per block with
// Update; any other goroutine reads it with Level or LevelDB. Values are
// stored as atomic float32 bits, so neither side ever blocks.
//
// Example usage:
//
//	var in analysis.LevelFollower
//	// audio thread
//	in.Update(dsp.PeakAll(input))
//	// display goroutine
//	fmt.Printf("%6.1f dB\n", in.LevelDB())
package analysis
