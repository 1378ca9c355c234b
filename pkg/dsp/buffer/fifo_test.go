package buffer

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFIFO(t *testing.T) {
	sampleRate := 48000.0
	channels := 2
	latency := 10 * time.Millisecond

	f := NewFIFO(sampleRate, channels, latency)

	expectedLatencySamples := uint32(sampleRate * latency.Seconds() * float64(channels))
	if f.latencySamples != expectedLatencySamples {
		t.Errorf("Expected latency samples %d, got %d", expectedLatencySamples, f.latencySamples)
	}
	if f.size&(f.size-1) != 0 {
		t.Errorf("Buffer size %d is not a power of 2", f.size)
	}

	t.Run("SilentUntilPrimed", func(t *testing.T) {
		f.Reset()
		if err := f.Write(make([]float32, 100)); err != nil {
			t.Fatal(err)
		}
		out := []float32{1, 1, 1, 1}
		if n := f.Read(out); n != 0 {
			t.Errorf("Expected no samples before latency is queued, got %d", n)
		}
		for i, v := range out {
			if v != 0 {
				t.Errorf("Expected silence at %d, got %f", i, v)
			}
		}
	})

	t.Run("ReadAfterPrime", func(t *testing.T) {
		f.Reset()
		input := make([]float32, f.latencySamples)
		for i := range input {
			input[i] = float32(i)
		}
		if err := f.Write(input); err != nil {
			t.Fatal(err)
		}

		out := make([]float32, 256)
		if n := f.Read(out); n != 256 {
			t.Fatalf("Expected 256 samples, got %d", n)
		}
		for i := range out {
			if out[i] != float32(i) {
				t.Fatalf("Sample %d: expected %f, got %f", i, float32(i), out[i])
			}
		}
	})

	t.Run("UnderrunZeroFills", func(t *testing.T) {
		f.Reset()
		if err := f.Write(make([]float32, f.latencySamples)); err != nil {
			t.Fatal(err)
		}
		out := make([]float32, f.latencySamples+10)
		for i := range out {
			out[i] = 1
		}
		if n := f.Read(out); n != int(f.latencySamples) {
			t.Errorf("Expected %d samples, got %d", f.latencySamples, n)
		}
		for i := int(f.latencySamples); i < len(out); i++ {
			if out[i] != 0 {
				t.Fatalf("Expected zero fill at %d", i)
			}
		}
		if f.Health().Underruns != 1 {
			t.Errorf("Expected 1 underrun, got %d", f.Health().Underruns)
		}
	})

	t.Run("Overrun", func(t *testing.T) {
		f.Reset()
		if err := f.Write(make([]float32, f.size)); err != nil {
			t.Fatal(err)
		}
		if f.Space() != 0 {
			t.Errorf("Expected full buffer, space %d", f.Space())
		}
		if err := f.Write([]float32{1}); !errors.Is(err, ErrOverrun) {
			t.Errorf("Expected ErrOverrun, got %v", err)
		}
		if f.Health().Overruns != 1 {
			t.Errorf("Expected 1 overrun, got %d", f.Health().Overruns)
		}
	})

	t.Run("WrapAround", func(t *testing.T) {
		f.Reset()
		chunk := make([]float32, f.size/2+7)
		out := make([]float32, len(chunk))
		next := float32(0)
		for round := 0; round < 5; round++ {
			for i := range chunk {
				chunk[i] = next
				next++
			}
			if err := f.Write(chunk); err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			if n := f.Read(out); n != len(out) {
				t.Fatalf("round %d: read %d", round, n)
			}
			for i := range out {
				if out[i] != chunk[i] {
					t.Fatalf("round %d sample %d: expected %f, got %f", round, i, chunk[i], out[i])
				}
			}
		}
	})
}

func TestFIFOHealth(t *testing.T) {
	f := NewFIFO(48000, 1, 10*time.Millisecond)
	if err := f.Write(make([]float32, 480)); err != nil {
		t.Fatal(err)
	}
	health := f.Health()
	if health.CurrentLatency != 10*time.Millisecond {
		t.Errorf("Expected 10ms latency, got %v", health.CurrentLatency)
	}
	if health.FillPercentage <= 0 {
		t.Error("Expected non-zero fill percentage")
	}
	if f.Available() != 480 {
		t.Errorf("Expected 480 available, got %d", f.Available())
	}
}

// The producer runs under GC pressure while the consumer reads at a fixed
// rate; every sample read must arrive in order.
func TestFIFOPrime(t *testing.T) {
	f := NewFIFO(48000, 1, 100*time.Millisecond)
	if err := f.Write([]float32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	out := make([]float32, 3)
	if n := f.Read(out); n != 0 {
		t.Fatalf("Read before the latency target returned %d samples", n)
	}

	f.Prime()
	if n := f.Read(out); n != 3 || out[0] != 1 || out[2] != 3 {
		t.Errorf("Read after Prime = %d %v, want 3 [1 2 3]", n, out)
	}
}

func TestFIFOConcurrentUnderGC(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrent test in short mode")
	}

	f := NewFIFO(48000, 2, 20*time.Millisecond)

	var stop atomic.Bool
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		next := float32(0)
		chunk := make([]float32, 128)
		for !stop.Load() {
			if f.Space() < len(chunk) {
				runtime.Gosched()
				continue
			}
			for i := range chunk {
				chunk[i] = next
				next++
			}
			if err := f.Write(chunk); err != nil {
				t.Errorf("unexpected write error: %v", err)
				return
			}
			if int(next)%4096 == 0 {
				_ = make([]byte, 1<<16)
				runtime.GC()
			}
		}
	}()

	expected := float32(0)
	out := make([]float32, 256)
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		n := f.Read(out)
		for i := 0; i < n; i++ {
			if out[i] != expected {
				stop.Store(true)
				wg.Wait()
				t.Fatalf("Out of order sample: expected %f, got %f", expected, out[i])
			}
			expected++
		}
		time.Sleep(time.Millisecond)
	}

	stop.Store(true)
	wg.Wait()

	if expected == 0 {
		t.Error("Consumer never received any samples")
	}
}

func BenchmarkFIFO(b *testing.B) {
	f := NewFIFO(48000, 2, 10*time.Millisecond)
	chunk := make([]float32, 1024)
	out := make([]float32, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Write(chunk)
		f.Read(out)
	}
}
