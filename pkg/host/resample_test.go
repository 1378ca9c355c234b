package host

import (
	"errors"
	"math"
	"testing"
)

func sineSource(sampleRate, channels, frames int, freq float64) *sliceSource {
	data := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}
	return &sliceSource{data: data, sampleRate: sampleRate, channels: channels}
}

func TestResample(t *testing.T) {
	t.Run("SameRate", func(t *testing.T) {
		src := sineSource(48000, 2, 100, 440)
		res, err := Resample(src, 48000, DefaultResampleQuality)
		if err != nil {
			t.Fatal(err)
		}
		if res != Source(src) {
			t.Error("Matching rates should return the source unchanged")
		}
	})

	t.Run("Upsample", func(t *testing.T) {
		src := sineSource(44100, 2, 44100, 441)
		res, err := Resample(src, 48000, DefaultResampleQuality)
		if err != nil {
			t.Fatal(err)
		}
		if res.SampleRate() != 48000 || res.Channels() != 2 {
			t.Fatalf("format %d Hz, %d channels", res.SampleRate(), res.Channels())
		}

		got := readAll(t, res)
		frames := len(got) / 2
		if frames < 47500 || frames > 48500 {
			t.Errorf("got %d frames, want about 48000", frames)
		}
		var peak float32
		for _, s := range got[2000 : len(got)-2000] {
			peak = max(peak, float32(math.Abs(float64(s))))
		}
		if math.Abs(float64(peak-0.5)) > 0.02 {
			t.Errorf("peak %f, want about 0.5", peak)
		}

		if err := res.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		if !src.closed {
			t.Error("Closing the resampler should close the source")
		}
	})

	t.Run("RatioOutOfRange", func(t *testing.T) {
		src := sineSource(1000, 1, 10, 10)
		if _, err := Resample(src, 192000, DefaultResampleQuality); !errors.Is(err, ErrUnsupportedRatio) {
			t.Errorf("Resample() error = %v, want ErrUnsupportedRatio", err)
		}
	})
}
