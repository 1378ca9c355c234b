package param

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestParameterValues(t *testing.T) {
	p := New(1, "Density").Range(0.25, 16).Default(2).Build()

	if p.Key != "DENSITY" {
		t.Errorf("Expected derived key DENSITY, got %s", p.Key)
	}
	if math.Abs(p.GetPlainValue()-2) > 1e-9 {
		t.Errorf("Default plain value %f, want 2", p.GetPlainValue())
	}

	p.SetPlainValue(100)
	if p.GetValue() != 1 {
		t.Errorf("Plain value above range should clamp to 1, got %f", p.GetValue())
	}
	p.SetValue(math.NaN())
	if p.GetValue() != 0 {
		t.Errorf("NaN should store 0, got %f", p.GetValue())
	}

	p.Reset()
	if math.Abs(p.GetPlainValue()-2) > 1e-9 {
		t.Errorf("Reset should restore default, got %f", p.GetPlainValue())
	}
}

func TestParameterSteps(t *testing.T) {
	p := IntegerParameter(1, "Pitch Min", -4, 4, 0).Build()

	tests := []struct {
		normalized float64
		plain      float64
	}{
		{0, -4},
		{0.5, 0},
		{0.51, 0},
		{0.57, 1},
		{1, 4},
	}

	for _, tt := range tests {
		p.SetValue(tt.normalized)
		if got := p.GetPlainValue(); got != tt.plain {
			t.Errorf("Normalized %f: plain %f, want %f", tt.normalized, got, tt.plain)
		}
	}
}

func TestParameterReadOnly(t *testing.T) {
	p := New(1, "Level").ReadOnly().Build()
	if err := p.SetString("0.5"); err == nil {
		t.Error("Expected error writing read-only parameter")
	}
	if p.Flags&CanAutomate != 0 {
		t.Error("Read-only parameter should not be automatable")
	}
}

func TestParameterConcurrentAccess(t *testing.T) {
	p := New(1, "Mix").Build()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			p.SetValue(float64(i%2) * 0.75)
		}
	}()

	for i := 0; i < 10000; i++ {
		if v := p.GetValue(); v != 0 && v != 0.75 {
			t.Fatalf("Torn read: %f", v)
		}
	}
	wg.Wait()
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	density := New(0, "Density").Key("DENSITY").Range(0.25, 16).Default(2).Build()
	mix := ProbabilityParameter(5, "Mix", 0.5).Key("MIX").Build()

	if err := r.Add(density, mix); err != nil {
		t.Fatal(err)
	}
	if r.Count() != 2 {
		t.Fatalf("Expected 2 parameters, got %d", r.Count())
	}

	t.Run("DuplicateID", func(t *testing.T) {
		if err := r.Add(New(0, "Other").Build()); err == nil {
			t.Error("Expected duplicate ID error")
		}
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		if err := r.Add(New(99, "Mix").Key("mix").Build()); err == nil {
			t.Error("Expected duplicate key error")
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		p, err := r.Lookup("density")
		if err != nil || p != density {
			t.Fatalf("Lookup(density) = %v, %v", p, err)
		}
		if _, err := r.Lookup("nope"); !errors.Is(err, ErrUnknownParameter) {
			t.Errorf("Expected ErrUnknownParameter, got %v", err)
		}
	})

	t.Run("Order", func(t *testing.T) {
		if r.GetByIndex(0) != density || r.GetByIndex(1) != mix {
			t.Error("Registry did not preserve insertion order")
		}
		if r.GetByIndex(2) != nil || r.GetByIndex(-1) != nil {
			t.Error("Out of range index should return nil")
		}
		all := r.All()
		if len(all) != 2 || all[0] != density {
			t.Errorf("All() returned %v", all)
		}
	})

	t.Run("Set", func(t *testing.T) {
		if err := r.Set("mix=25%"); err != nil {
			t.Fatal(err)
		}
		if math.Abs(mix.GetPlainValue()-0.25) > 1e-9 {
			t.Errorf("mix = %f, want 0.25", mix.GetPlainValue())
		}
		if err := r.Set("density"); err == nil {
			t.Error("Expected error for assignment without value")
		}
		if err := r.Set("bogus=1"); !errors.Is(err, ErrUnknownParameter) {
			t.Errorf("Expected ErrUnknownParameter, got %v", err)
		}
	})

	t.Run("ResetAll", func(t *testing.T) {
		r.ResetAll()
		if math.Abs(mix.GetPlainValue()-0.5) > 1e-9 {
			t.Errorf("mix not reset: %f", mix.GetPlainValue())
		}
	})
}
