package core

import (
	"math"
	"testing"
)

func TestNormalizeVector(t *testing.T) {
	v := []float32{3, 4}
	normalized := NormalizeVector(v)

	if math.Abs(float64(normalized[0])-0.6) > 1e-6 {
		t.Errorf("expected 0.6, got %v", normalized[0])
	}
	if math.Abs(float64(normalized[1])-0.8) > 1e-6 {
		t.Errorf("expected 0.8, got %v", normalized[1])
	}

	var magnitude float64
	for _, val := range normalized {
		magnitude += float64(val) * float64(val)
	}
	if math.Abs(math.Sqrt(magnitude)-1.0) > 1e-6 {
		t.Errorf("expected unit length, got %v", math.Sqrt(magnitude))
	}

	// Input must not be mutated.
	if v[0] != 3 || v[1] != 4 {
		t.Errorf("input mutated: %v", v)
	}
}

func TestNormalizeVectorZero(t *testing.T) {
	normalized := NormalizeVector([]float32{0, 0, 0})
	if len(normalized) != 3 {
		t.Fatalf("expected length 3, got %d", len(normalized))
	}
	for i, val := range normalized {
		if val != 0 {
			t.Errorf("index %d: expected 0, got %v", i, val)
		}
	}
}

func TestNormalizeVectorEmpty(t *testing.T) {
	if got := NormalizeVector(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
