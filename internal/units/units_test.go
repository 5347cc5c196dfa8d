package units

import (
	"math"
	"testing"
)

func TestNanosToMicros(t *testing.T) {
	tests := []struct {
		name     string
		ns       float64
		expected float64
	}{
		{"one microsecond", NanosPerMicro, 1},
		{"250 ns", 250, 0.25},
		{"zero", 0, 0},
		{"negative", -1500, -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NanosToMicros(tt.ns)
			if math.Abs(result-tt.expected) > 1e-12 {
				t.Errorf("NanosToMicros(%f) = %f, want %f", tt.ns, result, tt.expected)
			}
		})
	}
}
