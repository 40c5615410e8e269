package gunit

import (
	"math"
	"testing"
)

func TestToMilliGRounds(t *testing.T) {
	cases := []struct {
		g    float64
		want int16
	}{
		{0, 0},
		{1.0, 1000},
		{-1.0, -1000},
		{0.0004, 0},
		{0.0005, 1},
		{-0.0006, -1},
		{1.2345, 1235},
		{-0.9994, -999},
	}
	for _, c := range cases {
		if got := ToMilliG(c.g); got != c.want {
			t.Errorf("ToMilliG(%v) = %d, want %d", c.g, got, c.want)
		}
	}
}

func TestToMilliGClamps(t *testing.T) {
	if got := ToMilliG(100); got != math.MaxInt16 {
		t.Errorf("ToMilliG(100) = %d, want %d", got, math.MaxInt16)
	}
	if got := ToMilliG(-100); got != math.MinInt16 {
		t.Errorf("ToMilliG(-100) = %d, want %d", got, math.MinInt16)
	}
}

func TestRoundTripWithinQuantization(t *testing.T) {
	// Representable values must survive the wire within one quantization step.
	for _, g := range []float64{0, 0.001, -0.001, 0.9999, -1.5, 2.048, MaxG, MinG} {
		back := FromMilliG(ToMilliG(g))
		if diff := math.Abs(back - g); diff > Quantization/2+1e-12 {
			t.Errorf("round trip %v -> %v drifted by %v", g, back, diff)
		}
	}
}
