package grid

import (
	"testing"

	"cdi-tuner.klederson.com/internal/config"
)

func TestAxisMonotonic(t *testing.T) {
	if Count != 79 {
		t.Fatalf("expected 79 points, got %d", Count)
	}
	if RPM(0) != config.RPMMin || RPM(Count-1) != config.RPMMax {
		t.Fatalf("axis ends = %d..%d", RPM(0), RPM(Count-1))
	}
	for i := 0; i < Count-1; i++ {
		if d := RPM(i+1) - RPM(i); d != config.RPMStep {
			t.Errorf("step at %d = %d", i, d)
		}
	}
}

func TestPointsIsACopy(t *testing.T) {
	p := Points()
	p[0] = 42
	if RPM(0) != config.RPMMin {
		t.Error("Points must not expose the backing array")
	}
}

func TestNearest(t *testing.T) {
	cases := []struct {
		rpm  float64
		want int
	}{
		{0, 0},
		{500, 0},
		{620, 0},
		{625, 1},
		{8000, 30},
		{9000, 34},
		{25000, Count - 1},
	}
	for _, c := range cases {
		if got := Nearest(c.rpm); got != c.want {
			t.Errorf("Nearest(%g) = %d, want %d", c.rpm, got, c.want)
		}
	}
}

func TestBracket(t *testing.T) {
	lo, hi, w := Bracket(625)
	if lo != 0 || hi != 1 || w != 0.5 {
		t.Errorf("Bracket(625) = %d,%d,%g", lo, hi, w)
	}
	lo, hi, _ = Bracket(100)
	if lo != 0 || hi != 0 {
		t.Errorf("Bracket below range = %d,%d", lo, hi)
	}
	lo, hi, _ = Bracket(30000)
	if lo != Count-1 || hi != Count-1 {
		t.Errorf("Bracket above range = %d,%d", lo, hi)
	}
}
