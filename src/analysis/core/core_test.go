package core

import (
	"math"
	"testing"
)

func TestTurnoverRatio(t *testing.T) {
	if got := TurnoverRatio(80, 100); got != 0.8 {
		t.Fatalf("TurnoverRatio(80, 100) = %v, want 0.8", got)
	}
	if got := TurnoverRatio(80, 0); got != 0 {
		t.Fatalf("zero cap must give 0, got %v", got)
	}
	if got := TurnoverRatio(80, -5); got != 0 {
		t.Fatalf("negative cap must give 0, got %v", got)
	}
}

func TestAboveThresholdIsStrict(t *testing.T) {
	cases := []struct {
		ratio, threshold float64
		want             bool
	}{
		{0.7, 0.7, false},
		{0.7000001, 0.7, true},
		{0.69, 0.7, false},
		{0, 0, false},
	}
	for _, c := range cases {
		if got := AboveThreshold(c.ratio, c.threshold); got != c.want {
			t.Errorf("AboveThreshold(%v, %v) = %v, want %v", c.ratio, c.threshold, got, c.want)
		}
	}
}

func TestCalculateMeanStd(t *testing.T) {
	mean, std := CalculateMeanStd(nil)
	if mean != 0 || std != 0 {
		t.Fatalf("empty input: got %v/%v", mean, std)
	}

	mean, std = CalculateMeanStd([]float64{3})
	if mean != 3 || std != 0 {
		t.Fatalf("single input: got %v/%v", mean, std)
	}

	mean, std = CalculateMeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || math.Abs(std-2) > 1e-12 {
		t.Fatalf("got mean=%v std=%v, want 5/2", mean, std)
	}
}

func TestMax(t *testing.T) {
	if Max(nil) != 0 {
		t.Fatal("empty max must be 0")
	}
	if got := Max([]float64{0.8, 1.6, 1.2}); got != 1.6 {
		t.Fatalf("Max = %v", got)
	}
}
