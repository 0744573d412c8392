package polar

import (
	"math"
	"testing"
)

func samplePolar() *VesselPolar {
	twa := []float64{0, 45, 90, 135, 180}
	tws := []float64{0, 10, 20}
	table := [][]float64{
		{0, 0, 0},
		{0, 5, 7},
		{0, 6, 9},
		{0, 5.5, 8},
		{0, 4, 6},
	}
	return &VesselPolar{
		Name:         "test",
		TWAAxis:      twa,
		TWSAxis:      tws,
		SpeedTable:   table,
		MaxWind:      30,
		TackDuration: 20,
		JibeDuration: 15,
	}
}

func TestValidateOK(t *testing.T) {
	p := samplePolar()
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsNonZeroInIrons(t *testing.T) {
	p := samplePolar()
	p.SpeedTable[0][1] = 1.0
	if err := p.Validate(); err == nil {
		t.Error("expected InvalidPolar error for nonzero speed at TWA=0")
	}
}

func TestValidateRejectsDimensionMismatch(t *testing.T) {
	p := samplePolar()
	p.SpeedTable = p.SpeedTable[:3]
	if err := p.Validate(); err == nil {
		t.Error("expected InvalidPolar error for dimension mismatch")
	}
}

func TestBoatSpeedExactGridPoint(t *testing.T) {
	p := samplePolar()
	got := p.BoatSpeed(90, 20)
	if math.Abs(got-9) > 1e-9 {
		t.Errorf("BoatSpeed(90,20) = %f; want 9", got)
	}
}

func TestBoatSpeedSymmetric(t *testing.T) {
	p := samplePolar()
	pos := p.BoatSpeed(45, 10)
	neg := p.BoatSpeed(-45, 10)
	if pos != neg {
		t.Errorf("BoatSpeed not symmetric: %f vs %f", pos, neg)
	}
}

func TestBoatSpeedZeroAtInIrons(t *testing.T) {
	p := samplePolar()
	if got := p.BoatSpeed(0, 15); got != 0 {
		t.Errorf("BoatSpeed(0,15) = %f; want 0", got)
	}
}

func TestBoatSpeedStormReefCutoff(t *testing.T) {
	p := samplePolar()
	if got := p.BoatSpeed(90, 30); got <= 0 {
		t.Errorf("BoatSpeed(90, max_wind) = %f; want finite positive speed", got)
	}
	if got := p.BoatSpeed(90, 30.01); got != 0 {
		t.Errorf("BoatSpeed(90, above max_wind) = %f; want 0", got)
	}
}

func TestBoatSpeedInterpolated(t *testing.T) {
	p := samplePolar()
	got := p.BoatSpeed(90, 15)
	want := (6.0 + 9.0) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("BoatSpeed(90,15) = %f; want %f", got, want)
	}
}

func TestPointOfSailBoundaries(t *testing.T) {
	cases := []struct {
		twa  float64
		want PointOfSail
	}{
		{0, InIrons}, {29, InIrons},
		{30, CloseHauled}, {49, CloseHauled},
		{50, CloseReach}, {69, CloseReach},
		{70, BeamReach}, {109, BeamReach},
		{110, BroadReach}, {149, BroadReach},
		{150, Running}, {169, Running},
		{170, DeadRun}, {180, DeadRun},
		{-170, DeadRun}, {-30, CloseHauled},
	}
	for _, c := range cases {
		got := PointOfSailOf(c.twa)
		if got != c.want {
			t.Errorf("PointOfSailOf(%f) = %s; want %s", c.twa, got, c.want)
		}
	}
}
