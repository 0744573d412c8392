package grib

import (
	"math"
	"testing"
)

func smallField() *Field {
	return &Field{
		Lat0: 10, Lon0: 0,
		DLat: 1, DLon: 1,
		NLat: 2, NLon: 2,
		U: [][]float64{{0, 0}, {0, 10}},
		V: [][]float64{{0, 0}, {0, 0}},
	}
}

func TestFieldSampleBilinearMidpoint(t *testing.T) {
	f := smallField()
	u, _, _, ok := f.sample(9.5, 0.5)
	if !ok {
		t.Fatal("expected a sample inside the grid")
	}
	if math.Abs(u-2.5) > 1e-9 {
		t.Errorf("u = %f; want 2.5 (average of the four corners weighted by distance)", u)
	}
}

func TestFieldSampleOutOfBoundsRefused(t *testing.T) {
	f := smallField()
	if _, _, _, ok := f.sample(5, 5); ok {
		t.Error("expected sample outside the grid to be refused")
	}
}

func TestWindSpeedKnotsAndDirFromZeroVector(t *testing.T) {
	speed, dir := windSpeedKnotsAndDirFrom(0, 0)
	if speed != 0 || dir != 0 {
		t.Errorf("zero vector should yield zero speed/direction, got (%f, %f)", speed, dir)
	}
}

func TestWindSpeedKnotsAndDirFromConvertsUnits(t *testing.T) {
	speedKt, _ := windSpeedKnotsAndDirFrom(10, 0)
	if math.Abs(speedKt-10*msToKnots) > 1e-9 {
		t.Errorf("speedKt = %f; want %f", speedKt, 10*msToKnots)
	}
}

func TestBuildGridNonContinuousShape(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	g := buildGrid(2, 2, 1.0, data)
	if len(g) != 2 || len(g[0]) != 2 {
		t.Fatalf("unexpected grid shape: %dx%d", len(g), len(g[0]))
	}
	if g[0][0] != 1 || g[1][1] != 4 {
		t.Errorf("unexpected grid contents: %v", g)
	}
}
