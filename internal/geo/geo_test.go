package geo

import (
	"math"
	"testing"
)

func TestGreatCircleDistance(t *testing.T) {
	// London to Paris, ~343 km, well-known reference value.
	london := Point{Lat: 51.5074, Lon: -0.1278}
	paris := Point{Lat: 48.8566, Lon: 2.3522}

	d, err := GreatCircleDistance(london, paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d-343500) > 3000 {
		t.Errorf("GreatCircleDistance(london, paris) = %f; want ~343500", d)
	}
}

func TestGreatCircleDistanceNaN(t *testing.T) {
	_, err := GreatCircleDistance(Point{Lat: math.NaN(), Lon: 0}, Point{Lat: 0, Lon: 0})
	if err == nil {
		t.Error("expected error for NaN input, got nil")
	}
}

func TestInitialBearingDueEast(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 0, Lon: 1}
	brg, err := InitialBearing(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(brg-90) > 0.01 {
		t.Errorf("InitialBearing(a,b) = %f; want ~90", brg)
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	a := Point{Lat: 48.0, Lon: -4.0}
	dist := NMToMeters(50)
	dst, err := Destination(a, 90, dist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, brg, err := DistanceAndBearing(a, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(back-dist) > dist*0.001 {
		t.Errorf("round-trip distance = %f; want ~%f", back, dist)
	}
	if math.Abs(brg-90) > 1 {
		t.Errorf("round-trip bearing = %f; want ~90", brg)
	}
}

func TestNormalizeSigned(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		181:  -179,
		-181: 179,
		360:  0,
		-360: 0,
		540:  180,
	}
	for in, want := range cases {
		got := NormalizeSigned(in)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("NormalizeSigned(%f) = %f; want %f", in, got, want)
		}
	}
}

func TestNMConversions(t *testing.T) {
	if math.Abs(NMToMeters(1)-1852.0) > 1e-9 {
		t.Errorf("NMToMeters(1) = %f; want 1852", NMToMeters(1))
	}
	if math.Abs(MetersToNM(1852.0)-1) > 1e-9 {
		t.Errorf("MetersToNM(1852) = %f; want 1", MetersToNM(1852.0))
	}
}

func TestBoundingBoxExpand(t *testing.T) {
	box := BoundingBoxOf([]Point{{Lat: 10, Lon: 10}, {Lat: 12, Lon: 14}})
	expanded := box.Expand(NMToMeters(5))
	if expanded.MinLat >= box.MinLat || expanded.MaxLat <= box.MaxLat {
		t.Errorf("Expand did not grow the box: %+v -> %+v", box, expanded)
	}
	if !expanded.Contains(Point{Lat: 11, Lon: 12}) {
		t.Error("expanded box should contain an interior point")
	}
}

func TestAccuracyFloorAt500NM(t *testing.T) {
	a := Point{Lat: 40.0, Lon: -10.0}
	dist := NMToMeters(500)
	for _, brg := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		b, err := Destination(a, brg, dist)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _, err := DistanceAndBearing(a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got-dist)/dist > 0.001 {
			t.Errorf("bearing %f: distance error %f%% exceeds 0.1%%", brg, 100*math.Abs(got-dist)/dist)
		}
	}
}
