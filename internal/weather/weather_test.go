package weather

import (
	"context"
	"testing"
	"time"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/land"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
)

// fakePort serves the same wind/wave readings for every requested point at
// each of two valid-times (10kt/1m at t0, 20kt/2m at t1), so interpolation
// tests have a known-good answer.
type fakePort struct {
	t0, t1 time.Time
}

func (p fakePort) Fetch(ctx context.Context, points []geo.Point, from, to time.Time) (<-chan WeatherSample, <-chan error) {
	sampleCh := make(chan WeatherSample, len(points)*2)
	errCh := make(chan error, 1)
	for _, pt := range points {
		sampleCh <- WeatherSample{Position: pt, ValidTime: p.t0, WindSpeedKt: 10, WindDirDegFrom: 350, WaveHeightM: 1.0}
		sampleCh <- WeatherSample{Position: pt, ValidTime: p.t1, WindSpeedKt: 20, WindDirDegFrom: 10, WaveHeightM: 2.0}
	}
	close(sampleCh)
	errCh <- nil
	close(errCh)
	return sampleCh, errCh
}

func testMesh(t *testing.T) *mesh.MeshedArea {
	cps := []mesh.ControlPoint{
		{Position: geo.Point{Lat: 50.0, Lon: -1.0}, Kind: mesh.Start},
		{Position: geo.Point{Lat: 50.05, Lon: -0.9}, Kind: mesh.Finish},
	}
	params := mesh.AutoParams(cps)
	area, err := mesh.Build(mesh.BuildInput{ControlPoints: cps, Params: params, Geometry: alwaysSeaGeometry{}})
	if err != nil {
		t.Fatalf("building test mesh: %v", err)
	}
	return area
}

func TestBindAttachesReachableCentroidToEveryVertex(t *testing.T) {
	area := testMesh(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(6 * time.Hour)
	wm, err := Bind(context.Background(), area, Horizon{Start: t0, End: t1}, fakePort{t0: t0, t1: t1})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(wm.Centroids) == 0 {
		t.Fatal("expected at least one centroid")
	}
	for _, v := range area.Vertices {
		if !v.IsNavigable {
			continue
		}
		if _, ok := wm.vertexRefs[uint32(v.ID)]; !ok {
			t.Errorf("vertex %d has no weather reference", v.ID)
		}
	}
}

func TestSampleInterpolatesBetweenValidTimes(t *testing.T) {
	area := testMesh(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(6 * time.Hour)
	wm, err := Bind(context.Background(), area, Horizon{Start: t0, End: t1}, fakePort{t0: t0, t1: t1})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	mid := t0.Add(3 * time.Hour)
	speed, _, wave, err := wm.Sample(geo.Point{Lat: 50.02, Lon: -0.95}, mid)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if speed < 14 || speed > 16 {
		t.Errorf("expected wind speed near 15kt at the midpoint, got %f", speed)
	}
	if wave < 1.4 || wave > 1.6 {
		t.Errorf("expected wave height near 1.5m at the midpoint, got %f", wave)
	}
}

func TestSampleRefusesOutOfHorizon(t *testing.T) {
	area := testMesh(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(6 * time.Hour)
	wm, err := Bind(context.Background(), area, Horizon{Start: t0, End: t1}, fakePort{t0: t0, t1: t1})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, _, _, err := wm.Sample(geo.Point{Lat: 50.02, Lon: -0.95}, t1.Add(time.Hour)); err == nil {
		t.Error("expected HorizonExceeded past the end of the horizon")
	}
}

// alwaysSeaGeometry is a GeometryPort test double used across this package's
// tests: no land anywhere, every segment clear.
type alwaysSeaGeometry struct{}

func (alwaysSeaGeometry) IsLand(lat, lon float64) (bool, error) { return false, nil }
func (alwaysSeaGeometry) DistanceToLand(lat, lon float64) (float64, error) {
	return 1e6, nil
}
func (alwaysSeaGeometry) SegmentCrossesLand(a, b land.Point, withinM float64) (bool, error) {
	return false, nil
}
