package core

import (
	"context"
	"testing"
	"time"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/land"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/polar"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/store"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/telemetry"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

type openSeaGeometry struct{}

func (openSeaGeometry) IsLand(lat, lon float64) (bool, error) { return false, nil }
func (openSeaGeometry) DistanceToLand(lat, lon float64) (float64, error) {
	return 1e6, nil
}
func (openSeaGeometry) SegmentCrossesLand(a, b land.Point, withinM float64) (bool, error) {
	return false, nil
}

type steadyPort struct{ t0, t1 time.Time }

func (p steadyPort) Fetch(ctx context.Context, points []geo.Point, from, to time.Time) (<-chan weather.WeatherSample, <-chan error) {
	sampleCh := make(chan weather.WeatherSample, len(points)*2)
	errCh := make(chan error, 1)
	for _, pt := range points {
		sampleCh <- weather.WeatherSample{Position: pt, ValidTime: p.t0, WindSpeedKt: 12, WindDirDegFrom: 0, WaveHeightM: 0.5}
		sampleCh <- weather.WeatherSample{Position: pt, ValidTime: p.t1, WindSpeedKt: 12, WindDirDegFrom: 0, WaveHeightM: 0.5}
	}
	close(sampleCh)
	errCh <- nil
	close(errCh)
	return sampleCh, errCh
}

func testVesselPolar() *polar.VesselPolar {
	return &polar.VesselPolar{
		Name:         "test-boat",
		TWSAxis:      []float64{0, 10, 20, 30},
		TWAAxis:      []float64{0, 30, 60, 90, 120, 150, 180},
		SpeedTable: [][]float64{
			{0, 0, 0, 0},
			{0, 4, 8, 10},
			{0, 6, 10, 12},
			{0, 6, 9, 11},
			{0, 5, 8, 10},
			{0, 4, 6, 8},
			{0, 2, 4, 5},
		},
		MaxWind:      35,
		TackDuration: 30,
		JibeDuration: 20,
	}
}

func testControlPoints() []mesh.ControlPoint {
	return []mesh.ControlPoint{
		{Position: geo.Point{Lat: 50.0, Lon: -1.0}, Kind: mesh.Start},
		{Position: geo.Point{Lat: 50.05, Lon: -0.9}, Kind: mesh.Finish},
	}
}

// testCollector is shared by every test pipeline: NewCollector registers its
// metric families on the default Prometheus registry, so a second
// registration under the same namespace would panic.
var testCollector = telemetry.NewCollector("nav_server_core_test")

func newTestPipeline(t *testing.T) *Pipeline {
	s, err := store.New(8)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return New(openSeaGeometry{}, nil, s, testCollector, nil)
}

func TestPipelineBuildFetchCalculateRoundTrip(t *testing.T) {
	p := newTestPipeline(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(6 * time.Hour)
	p.Weather = steadyPort{t0: t0, t1: t1}

	area, err := p.BuildMesh(testControlPoints(), nil)
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	if len(area.Vertices) == 0 {
		t.Fatal("expected a non-empty mesh")
	}

	wm, version, err := p.FetchWeather(context.Background(), area.ID, weather.Horizon{Start: t0, End: t1})
	if err != nil {
		t.Fatalf("FetchWeather: %v", err)
	}
	if wm == nil || version != 1 {
		t.Fatalf("expected the first FetchWeather to produce version 1, got %d", version)
	}

	result, err := p.CalculateRoute(area.ID, version, testVesselPolar(), DefaultTimeWindow(t0), 0)
	if err != nil {
		t.Fatalf("CalculateRoute: %v", err)
	}
	if len(result.Variants) == 0 {
		t.Fatal("expected at least one route variant")
	}
}

func TestPipelineCalculateRouteRejectsStaleVersion(t *testing.T) {
	p := newTestPipeline(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(6 * time.Hour)
	p.Weather = steadyPort{t0: t0, t1: t1}

	area, err := p.BuildMesh(testControlPoints(), nil)
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	if _, _, err := p.FetchWeather(context.Background(), area.ID, weather.Horizon{Start: t0, End: t1}); err != nil {
		t.Fatalf("FetchWeather: %v", err)
	}
	if _, _, err := p.FetchWeather(context.Background(), area.ID, weather.Horizon{Start: t0, End: t1}); err != nil {
		t.Fatalf("second FetchWeather: %v", err)
	}

	if _, err := p.CalculateRoute(area.ID, 1, testVesselPolar(), DefaultTimeWindow(t0), 0); err == nil {
		t.Error("expected CalculateRoute against a stale version to fail")
	}
}

func TestPipelineBuildMeshRejectsInvalidControlPoints(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.BuildMesh([]mesh.ControlPoint{{Kind: mesh.Start}}, nil); err == nil {
		t.Error("expected BuildMesh to reject a single control point")
	}
}

func TestPipelineCalculateRouteUnknownMesh(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.CalculateRoute("missing", 1, testVesselPolar(), DefaultTimeWindow(time.Now()), 0); err == nil {
		t.Error("expected CalculateRoute against an unknown mesh id to fail")
	}
}
