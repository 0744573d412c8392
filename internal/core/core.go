// Package core wires the mesh, weather and router packages behind the
// three public operations (build_mesh, fetch_weather, calculate_route)
// plus the supporting store/telemetry/notify ports, grounded on how the
// teacher's api/api.go holds a single server struct over the land/wind/xmpp
// ports and calls straight into route.Run.
package core

import (
	"context"
	"time"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/land"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/notify"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/polar"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/router"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/store"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/telemetry"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

// notifyFailureKinds is the naverrs.Kind set that pages an operator;
// everything else is a routine client error, not an incident.
var notifyFailureKinds = map[naverrs.Kind]bool{
	naverrs.GeometryUnavailable: true,
	naverrs.NetworkError:        true,
}

// Pipeline exposes the three core operations over the ports the teacher
// wires at startup (land, weather, a mesh/weather store) plus telemetry and
// an optional operator notifier.
type Pipeline struct {
	Geometry   land.Port
	Weather    weather.Port
	Store      *store.MeshStore
	Telemetry  *telemetry.Collector
	Notifier   notify.Notifier
}

// New builds a Pipeline; a nil Notifier is replaced with a no-op so callers
// never need a nil check.
func New(geometry land.Port, weatherPort weather.Port, meshStore *store.MeshStore, collector *telemetry.Collector, notifier notify.Notifier) *Pipeline {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Pipeline{Geometry: geometry, Weather: weatherPort, Store: meshStore, Telemetry: collector, Notifier: notifier}
}

// BuildMesh runs C3 and stores the resulting MeshedArea under its own id.
func (p *Pipeline) BuildMesh(controlPoints []mesh.ControlPoint, params *mesh.Params) (*mesh.MeshedArea, error) {
	timer := p.Telemetry.StartStage("mesh")
	defer timer.Stop()

	if err := mesh.ValidateControlPoints(controlPoints); err != nil {
		p.recordFailure("mesh", naverrs.InvalidInput)
		return nil, naverrs.Wrap(naverrs.InvalidInput, err, "invalid control points")
	}

	effective := mesh.Params{}
	if params != nil {
		effective = *params
	} else {
		effective = mesh.AutoParams(controlPoints)
	}

	area, err := mesh.Build(mesh.BuildInput{ControlPoints: controlPoints, Params: effective, Geometry: p.Geometry})
	if err != nil {
		p.recordFailure("mesh", kindOf(err))
		p.maybeNotify(err)
		return nil, err
	}

	p.Telemetry.MeshVertices.Observe(float64(len(area.Vertices)))
	p.Store.Put(area)
	return area, nil
}

// FetchWeather runs C4 for a previously built mesh id and attaches the
// result to the store, returning the new version counter.
func (p *Pipeline) FetchWeather(ctx context.Context, id mesh.MeshedAreaID, horizon weather.Horizon) (*weather.WeatheredMesh, int, error) {
	timer := p.Telemetry.StartStage("weather")
	defer timer.Stop()

	area, ok := p.Store.Get(id)
	if !ok {
		p.recordFailure("weather", naverrs.InvalidInput)
		return nil, 0, naverrs.New(naverrs.InvalidInput, "no mesh with id %s", id)
	}

	wm, err := weather.Bind(ctx, area, horizon, p.Weather)
	if err != nil {
		p.recordFailure("weather", kindOf(err))
		p.maybeNotify(err)
		return nil, 0, err
	}

	version := p.Store.AttachWeather(id, wm)
	return wm, version, nil
}

// CalculateRoute runs C5 against the current weathered mesh for id, failing
// if wantVersion no longer matches (the caller fetched weather, got
// version N, and must pass it back here so a race with a newer fetch_weather
// call is detected rather than silently routed against stale data).
func (p *Pipeline) CalculateRoute(id mesh.MeshedAreaID, wantVersion int, vp *polar.VesselPolar, window router.TimeWindow, criticalWaveM float64) (*router.RouteResult, error) {
	timer := p.Telemetry.StartStage("route")
	defer timer.Stop()

	area, ok := p.Store.Get(id)
	if !ok {
		p.recordFailure("route", naverrs.InvalidInput)
		return nil, naverrs.New(naverrs.InvalidInput, "no mesh with id %s", id)
	}
	if err := p.Store.CheckVersion(id, wantVersion); err != nil {
		p.recordFailure("route", kindOf(err))
		return nil, err
	}
	wm, _, ok := p.Store.GetWeather(id)
	if !ok {
		p.recordFailure("route", naverrs.WeatherUnavailable)
		return nil, naverrs.New(naverrs.WeatherUnavailable, "no weathered mesh for %s", id)
	}

	result, err := router.CalculateRoute(router.Input{
		Weathered:       wm,
		Mesh:            area,
		Polar:           vp,
		ControlVertices: area.ControlVertices,
		Window:          window,
		CriticalWaveM:   criticalWaveM,
		Telemetry:       p.Telemetry,
	})
	if err != nil {
		p.recordFailure("route", kindOf(err))
		p.maybeNotify(err)
		return nil, err
	}

	for range result.Variants {
		p.Telemetry.RecordCandidateSuccess()
	}
	return result, nil
}

func (p *Pipeline) recordFailure(stage string, kind naverrs.Kind) {
	p.Telemetry.RecordStageError(stage, string(kind))
}

func (p *Pipeline) maybeNotify(err error) {
	if e, ok := err.(*naverrs.Error); ok && notifyFailureKinds[e.Kind] {
		_ = p.Notifier.Send("nav-server pipeline failure: " + e.Error())
	}
}

func kindOf(err error) naverrs.Kind {
	if e, ok := err.(*naverrs.Error); ok {
		return e.Kind
	}
	return naverrs.InvalidInput
}

// DefaultTimeWindow builds a single-departure TimeWindow for callers that
// don't need a search window, matching the teacher's single-departure
// route.Run call shape.
func DefaultTimeWindow(depart time.Time) router.TimeWindow {
	return router.TimeWindow{Start: depart, End: depart, NumChecks: 1}
}
