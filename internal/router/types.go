// Package router implements the time-optimal route search (C5): a
// time-dependent Dijkstra over a WeatheredMesh, using arrival time at the
// head vertex as the relaxation key, plus maneuver penalties and the
// per-variant aggregate statistics. Grounded on the teacher's route
// package (isochrone.go's per-step boat-speed/TWA computation), generalized
// from an isochrone fan to a single-source-shortest-path search because the
// mesh is now an explicit graph rather than an expanding wavefront.
package router

import (
	"time"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/polar"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/telemetry"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

func errInvalid(format string, args ...interface{}) error {
	return naverrs.New(naverrs.InvalidInput, format, args...)
}

// DefaultCriticalWaveM is the sea-state penalty scale used when a caller
// doesn't override it: the speed penalty is wave height divided by this
// value, so it reaches its 50% cap at half this height (2 m).
// An Open Question decision recorded in DESIGN.md (spec.md leaves the
// default unspecified).
const DefaultCriticalWaveM = 4.0

// TimeWindow is the departure-time search window for a route request.
type TimeWindow struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	NumChecks int       `json:"num_checks"`
}

// Validate enforces spec.md §4.5/§6's TimeWindow invariants.
func (w TimeWindow) Validate(horizon weather.Horizon) error {
	if w.End.Before(w.Start) {
		return errInvalid("time window end precedes start")
	}
	if w.NumChecks < 1 || w.NumChecks > 24 {
		return errInvalid("num_checks must be in [1, 24], got %d", w.NumChecks)
	}
	if !horizon.Contains(w.Start) || !horizon.Contains(w.End) {
		return errInvalid("time window is not fully within the weathered mesh horizon")
	}
	return nil
}

// DepartureTimes returns the NumChecks candidate departure instants,
// uniformly spaced across [Start, End] inclusive of both endpoints.
func (w TimeWindow) DepartureTimes() []time.Time {
	if w.NumChecks <= 1 {
		return []time.Time{w.Start}
	}
	out := make([]time.Time, w.NumChecks)
	span := w.End.Sub(w.Start)
	for i := 0; i < w.NumChecks; i++ {
		frac := float64(i) / float64(w.NumChecks-1)
		out[i] = w.Start.Add(time.Duration(float64(span) * frac))
	}
	return out
}

// RouteSegment is one directed mesh edge traversed by a route, with the
// weather and polar outputs re-sampled at its midpoint and start time.
type RouteSegment struct {
	From           mesh.VertexID     `json:"from"`
	To             mesh.VertexID     `json:"to"`
	FromPos        geo.Point         `json:"from_pos"`
	ToPos          geo.Point         `json:"to_pos"`
	DistanceNM     float64           `json:"distance_nm"`
	Bearing        geo.Bearing       `json:"bearing"`
	TimeS          float64           `json:"time_s"` // distance_nm/boat_speed_kt*3600 per spec §3, consistent with the raw polar BoatSpeedKt; excludes both sea-state de-rating and any maneuver penalty
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	WindSpeedKt    float64           `json:"wind_speed_kt"`
	WindDirDegFrom float64           `json:"wind_dir_deg_from"`
	WaveHeightM    float64           `json:"wave_height_m"`
	TWA            float64           `json:"twa_deg"` // signed: positive starboard, negative port
	PointOfSail    polar.PointOfSail `json:"point_of_sail"`
	BoatSpeedKt    float64           `json:"boat_speed_kt"`
}

// DifficultyLevel buckets a RouteVariant's difficulty score.
type DifficultyLevel string

const (
	Easy        DifficultyLevel = "Easy"
	Moderate    DifficultyLevel = "Moderate"
	Challenging DifficultyLevel = "Challenging"
	Difficult   DifficultyLevel = "Difficult"
	Extreme     DifficultyLevel = "Extreme"
)

// DifficultyLevelOf buckets a [0,100] difficulty score per spec.md §4.5.
func DifficultyLevelOf(score float64) DifficultyLevel {
	switch {
	case score < 20:
		return Easy
	case score < 40:
		return Moderate
	case score < 60:
		return Challenging
	case score < 80:
		return Difficult
	default:
		return Extreme
	}
}

// RouteVariant is the result of one candidate departure time.
type RouteVariant struct {
	DepartureTime   time.Time       `json:"departure_time"`
	ArrivalTime     time.Time       `json:"arrival_time"`
	Segments        []RouteSegment  `json:"segments"`
	TotalTimeS      float64         `json:"total_time_s"`
	TotalDistanceNM float64         `json:"total_distance_nm"`
	AvgSpeedKt      float64         `json:"avg_speed_kt"`
	Tacks           int             `json:"tacks"`
	Jibes           int             `json:"jibes"`
	AvgWindKt       float64         `json:"avg_wind_kt"`
	AvgWaveM        float64         `json:"avg_wave_m"`
	DifficultyScore float64         `json:"difficulty_score"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	IsBest          bool            `json:"is_best"`
}

// RouteResult is the full output of a CalculateRoute call.
type RouteResult struct {
	Variants []RouteVariant `json:"variants"`
}

// Input gathers everything CalculateRoute needs for one request.
type Input struct {
	Weathered       *weather.WeatheredMesh
	Mesh            *mesh.MeshedArea
	Polar           *polar.VesselPolar
	ControlVertices []mesh.VertexID
	Window          TimeWindow
	CriticalWaveM   float64 // 0 => DefaultCriticalWaveM
	Telemetry       *telemetry.Collector // optional; nil disables per-candidate metrics
}
