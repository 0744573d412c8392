// Package weather implements the weather binder (C4): choosing a bounded
// set of sampling locations over a mesh, fetching forecasts for them
// through an injected port, and exposing spatio-temporal interpolation over
// the result. Grounded on the teacher's wind package (wind.go, winds.go),
// generalized from a single GRIB grid to an arbitrary WeatherPort.
package weather

import (
	"context"
	"time"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
)

// WeatherSample is one forecast reading at a position and valid time. Wind
// direction is the source direction, meteorological convention (the
// direction the wind is blowing FROM).
type WeatherSample struct {
	Position       geo.Point `json:"position"`
	ValidTime      time.Time `json:"valid_time"`
	WindSpeedKt    float64   `json:"wind_speed_kt"`
	WindDirDegFrom float64   `json:"wind_dir_deg_from"`
	WaveHeightM    float64   `json:"wave_height_m"`
}

// Horizon is the [start, end] time range a weather binding covers.
type Horizon struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (h Horizon) Contains(t time.Time) bool {
	return !t.Before(h.Start) && !t.After(h.End)
}

// Port is the WeatherPort contract the binder consumes (spec.md §6). Fetch
// streams samples for the requested points and time range over the returned
// channel; the error channel carries at most one terminal error and is
// closed after the sample channel closes. Implementations normalize wind
// speed to knots at this boundary -- WeatherSample.WindSpeedKt is always
// canonical knots regardless of the provider's native units.
type Port interface {
	Fetch(ctx context.Context, points []geo.Point, from, to time.Time) (<-chan WeatherSample, <-chan error)
}

// centroidRef is the persisted per-vertex attachment: up to three nearby
// centroid indices and their normalized IDW weights, mirroring the wire
// layout's { centroid_refs[3], weights[3] }.
type centroidRef struct {
	Indices [3]int     `json:"centroid_refs"`
	Weights [3]float64 `json:"weights"`
	N       int        `json:"n"` // how many of the 3 slots are populated
}

// WeatheredMesh is a MeshedArea plus a bounded set of weather centroids and
// their time series, immutable once returned by Bind.
type WeatheredMesh struct {
	MeshID      string
	BoundingBox geo.BoundingBox

	Centroids   []geo.Point       `json:"centroids"`
	ValidTimes  []time.Time       `json:"valid_times"`
	Samples     [][]WeatherSample `json:"samples"` // Samples[centroid][validTimeIdx]; entries may be zero-value if that centroid/time has no data
	HasSample   [][]bool          `json:"-"`

	vertexRefs map[uint32]centroidRef // by mesh.VertexID, populated for persistence completeness

	Horizon Horizon `json:"horizon"`
	Version int     `json:"version"`
}
