package mesh

import "github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"

// Params is the effective mesh configuration, either user-provided or
// auto-derived per spec.md §4.3/§6.
type Params struct {
	CorridorNM       float64 `json:"corridor_nm"`
	Ring1M           float64 `json:"ring1_m"`
	Ring2M           float64 `json:"ring2_m"`
	Ring3M           float64 `json:"ring3_m"`
	Area1            float64 `json:"area1"` // m^2 per vertex, tier 1
	Area2            float64 `json:"area2"` // tier 2
	Area3            float64 `json:"area3"` // tier 3
	ShorelineAvoidM  float64 `json:"shoreline_avoid_m"`
	MaxWeatherPoints int     `json:"max_weather_points"`
	WeatherGridKM    float64 `json:"weather_grid_km"`
}

// preset is one row of the fixed auto-mesh parameter ladder from spec.md §6.
type preset struct {
	corridorNM                            func(minSegmentNM, spanNM float64) float64
	ring1, ring2, ring3                   float64
	area1, area2, area3                   float64
	maxWeatherPoints                      int
	weatherGridKM                         float64
	shorelineM                            float64
}

var presetLadder = []preset{
	{ // min<0.3 OR span<1
		corridorNM: func(min, span float64) float64 { return minOf(0.1, 0.4*min) },
		ring1: 50, ring2: 100, ring3: 200,
		area1: 200, area2: 500, area3: 1000,
		maxWeatherPoints: 5, weatherGridKM: 0.5, shorelineM: 50,
	},
	{ // min<1 OR span<3
		corridorNM: func(min, span float64) float64 { return minOf(0.3, 0.4*min) },
		ring1: 100, ring2: 250, ring3: 500,
		area1: 500, area2: 1500, area3: 4000,
		maxWeatherPoints: 10, weatherGridKM: 1.0, shorelineM: 100,
	},
	{ // span<8
		corridorNM: func(min, span float64) float64 { return minOf(1.0, 0.4*min) },
		ring1: 300, ring2: 800, ring3: 1500,
		area1: 2000, area2: 8000, area3: 25000,
		maxWeatherPoints: 20, weatherGridKM: 2.0, shorelineM: 150,
	},
	{ // otherwise
		corridorNM: func(min, span float64) float64 { return minOf3(3.0, 0.15*span, 0.4*min) },
		ring1: 500, ring2: 1500, ring3: 3000,
		area1: 3000, area2: 15000, area3: 60000,
		maxWeatherPoints: 40, weatherGridKM: 5.0, shorelineM: 200,
	},
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func minOf3(a, b, c float64) float64 {
	return minOf(a, minOf(b, c))
}

// SpanNM returns max(lat-span, lon-span) * 60, the span metric used to pick
// an auto-mesh preset bucket.
func SpanNM(controlPoints []ControlPoint) float64 {
	pts := make([]geo.Point, len(controlPoints))
	for i, cp := range controlPoints {
		pts[i] = cp.Position
	}
	box := geo.BoundingBoxOf(pts)
	latSpan := box.MaxLat - box.MinLat
	lonSpan := box.MaxLon - box.MinLon
	span := latSpan
	if lonSpan > span {
		span = lonSpan
	}
	return span * 60
}

// MinSegmentNM returns the minimum great-circle distance (in NM) between
// adjacent control points.
func MinSegmentNM(controlPoints []ControlPoint) float64 {
	min := -1.0
	for i := 1; i < len(controlPoints); i++ {
		d, err := geo.GreatCircleDistance(controlPoints[i-1].Position, controlPoints[i].Position)
		if err != nil {
			continue
		}
		nm := geo.MetersToNM(d)
		if min < 0 || nm < min {
			min = nm
		}
	}
	if min < 0 {
		min = 0
	}
	return min
}

// AutoParams derives the effective mesh Params from the fixed preset ladder
// in spec.md §6, choosing the bucket by the span/min-segment triggers and
// enforcing corridor_nm <= 0.4*min_segment_nm (spec.md §8 invariant 5).
func AutoParams(controlPoints []ControlPoint) Params {
	span := SpanNM(controlPoints)
	min := MinSegmentNM(controlPoints)
	if min == 0 {
		min = span // degenerate fallback: treat a zero-length leg set like one tight span
	}

	var p preset
	switch {
	case min < 0.3 || span < 1:
		p = presetLadder[0]
	case min < 1 || span < 3:
		p = presetLadder[1]
	case span < 8:
		p = presetLadder[2]
	default:
		p = presetLadder[3]
	}

	corridor := p.corridorNM(min, span)
	if min > 0 && corridor > 0.4*min {
		corridor = 0.4 * min
	}

	return Params{
		CorridorNM:       corridor,
		Ring1M:           p.ring1,
		Ring2M:           p.ring2,
		Ring3M:           p.ring3,
		Area1:            p.area1,
		Area2:            p.area2,
		Area3:            p.area3,
		ShorelineAvoidM:  p.shorelineM,
		MaxWeatherPoints: p.maxWeatherPoints,
		WeatherGridKM:    p.weatherGridKM,
	}
}
