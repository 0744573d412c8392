package weather

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
)

const (
	fetchRetries    = 1
	fetchBackoffMin = 500 * time.Millisecond
)

// Bind runs the full C4 weather-binding algorithm against area: lay a
// weather_grid_km grid over the bounding box, keep the centroids inside the
// mesh's navigable convex hull, reduce to at most max_weather_points via
// deterministic k-means, fetch forecasts for the survivors, and attach a
// nearest-three IDW reference to every navigable vertex.
func Bind(ctx context.Context, area *mesh.MeshedArea, horizon Horizon, port Port) (*WeatheredMesh, error) {
	if port == nil {
		return nil, naverrs.New(naverrs.WeatherUnavailable, "no weather port configured")
	}
	if horizon.End.Before(horizon.Start) {
		return nil, naverrs.New(naverrs.InvalidInput, "horizon end precedes start")
	}

	spacingM := area.Params.WeatherGridKM * 1000
	grid := geo.GridPoints(area.BoundingBox, spacingM)

	hull := navigableHull(area)
	var inside []geo.Point
	for _, p := range grid {
		if len(hull) < 3 || geo.PointInConvexPolygon(p, hull) {
			inside = append(inside, p)
		}
	}
	if len(inside) == 0 {
		inside = append(inside, navigableCentroidFallback(area))
	}

	centroids := reduceCentroids(inside, area.Params.MaxWeatherPoints)

	samples, hasSample, validTimes, err := fetchWithRetry(ctx, port, centroids, horizon)
	if err != nil {
		return nil, err
	}

	wm := &WeatheredMesh{
		MeshID:      string(area.ID),
		BoundingBox: area.BoundingBox,
		Centroids:   centroids,
		ValidTimes:  validTimes,
		Samples:     samples,
		HasSample:   hasSample,
		vertexRefs:  make(map[uint32]centroidRef),
		Horizon:     horizon,
		Version:     1,
	}

	for _, v := range area.Vertices {
		if !v.IsNavigable {
			continue
		}
		ref, ok := nearestCentroidRef(v.Position, centroids, hasSample)
		if !ok {
			return nil, naverrs.New(naverrs.WeatherUnavailable, "no reachable weather centroid for vertex %d", v.ID)
		}
		wm.vertexRefs[uint32(v.ID)] = ref
	}

	return wm, nil
}

// navigableHull returns the convex hull of the mesh's navigable vertex
// positions, used to discard weather centroids that fall on open land far
// from any sailable water.
func navigableHull(area *mesh.MeshedArea) []geo.Point {
	var pts []geo.Point
	for _, v := range area.Vertices {
		if v.IsNavigable {
			pts = append(pts, v.Position)
		}
	}
	if len(pts) < 3 {
		return pts
	}
	return geo.ConvexHull(pts)
}

func navigableCentroidFallback(area *mesh.MeshedArea) geo.Point {
	for _, v := range area.Vertices {
		if v.IsNavigable {
			return v.Position
		}
	}
	c := area.BoundingBox
	return geo.Point{Lat: (c.MinLat + c.MaxLat) / 2, Lon: (c.MinLon + c.MaxLon) / 2}
}

// fetchWithRetry calls port.Fetch once, retries once with a fixed backoff
// on any terminal error, then gives up and surfaces WeatherUnavailable.
// Partial failures (some centroids with zero samples) are not retried here;
// Bind tolerates them per-vertex as long as some centroid remains reachable.
func fetchWithRetry(ctx context.Context, port Port, centroids []geo.Point, h Horizon) ([][]WeatherSample, [][]bool, []time.Time, error) {
	var lastErr error
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		if attempt > 0 {
			log.WithField("attempt", attempt).Warn("weather: retrying forecast fetch")
			select {
			case <-time.After(fetchBackoffMin * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, nil, nil, naverrs.Wrap(naverrs.Cancelled, ctx.Err(), "weather fetch cancelled")
			}
		}
		samples, hasSample, validTimes, err := fetchOnce(ctx, port, centroids, h)
		if err == nil {
			return samples, hasSample, validTimes, nil
		}
		lastErr = err
	}
	return nil, nil, nil, naverrs.Wrap(naverrs.WeatherUnavailable, lastErr, "weather port exhausted retries")
}

func fetchOnce(ctx context.Context, port Port, centroids []geo.Point, h Horizon) ([][]WeatherSample, [][]bool, []time.Time, error) {
	sampleCh, errCh := port.Fetch(ctx, centroids, h.Start, h.End)

	centroidIndex := make(map[geo.Point]int, len(centroids))
	for i, c := range centroids {
		centroidIndex[c] = i
	}
	timeIndex := map[int64]int{}
	var validTimes []time.Time

	perCentroid := make([][]WeatherSample, len(centroids))
	hasSample := make([][]bool, len(centroids))

	for s := range sampleCh {
		ci, ok := centroidIndex[s.Position]
		if !ok {
			continue
		}
		key := s.ValidTime.UTC().UnixNano()
		ti, ok := timeIndex[key]
		if !ok {
			ti = len(validTimes)
			timeIndex[key] = ti
			validTimes = append(validTimes, s.ValidTime)
			for c := range perCentroid {
				perCentroid[c] = append(perCentroid[c], WeatherSample{})
				hasSample[c] = append(hasSample[c], false)
			}
		}
		perCentroid[ci][ti] = s
		hasSample[ci][ti] = true
	}

	if err := <-errCh; err != nil {
		return nil, nil, nil, err
	}

	sortByValidTime(validTimes, perCentroid, hasSample)

	reachable := 0
	for _, row := range hasSample {
		for _, ok := range row {
			if ok {
				reachable++
				break
			}
		}
	}
	if reachable == 0 {
		return nil, nil, nil, naverrs.New(naverrs.WeatherUnavailable, "weather port returned no samples for any centroid")
	}

	return perCentroid, hasSample, validTimes, nil
}

// nearestCentroidRef finds up to three centroids nearest p that have at
// least one sample, and returns IDW weights normalized to sum to 1.
func nearestCentroidRef(p geo.Point, centroids []geo.Point, hasSample [][]bool) (centroidRef, bool) {
	type cand struct {
		idx int
		d   float64
	}
	var cands []cand
	for i, c := range centroids {
		if !anyTrue(hasSample[i]) {
			continue
		}
		d, err := geo.GreatCircleDistance(p, c)
		if err != nil {
			continue
		}
		cands = append(cands, cand{i, d})
	}
	if len(cands) == 0 {
		return centroidRef{}, false
	}
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].d < cands[j-1].d; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
	if len(cands) > 3 {
		cands = cands[:3]
	}

	var ref centroidRef
	ref.N = len(cands)
	var weightSum float64
	rawWeights := make([]float64, len(cands))
	for i, c := range cands {
		ref.Indices[i] = c.idx
		w := 1.0 / math.Max(c.d, 1.0)
		rawWeights[i] = w
		weightSum += w
	}
	for i, w := range rawWeights {
		ref.Weights[i] = w / weightSum
	}
	return ref, true
}

// sortByValidTime reorders the time axis (shared across all centroid rows)
// into chronological order, since samples arrive off sampleCh in whatever
// order the port happened to emit them.
func sortByValidTime(validTimes []time.Time, perCentroid [][]WeatherSample, hasSample [][]bool) {
	n := len(validTimes)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := 1; i < n; i++ {
		for j := i; j > 0 && validTimes[order[j]].Before(validTimes[order[j-1]]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	sortedTimes := make([]time.Time, n)
	for i, o := range order {
		sortedTimes[i] = validTimes[o]
	}
	copy(validTimes, sortedTimes)

	for c := range perCentroid {
		row, flags := perCentroid[c], hasSample[c]
		sortedRow := make([]WeatherSample, n)
		sortedFlags := make([]bool, n)
		for i, o := range order {
			sortedRow[i] = row[o]
			sortedFlags[i] = flags[o]
		}
		copy(row, sortedRow)
		copy(flags, sortedFlags)
	}
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}
