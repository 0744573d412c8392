package router

import (
	"container/heap"
	"math"
	"time"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/polar"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

// maneuverNoiseFloorDeg is the |TWA| band around head-to-wind: a sign flip
// whose two sides both fall within it is not treated as a tack. Without it, a
// boat sailing almost
// dead into the wind would register a tack on every vertex from floating
// point noise alone.
const maneuverNoiseFloorDeg = 5.0

// tackJibeThresholdDeg splits a sign-flip maneuver into a tack (bow through
// the wind, smaller |TWA|) or a jibe (stern through the wind, larger |TWA|).
const tackJibeThresholdDeg = 90.0

// waveSpeedPenaltyCap is the maximum fraction of boat speed sea state can
// take away, per spec.md §4.5's v_eff formula.
const waveSpeedPenaltyCap = 0.5

// state is one entry in the Dijkstra priority queue: a vertex reached at a
// given arrival time, carrying the signed TWA of the edge that reached it
// (needed to detect a maneuver on the next leg) and the maneuver count so
// far (a tie-breaker, not part of the edge cost).
type state struct {
	vertex    mesh.VertexID
	arrival   time.Time
	maneuvers int
	twa       float64
	hasTWA    bool
	index     int // heap bookkeeping
}

type stateQueue []*state

func (q stateQueue) Len() int { return len(q) }
func (q stateQueue) Less(i, j int) bool {
	if !q[i].arrival.Equal(q[j].arrival) {
		return q[i].arrival.Before(q[j].arrival)
	}
	if q[i].maneuvers != q[j].maneuvers {
		return q[i].maneuvers < q[j].maneuvers
	}
	return q[i].vertex < q[j].vertex
}
func (q stateQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *stateQueue) Push(x interface{}) {
	s := x.(*state)
	s.index = len(*q)
	*q = append(*q, s)
}
func (q *stateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return s
}

// finalized is what the search remembers about the best-known arrival at a
// vertex, plus enough to reconstruct the path and the segment that reached
// it.
type finalized struct {
	arrival   time.Time
	maneuvers int
	twa       float64
	hasTWA    bool
	prev      mesh.VertexID
	hasPrev   bool
	segment   RouteSegment
}

// edgeTime implements spec.md §4.5's time-dependent edge cost oracle: the
// wall-clock duration to traverse edge e departing at depTime, plus the
// maneuver penalty if entering TWA differs in sign from the previous edge's
// TWA. Returns (0, RouteSegment{}, false) when the edge is infeasible (wind
// over the polar's ceiling, zero boat speed, or weather unavailable at
// depTime).
func edgeTime(wm *weather.WeatheredMesh, area *mesh.MeshedArea, vp *polar.VesselPolar, e mesh.MeshEdge, depTime time.Time, prevTWA float64, hasPrevTWA bool, criticalWaveM float64) (time.Duration, RouteSegment, bool) {
	from := area.Vertex(e.From).Position
	to := area.Vertex(e.To).Position
	mid, err := geo.Midpoint(from, to)
	if err != nil {
		return 0, RouteSegment{}, false
	}

	windKt, windDirFrom, waveM, err := wm.Sample(mid, depTime)
	if err != nil {
		return 0, RouteSegment{}, false
	}
	if windKt > vp.MaxWind {
		return 0, RouteSegment{}, false
	}

	twa := geo.NormalizeSigned(windDirFrom - e.Bearing)
	boatSpeedKt := vp.BoatSpeed(twa, windKt)
	if boatSpeedKt <= 0 {
		return 0, RouteSegment{}, false
	}

	wavePenalty := waveM / criticalWaveM
	if wavePenalty > waveSpeedPenaltyCap {
		wavePenalty = waveSpeedPenaltyCap
	}
	if wavePenalty < 0 {
		wavePenalty = 0
	}
	effectiveSpeedKt := boatSpeedKt * (1 - wavePenalty)
	if effectiveSpeedKt <= 0 {
		return 0, RouteSegment{}, false
	}

	distanceNM := geo.MetersToNM(e.DistanceM)
	travelS := distanceNM / effectiveSpeedKt * 3600.0

	maneuverS := 0.0
	if hasPrevTWA && isManeuver(prevTWA, twa) {
		if smallerAbs(prevTWA, twa) < tackJibeThresholdDeg {
			maneuverS = vp.TackDuration
		} else {
			maneuverS = vp.JibeDuration
		}
	}

	totalS := travelS + maneuverS
	endTime := depTime.Add(time.Duration(totalS * float64(time.Second)))

	seg := RouteSegment{
		From:           e.From,
		To:             e.To,
		FromPos:        from,
		ToPos:          to,
		DistanceNM:     distanceNM,
		Bearing:        e.Bearing,
		TimeS:          distanceNM / boatSpeedKt * 3600.0,
		StartTime:      depTime,
		EndTime:        endTime,
		WindSpeedKt:    windKt,
		WindDirDegFrom: windDirFrom,
		WaveHeightM:    waveM,
		TWA:            twa,
		PointOfSail:    polar.PointOfSailOf(twa),
		BoatSpeedKt:    boatSpeedKt,
	}
	return time.Duration(totalS * float64(time.Second)), seg, true
}

// isManeuver reports whether going from prevTWA to twa crosses head-to-wind
// or its opposite, per the teacher's sign-flip detector (isochrone.go's
// `twa*src.twa < 0`), with a noise floor so near-zero TWA doesn't trigger a
// spurious tack.
func isManeuver(prevTWA, twa float64) bool {
	if math.Abs(prevTWA) < maneuverNoiseFloorDeg && math.Abs(twa) < maneuverNoiseFloorDeg {
		return false
	}
	return prevTWA*twa < 0
}

// worseOrEqual reports whether a candidate relaxation (newArrival, newManeuvers,
// newFrom) should be discarded in favor of what best[] already holds, applying
// spec.md §4.5's tie-break (fewer total maneuvers, then lower predecessor id)
// when the two arrival times are exactly equal.
func worseOrEqual(newArrival time.Time, newManeuvers int, newFrom mesh.VertexID, existingArrival time.Time, existingManeuvers int, existingFrom mesh.VertexID) bool {
	if newArrival.Before(existingArrival) {
		return false
	}
	if newArrival.After(existingArrival) {
		return true
	}
	if newManeuvers != existingManeuvers {
		return newManeuvers > existingManeuvers
	}
	return newFrom >= existingFrom
}

func smallerAbs(a, b float64) float64 {
	aa, ab := math.Abs(a), math.Abs(b)
	if aa < ab {
		return aa
	}
	return ab
}

// legDijkstra finds the time-optimal path from `from` to `to` over area's
// mesh, departing no earlier than depTime, sampling weather from wm. It
// returns the ordered RouteSegments and the arrival time at `to`.
func legDijkstra(wm *weather.WeatheredMesh, area *mesh.MeshedArea, vp *polar.VesselPolar, from, to mesh.VertexID, depTime time.Time, criticalWaveM float64) ([]RouteSegment, time.Time, error) {
	best := make(map[mesh.VertexID]finalized)
	visited := make(map[mesh.VertexID]bool)

	pq := &stateQueue{}
	heap.Init(pq)
	heap.Push(pq, &state{vertex: from, arrival: depTime})
	best[from] = finalized{arrival: depTime}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*state)
		if visited[cur.vertex] {
			continue
		}
		visited[cur.vertex] = true

		if cur.vertex == to {
			break
		}

		for _, e := range area.NeighborEdges(cur.vertex) {
			if visited[e.To] {
				continue
			}
			dur, seg, ok := edgeTime(wm, area, vp, e, cur.arrival, cur.twa, cur.hasTWA, criticalWaveM)
			if !ok {
				continue
			}
			arrival := cur.arrival.Add(dur)
			if !wm.Horizon.Contains(arrival) {
				continue
			}
			maneuvers := cur.maneuvers
			if cur.hasTWA && isManeuver(cur.twa, seg.TWA) {
				maneuvers++
			}

			existing, hasExisting := best[e.To]
			if hasExisting && worseOrEqual(arrival, maneuvers, cur.vertex, existing.arrival, existing.maneuvers, existing.prev) {
				continue
			}
			best[e.To] = finalized{
				arrival:   arrival,
				maneuvers: maneuvers,
				twa:       seg.TWA,
				hasTWA:    true,
				prev:      cur.vertex,
				hasPrev:   true,
				segment:   seg,
			}
			heap.Push(pq, &state{vertex: e.To, arrival: arrival, maneuvers: maneuvers, twa: seg.TWA, hasTWA: true})
		}
	}

	final, ok := best[to]
	if !ok || !visited[to] {
		return nil, time.Time{}, naverrs.New(naverrs.NoNavigablePath, "no navigable path from vertex %d to vertex %d departing %s", from, to, depTime)
	}

	var segments []RouteSegment
	v := to
	for v != from {
		f := best[v]
		segments = append(segments, f.segment)
		v = f.prev
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	return segments, final.arrival, nil
}
