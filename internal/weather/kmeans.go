package weather

import (
	"sort"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
)

// reduceCentroids clusters points down to at most k representatives using a
// deterministic k-means: seeds are chosen by sorting points lexicographically
// (lat then lon) and picking an even stride through that order, never by
// randomness, so the same centroid grid always reduces to the same result
// (spec.md's reproducibility requirement on RouteResult extends to the
// weather binding that feeds it).
func reduceCentroids(points []geo.Point, k int) []geo.Point {
	if k <= 0 || len(points) <= k {
		return points
	}

	sorted := make([]geo.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Lat != sorted[j].Lat {
			return sorted[i].Lat < sorted[j].Lat
		}
		return sorted[i].Lon < sorted[j].Lon
	})

	centroids := make([]geo.Point, k)
	stride := float64(len(sorted)) / float64(k)
	for i := 0; i < k; i++ {
		centroids[i] = sorted[int(float64(i)*stride)]
	}

	assignment := make([]int, len(sorted))
	const maxIter = 25
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range sorted {
			best, bestD := 0, sqDist(p, centroids[0])
			for c := 1; c < k; c++ {
				if d := sqDist(p, centroids[c]); d < bestD {
					best, bestD = c, d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		sumLat := make([]float64, k)
		sumLon := make([]float64, k)
		count := make([]int, k)
		for i, p := range sorted {
			c := assignment[i]
			sumLat[c] += p.Lat
			sumLon[c] += p.Lon
			count[c]++
		}
		for c := 0; c < k; c++ {
			if count[c] > 0 {
				centroids[c] = geo.Point{Lat: sumLat[c] / float64(count[c]), Lon: sumLon[c] / float64(count[c])}
			}
		}
		if !changed {
			break
		}
	}
	return centroids
}

func sqDist(a, b geo.Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}
