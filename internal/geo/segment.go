package geo

import "math"

// DistanceToSegmentM returns the local-planar distance in meters from p to
// the segment a-b, projecting around the segment's mean latitude. Adequate
// for corridor-membership tests over sea-basin scales, the same flattening
// project() uses for the polygon tests above.
func DistanceToSegmentM(p, a, b Point) float64 {
	refLat := (a.Lat + b.Lat) / 2
	px, py := project(p, refLat)
	ax, ay := project(a, refLat)
	bx, by := project(b, refLat)

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq < 1e-9 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx, cy := ax+t*dx, ay+t*dy
	return math.Hypot(px-cx, py-cy)
}

// GridPoints rasterizes box into a regular lat/lon grid with cell spacing of
// approximately spacingM meters, using a local equirectangular scale. Used
// by the mesh builder to lay down candidate vertices per tier.
func GridPoints(box BoundingBox, spacingM float64) []Point {
	if spacingM <= 0 {
		return nil
	}
	midLat := (box.MinLat + box.MaxLat) / 2
	cosLat := math.Cos(toRadians(midLat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLat := toDegrees(spacingM / EarthRadiusM)
	dLon := toDegrees(spacingM / (EarthRadiusM * cosLat))
	if dLat <= 0 || dLon <= 0 {
		return nil
	}

	var out []Point
	for lat := box.MinLat; lat <= box.MaxLat+dLat/2; lat += dLat {
		for lon := box.MinLon; lon <= box.MaxLon+dLon/2; lon += dLon {
			out = append(out, Point{Lat: lat, Lon: lon})
		}
	}
	return out
}
