// Package land implements the GeometryPort reference adapter: a 1-bit-per-
// cell world raster answering is_land, distance_to_land and
// segment_crosses_land queries. Grounded on the teacher's land/land.go
// bitset addressing.
package land

import (
	"math"
	"os"

	log "github.com/sirupsen/logrus"
)

// Port is the GeometryPort contract the core consumes (spec.md §6).
type Port interface {
	IsLand(lat, lon float64) (bool, error)
	DistanceToLand(lat, lon float64) (float64, error)
	SegmentCrossesLand(a, b Point, withinM float64) (bool, error)
}

// Point is a bare lat/lon pair; land has no dependency on internal/geo so it
// stays a leaf package, mirroring the teacher's land package which has no
// imports from the rest of the tree besides logrus.
type Point struct {
	Lat, Lon float64
}

// Raster is a dense equirectangular world bitmap, one bit per cell: 1 = land,
// 0 = sea. Grounded on the teacher's Land struct and IsLand addressing math.
type Raster struct {
	lat0, latN float64
	lon0, lonN float64
	step       float64
	data       []byte
}

// Load reads a raster file in the teacher's format: lat0=-90, latN=90,
// lon0=-180, step=360/43200 (~0.93km equatorial resolution), packed 8
// cells/byte, row-major by latitude then longitude.
func Load(path string) (*Raster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Errorf("land: error reading raster file %q", path)
		return nil, err
	}
	return &Raster{
		lat0: -90.0,
		latN: 90.0,
		lon0: -180.0,
		lonN: 180.0 - 360.0/43200.0,
		step: 360.0 / 43200.0,
		data: b,
	}, nil
}

func (r *Raster) cellIndex(lat, lon float64) int {
	i := int(math.Round(lat / r.step))
	j := int(math.Round(lon / r.step))

	i0 := int(r.lat0 / r.step)
	j0 := int(r.lon0 / r.step)
	jN := int(r.lonN / r.step)

	di := i - i0
	dj := j - j0
	nj := jN - j0 + 1

	return di*nj + dj
}

func (r *Raster) bit(p int) bool {
	if p < 0 || p/8 >= len(r.data) {
		return false
	}
	pB := p / 8
	pb := uint(p % 8)
	return ((r.data[pB] >> (7 - pb)) & 0x01) == 0x01
}

// IsLand reports whether the cell containing (lat, lon) is land.
func (r *Raster) IsLand(lat, lon float64) (bool, error) {
	return r.bit(r.cellIndex(lat, lon)), nil
}

// DistanceToLand returns an approximate distance in meters to the nearest
// land cell, searching outward in a growing ring of raster cells (bounded by
// maxRingCells so open-ocean queries terminate quickly with "far enough").
// Approximate degrees-to-meters conversion uses a local equirectangular
// scale, adequate at the resolution this is consulted at (mesh shoreline
// clearance, tens to low-hundreds of meters).
func (r *Raster) DistanceToLand(lat, lon float64) (float64, error) {
	const maxRingCells = 400 // ~ (400 * step) degrees search radius
	isLand, _ := r.IsLand(lat, lon)
	if isLand {
		return 0, nil
	}
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	metersPerDegLat := math.Pi / 180 * 6371000.0
	metersPerDegLon := metersPerDegLat * cosLat

	for ring := 1; ring <= maxRingCells; ring++ {
		best := math.MaxFloat64
		found := false
		lo, hi := -ring, ring
		for di := lo; di <= hi; di++ {
			for dj := lo; dj <= hi; dj++ {
				if di != lo && di != hi && dj != lo && dj != hi {
					continue // only the ring perimeter
				}
				plat := lat + float64(di)*r.step
				plon := lon + float64(dj)*r.step
				land, _ := r.IsLand(plat, plon)
				if !land {
					continue
				}
				found = true
				dLat := float64(di) * r.step * metersPerDegLat
				dLon := float64(dj) * r.step * metersPerDegLon
				d := math.Sqrt(dLat*dLat + dLon*dLon)
				if d < best {
					best = d
				}
			}
		}
		if found {
			return best, nil
		}
	}
	return float64(maxRingCells) * r.step * metersPerDegLat, nil
}

// SegmentCrossesLand samples the segment a-b at evenly spaced points (at
// least 16 steps, and a step no coarser than withinM) and reports whether any
// sample point is within withinM of land.
func (r *Raster) SegmentCrossesLand(a, b Point, withinM float64) (bool, error) {
	n := 16
	if withinM > 0 {
		metersPerDegLat := math.Pi / 180 * 6371000.0
		cosLat := math.Cos((a.Lat + b.Lat) / 2 * math.Pi / 180)
		dy := (b.Lat - a.Lat) * metersPerDegLat
		dx := (b.Lon - a.Lon) * metersPerDegLat * cosLat
		if steps := int(math.Ceil(math.Hypot(dx, dy) / withinM)); steps > n {
			n = steps
		}
	}
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		lat := a.Lat + (b.Lat-a.Lat)*t
		lon := a.Lon + (b.Lon-a.Lon)*t
		d, err := r.DistanceToLand(lat, lon)
		if err != nil {
			return false, err
		}
		if d < withinM {
			return true, nil
		}
	}
	return false, nil
}
