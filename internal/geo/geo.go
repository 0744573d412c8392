// Package geo implements the spherical-earth geodesy kernel: great-circle
// distance, bearing, destination and midpoint, plus the nautical-mile,
// meter and degree conversions the rest of the core is built on.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusM is the mean earth radius in meters used for all distance and
// destination calculations.
const EarthRadiusM = 6371000.0

// EarthRadiusNM is the mean earth radius in nautical miles.
const EarthRadiusNM = 3440.065

const metersPerNM = 1852.0

// Point is a WGS84 geodetic position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Heading is degrees clockwise from true north, in [0, 360).
type Heading = float64

// Bearing is a computed forward azimuth; same representation as Heading.
type Bearing = float64

func toRadians(d float64) float64 { return d * math.Pi / 180.0 }
func toDegrees(r float64) float64 { return r * 180.0 / math.Pi }

// wrap360 normalizes a bearing into [0, 360).
func wrap360(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// NormalizeSigned normalizes an angle into (-180, 180].
func NormalizeSigned(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d <= -180 {
		d += 360
	}
	if d > 180 {
		d -= 360
	}
	return d
}

// MetersToNM converts meters to nautical miles.
func MetersToNM(m float64) float64 { return m / metersPerNM }

// NMToMeters converts nautical miles to meters.
func NMToMeters(nm float64) float64 { return nm * metersPerNM }

func validate(a, b Point) error {
	if math.IsNaN(a.Lat) || math.IsNaN(a.Lon) || math.IsNaN(b.Lat) || math.IsNaN(b.Lon) {
		return fmt.Errorf("geo: NaN coordinate in %+v / %+v", a, b)
	}
	return nil
}

// GreatCircleDistance returns the haversine great-circle distance between a
// and b, in meters. Grounded on the teacher's latlon/latlon-haversine.go.
func GreatCircleDistance(a, b Point) (float64, error) {
	if err := validate(a, b); err != nil {
		return 0, err
	}
	φ1, φ2 := toRadians(a.Lat), toRadians(b.Lat)
	Δφ := φ2 - φ1
	Δλ := toRadians(b.Lon - a.Lon)

	s := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	δ := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return EarthRadiusM * δ, nil
}

// InitialBearing returns the initial forward azimuth from a to b.
func InitialBearing(a, b Point) (Bearing, error) {
	if err := validate(a, b); err != nil {
		return 0, err
	}
	φ1, φ2 := toRadians(a.Lat), toRadians(b.Lat)
	Δλ := toRadians(b.Lon - a.Lon)

	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	y := math.Sin(Δλ) * math.Cos(φ2)
	θ := math.Atan2(y, x)

	return wrap360(toDegrees(θ)), nil
}

// DistanceAndBearing is a convenience combining GreatCircleDistance and
// InitialBearing without recomputing the shared trig terms twice.
func DistanceAndBearing(a, b Point) (meters float64, bearing Bearing, err error) {
	if err = validate(a, b); err != nil {
		return 0, 0, err
	}
	φ1, φ2 := toRadians(a.Lat), toRadians(b.Lat)
	Δφ := φ2 - φ1
	Δλ := toRadians(b.Lon - a.Lon)

	s := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	δ := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	meters = EarthRadiusM * δ

	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	y := math.Sin(Δλ) * math.Cos(φ2)
	bearing = wrap360(toDegrees(math.Atan2(y, x)))
	return meters, bearing, nil
}

// Destination returns the point reached by travelling distanceM meters along
// bearing from a, on the spherical-earth model. Grounded on the teacher's
// latlon/latlon-zezo.go destination formula.
func Destination(a Point, bearing Bearing, distanceM float64) (Point, error) {
	if math.IsNaN(a.Lat) || math.IsNaN(a.Lon) || math.IsNaN(bearing) || math.IsNaN(distanceM) {
		return Point{}, fmt.Errorf("geo: NaN input to Destination(%+v, %f, %f)", a, bearing, distanceM)
	}
	φ1 := toRadians(a.Lat)
	λ1 := toRadians(a.Lon)
	θ := toRadians(bearing)
	δ := distanceM / EarthRadiusM

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))
	λ2 = math.Mod(λ2+math.Pi, 2*math.Pi) - math.Pi
	if λ2 < -math.Pi {
		λ2 += 2 * math.Pi
	}

	return Point{Lat: toDegrees(φ2), Lon: toDegrees(λ2)}, nil
}

// Midpoint returns the geographic midpoint of the great-circle segment a-b.
func Midpoint(a, b Point) (Point, error) {
	if err := validate(a, b); err != nil {
		return Point{}, err
	}
	φ1, λ1 := toRadians(a.Lat), toRadians(a.Lon)
	φ2 := toRadians(b.Lat)
	Δλ := toRadians(b.Lon - a.Lon)

	bx := math.Cos(φ2) * math.Cos(Δλ)
	by := math.Cos(φ2) * math.Sin(Δλ)

	φm := math.Atan2(math.Sin(φ1)+math.Sin(φ2), math.Sqrt((math.Cos(φ1)+bx)*(math.Cos(φ1)+bx)+by*by))
	λm := λ1 + math.Atan2(by, math.Cos(φ1)+bx)

	return Point{Lat: toDegrees(φm), Lon: toDegrees(wrapRad(λm))}, nil
}

func wrapRad(r float64) float64 {
	r = math.Mod(r+math.Pi, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	return r - math.Pi
}

// EquirectangularDistance returns a fast equirectangular approximation of the
// distance between a and b, in meters. Grounded on
// other_examples/azybler-map_router__haversine.go's EquirectangularDist.
func EquirectangularDistance(a, b Point) float64 {
	cosLat := math.Cos(toRadians((a.Lat + b.Lat) / 2))
	x := toRadians(b.Lon-a.Lon) * cosLat
	y := toRadians(b.Lat - a.Lat)
	return math.Sqrt(x*x+y*y) * EarthRadiusM
}

// BoundingBox is an axis-aligned lat/lon box.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Expand grows the box outward by distM meters in every direction.
func (b BoundingBox) Expand(distM float64) BoundingBox {
	dLat := toDegrees(distM / EarthRadiusM)
	midLat := (b.MinLat + b.MaxLat) / 2
	cosLat := math.Cos(toRadians(midLat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := toDegrees(distM / (EarthRadiusM * cosLat))
	return BoundingBox{
		MinLat: b.MinLat - dLat,
		MaxLat: b.MaxLat + dLat,
		MinLon: b.MinLon - dLon,
		MaxLon: b.MaxLon + dLon,
	}
}

// Contains reports whether p lies within the box.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// BoundingBoxOf returns the smallest box containing all the given points.
func BoundingBoxOf(points []Point) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	box := BoundingBox{MinLat: points[0].Lat, MaxLat: points[0].Lat, MinLon: points[0].Lon, MaxLon: points[0].Lon}
	for _, p := range points[1:] {
		if p.Lat < box.MinLat {
			box.MinLat = p.Lat
		}
		if p.Lat > box.MaxLat {
			box.MaxLat = p.Lat
		}
		if p.Lon < box.MinLon {
			box.MinLon = p.Lon
		}
		if p.Lon > box.MaxLon {
			box.MaxLon = p.Lon
		}
	}
	return box
}
