// Package polar implements the vessel polar model (C2): boat speed as a
// bilinear function of true wind angle and true wind speed, point-of-sail
// classification and maneuver durations. Grounded on the teacher's
// polar/polar2.go bilinear grid lookup.
package polar

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
)

// PointOfSail is the qualitative sailing regime derived from |TWA|.
type PointOfSail string

const (
	InIrons     PointOfSail = "InIrons"
	CloseHauled PointOfSail = "CloseHauled"
	CloseReach  PointOfSail = "CloseReach"
	BeamReach   PointOfSail = "BeamReach"
	BroadReach  PointOfSail = "BroadReach"
	Running     PointOfSail = "Running"
	DeadRun     PointOfSail = "DeadRun"
)

// PointOfSailOf classifies |TWA| into a PointOfSail per spec.md §4.2's
// inclusive-lower boundaries.
func PointOfSailOf(twa float64) PointOfSail {
	a := twa
	if a < 0 {
		a = -a
	}
	switch {
	case a < 30:
		return InIrons
	case a < 50:
		return CloseHauled
	case a < 70:
		return CloseReach
	case a < 110:
		return BeamReach
	case a < 150:
		return BroadReach
	case a < 170:
		return Running
	default:
		return DeadRun
	}
}

// VesselPolar is the boat-speed table described in spec.md §3.
type VesselPolar struct {
	Name         string      `json:"name"`
	TWSAxis      []float64   `json:"tws_axis"`
	TWAAxis      []float64   `json:"twa_axis"`
	SpeedTable   [][]float64 `json:"speed_table"` // SpeedTable[i][j] at TWAAxis[i], TWSAxis[j]
	MaxWind      float64     `json:"max_wind"`
	TackDuration float64     `json:"tack_duration_s"`
	JibeDuration float64     `json:"jibe_duration_s"`
}

// Validate enforces the VesselPolar invariants from spec.md §3, returning
// an InvalidInput-kind naverrs error on the first violation found.
func (p *VesselPolar) Validate() error {
	if len(p.TWSAxis) == 0 || len(p.TWAAxis) == 0 {
		return naverrs.New(naverrs.InvalidInput, "polar %q: empty axis", p.Name)
	}
	if len(p.SpeedTable) != len(p.TWAAxis) {
		return naverrs.New(naverrs.InvalidInput, "polar %q: speed_table rows %d != twa_axis %d", p.Name, len(p.SpeedTable), len(p.TWAAxis))
	}
	for i, row := range p.SpeedTable {
		if len(row) != len(p.TWSAxis) {
			return naverrs.New(naverrs.InvalidInput, "polar %q: speed_table row %d has %d cols, want %d", p.Name, i, len(row), len(p.TWSAxis))
		}
	}
	for i := 1; i < len(p.TWSAxis); i++ {
		if p.TWSAxis[i] <= p.TWSAxis[i-1] {
			return naverrs.New(naverrs.InvalidInput, "polar %q: tws_axis not strictly ascending at %d", p.Name, i)
		}
	}
	for i := 1; i < len(p.TWAAxis); i++ {
		if p.TWAAxis[i] <= p.TWAAxis[i-1] {
			return naverrs.New(naverrs.InvalidInput, "polar %q: twa_axis not strictly ascending at %d", p.Name, i)
		}
	}
	if p.TWAAxis[0] != 0 {
		return naverrs.New(naverrs.InvalidInput, "polar %q: twa_axis must start at 0 (in-irons)", p.Name)
	}
	for j := range p.TWSAxis {
		if p.SpeedTable[0][j] != 0 {
			return naverrs.New(naverrs.InvalidInput, "polar %q: speed at twa=0 must be 0 (in-irons), got %f", p.Name, p.SpeedTable[0][j])
		}
	}
	for i, row := range p.SpeedTable {
		for j, v := range row {
			if v < 0 {
				return naverrs.New(naverrs.InvalidInput, "polar %q: negative boat speed at [%d][%d]", p.Name, i, j)
			}
		}
	}
	if p.MaxWind <= 0 {
		return naverrs.New(naverrs.InvalidInput, "polar %q: max_wind must be positive", p.Name)
	}
	return nil
}

// interpolationIndex returns the bracketing indices i0,i1 and the linear
// blend factor for value within values (ascending). Grounded on the
// teacher's polar/polar2.go interpolationIndex.
func interpolationIndex(values []float64, value float64) (int, int, float64) {
	if value <= values[0] {
		return 0, 0, 0
	}
	last := len(values) - 1
	if value >= values[last] {
		return last, last, 0
	}
	i := 0
	for values[i] < value {
		i++
	}
	return i - 1, i, (value - values[i-1]) / (values[i] - values[i-1])
}

// BoatSpeed returns the interpolated boat speed in knots for the given
// |twa| (any sign; symmetric over port/starboard) and tws (knots). TWS above
// MaxWind returns 0 (storm-reef cutoff) per spec.md §4.2.
func (p *VesselPolar) BoatSpeed(twa, tws float64) float64 {
	a := twa
	if a < 0 {
		a = -a
	}
	if a > 180 {
		a = 360 - a
	}
	if a > 180 {
		a = 180
	}

	if tws > p.MaxWind {
		return 0
	}
	clampedTWS := tws
	if clampedTWS > p.TWSAxis[len(p.TWSAxis)-1] {
		clampedTWS = p.TWSAxis[len(p.TWSAxis)-1]
	}
	if clampedTWS < 0 {
		clampedTWS = 0
	}

	twsI0, twsI1, twsF := interpolationIndex(p.TWSAxis, clampedTWS)
	twaI0, twaI1, twaF := interpolationIndex(p.TWAAxis, a)

	s00 := p.SpeedTable[twaI0][twsI0]
	s01 := p.SpeedTable[twaI0][twsI1]
	s10 := p.SpeedTable[twaI1][twsI0]
	s11 := p.SpeedTable[twaI1][twsI1]

	lowTWA := s00 + (s01-s00)*twsF
	highTWA := s10 + (s11-s10)*twsF
	return lowTWA + (highTWA-lowTWA)*twaF
}

// LoadFile reads a VesselPolar JSON document from disk and validates it.
// Grounded on the teacher's polar.Load disk loader, generalized to a single
// boat-speed surface per spec.md §3's VesselPolar (the teacher's per-sail
// table selection collapses into whichever speed surface the caller loads).
func LoadFile(path string) (*VesselPolar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, naverrs.Wrap(naverrs.InvalidInput, err, "reading polar file %q", path)
	}
	var p VesselPolar
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, naverrs.Wrap(naverrs.InvalidInput, err, "parsing polar file %q", path)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// String implements fmt.Stringer for debug logging.
func (p *VesselPolar) String() string {
	return fmt.Sprintf("VesselPolar(%s, max_wind=%.1fkt, %dx%d grid)", p.Name, p.MaxWind, len(p.TWAAxis), len(p.TWSAxis))
}
