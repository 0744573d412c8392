package weather

import (
	"math"
	"time"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
)

// Sample returns wind speed (kt), wind source direction (deg), and wave
// height (m) at an arbitrary position and time: spatial IDW over the
// nearest reachable centroids, each first linearly interpolated in time
// between its bracketing valid-times. Extrapolation outside the horizon is
// refused with a typed HorizonExceeded error, per spec.md §4.4.
func (wm *WeatheredMesh) Sample(p geo.Point, t time.Time) (windSpeedKt, windDirDegFrom, waveHeightM float64, err error) {
	if !wm.Horizon.Contains(t) {
		return 0, 0, 0, naverrs.New(naverrs.HorizonExceeded, "time %s is outside weather horizon [%s, %s]", t, wm.Horizon.Start, wm.Horizon.End)
	}

	type contribution struct {
		speed, dirSin, dirCos, wave, weight float64
	}
	var contributions []contribution

	type cand struct {
		idx int
		d   float64
	}
	var cands []cand
	for i, c := range wm.Centroids {
		d, gerr := geo.GreatCircleDistance(p, c)
		if gerr != nil {
			continue
		}
		cands = append(cands, cand{i, d})
	}
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].d < cands[j-1].d; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}

	for _, c := range cands {
		speed, dir, wave, ok := wm.centroidValueAt(c.idx, t)
		if !ok {
			continue
		}
		w := 1.0 / math.Max(c.d, 1.0)
		rad := dir * math.Pi / 180
		contributions = append(contributions, contribution{speed, math.Sin(rad), math.Cos(rad), wave, w})
		if len(contributions) == 3 {
			break
		}
	}

	if len(contributions) == 0 {
		return 0, 0, 0, naverrs.New(naverrs.WeatherUnavailable, "no weather centroid has data at time %s near (%f, %f)", t, p.Lat, p.Lon)
	}

	var wSum, speedSum, sinSum, cosSum, waveSum float64
	for _, c := range contributions {
		wSum += c.weight
		speedSum += c.speed * c.weight
		sinSum += c.dirSin * c.weight
		cosSum += c.dirCos * c.weight
		waveSum += c.wave * c.weight
	}

	windSpeedKt = speedSum / wSum
	waveHeightM = waveSum / wSum
	windDirDegFrom = math.Atan2(sinSum, cosSum) * 180 / math.Pi
	if windDirDegFrom < 0 {
		windDirDegFrom += 360
	}
	return windSpeedKt, windDirDegFrom, waveHeightM, nil
}

// centroidValueAt linearly interpolates centroid ci's series at t, skipping
// over missing samples (a partial-failure centroid may have gaps). Returns
// ok=false if t falls outside the span of valid-times that centroid has data
// for.
func (wm *WeatheredMesh) centroidValueAt(ci int, t time.Time) (speed, dir, wave float64, ok bool) {
	flags := wm.HasSample[ci]
	samples := wm.Samples[ci]

	var before, after = -1, -1
	for i, has := range flags {
		if !has {
			continue
		}
		vt := samples[i].ValidTime
		if !vt.After(t) && (before == -1 || vt.After(samples[before].ValidTime)) {
			before = i
		}
		if !vt.Before(t) && (after == -1 || vt.Before(samples[after].ValidTime)) {
			after = i
		}
	}
	if before == -1 || after == -1 {
		return 0, 0, 0, false
	}
	if before == after {
		s := samples[before]
		return s.WindSpeedKt, s.WindDirDegFrom, s.WaveHeightM, true
	}

	a, b := samples[before], samples[after]
	span := b.ValidTime.Sub(a.ValidTime).Seconds()
	if span <= 0 {
		return a.WindSpeedKt, a.WindDirDegFrom, a.WaveHeightM, true
	}
	frac := t.Sub(a.ValidTime).Seconds() / span

	speed = a.WindSpeedKt + (b.WindSpeedKt-a.WindSpeedKt)*frac
	wave = a.WaveHeightM + (b.WaveHeightM-a.WaveHeightM)*frac
	delta := geo.NormalizeSigned(b.WindDirDegFrom - a.WindDirDegFrom)
	dir = a.WindDirDegFrom + delta*frac
	if dir < 0 {
		dir += 360
	} else if dir >= 360 {
		dir -= 360
	}
	return speed, dir, wave, true
}
