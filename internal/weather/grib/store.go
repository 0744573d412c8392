package grib

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jasonlvhit/gocron"
	log "github.com/sirupsen/logrus"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

// fileStamp is the teacher's grib-data naming convention: "<run>.f<hour>",
// e.g. "2026010100.f036" for the run issued at 2026-01-01T00Z, hour 36.
const fileStamp = "2006010215"

// Store watches a directory of GRIB2 files and serves weather.Port.Fetch
// against whichever ones are currently on disk, re-scanning on a fixed
// schedule. Grounded on the teacher's Winds type (winds.go): same directory
// walk, same run/hour filename parsing, same gocron-driven refresh, swapped
// from a package-global wind-only cache to an injectable wind+wave store.
type Store struct {
	dir string

	mu     sync.RWMutex
	fields map[int64]*Field // keyed by ValidTime.UTC().Unix()

	scheduler *gocron.Scheduler
}

// NewStore scans dir once and starts a background rescan every
// refreshSeconds, mirroring winds.go's "Every(15).Seconds().Do(w.Merge)".
func NewStore(dir string, refreshSeconds uint64) (*Store, error) {
	s := &Store{dir: dir, fields: map[int64]*Field{}}
	if err := s.scan(); err != nil {
		return nil, err
	}

	s.scheduler = gocron.NewScheduler()
	job := s.scheduler.Every(refreshSeconds).Seconds()
	job.Do(s.scanLogged)
	go s.scheduler.Start()

	return s, nil
}

func (s *Store) scanLogged() {
	if err := s.scan(); err != nil {
		log.WithError(err).Error("grib: error rescanning forecast directory")
	}
}

// scan walks dir, parses every "<run>.f<hour>" file it finds that isn't
// already loaded, and drops entries for files no longer present.
func (s *Store) scan() error {
	var files []string
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().IsRegular() && !strings.HasSuffix(info.Name(), ".tmp") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(files))
	for _, path := range files {
		name := filepath.Base(path)
		parts := strings.SplitN(name, ".", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[1], "f") {
			continue
		}
		run, err := time.Parse(fileStamp, parts[0])
		if err != nil {
			continue
		}
		hour, err := strconv.Atoi(parts[1][1:])
		if err != nil {
			continue
		}
		validTime := run.Add(time.Duration(hour) * time.Hour)
		key := validTime.UTC().Unix()
		seen[key] = true
		if _, loaded := s.fields[key]; loaded {
			continue
		}
		field, err := LoadFile(validTime, path)
		if err != nil {
			log.WithError(err).Warnf("grib: skipping unreadable forecast file %q", path)
			continue
		}
		s.fields[key] = field
	}
	for key := range s.fields {
		if !seen[key] {
			delete(s.fields, key)
		}
	}
	return nil
}

// sortedFieldsInRange returns the fields with a valid time in [from, to],
// oldest first.
func (s *Store) sortedFieldsInRange(from, to time.Time) []*Field {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Field
	for _, f := range s.fields {
		if !f.ValidTime.Before(from) && !f.ValidTime.After(to) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidTime.Before(out[j].ValidTime) })
	return out
}

// Fetch implements weather.Port over the currently loaded GRIB fields.
func (s *Store) Fetch(ctx context.Context, points []geo.Point, from, to time.Time) (<-chan weather.WeatherSample, <-chan error) {
	sampleCh := make(chan weather.WeatherSample, len(points)*4)
	errCh := make(chan error, 1)

	fields := s.sortedFieldsInRange(from, to)
	if len(fields) == 0 {
		close(sampleCh)
		errCh <- naverrs.New(naverrs.WeatherUnavailable, "no forecast fields cover [%s, %s]", from, to)
		close(errCh)
		return sampleCh, errCh
	}

	go func() {
		defer close(errCh)
		defer close(sampleCh)
		for _, f := range fields {
			for _, p := range points {
				select {
				case <-ctx.Done():
					errCh <- naverrs.Wrap(naverrs.Cancelled, ctx.Err(), "grib fetch cancelled")
					return
				default:
				}
				u, v, wave, ok := f.sample(p.Lat, p.Lon)
				if !ok {
					continue
				}
				speedKt, dirFrom := windSpeedKnotsAndDirFrom(u, v)
				sampleCh <- weather.WeatherSample{
					Position:       p,
					ValidTime:      f.ValidTime,
					WindSpeedKt:    speedKt,
					WindDirDegFrom: dirFrom,
					WaveHeightM:    wave,
				}
			}
		}
		errCh <- nil
	}()

	return sampleCh, errCh
}
