// Package store implements the MeshStore port: a process-wide, bounded
// cache from MeshedAreaId to its immutable MeshedArea and, per id, the
// single current WeatheredMesh. Grounded on mmp-vice's wx/manifest.go use
// of hashicorp/golang-lru for a bounded decompressed-value cache, adapted
// from an LRU-only read cache to the write-once-then-frozen semantics
// spec.md §5 requires for MeshedArea.
package store

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

const defaultMeshCapacity = 256

// weatherEntry pairs a WeatheredMesh with the version counter C5 checks
// against before running, per spec.md §5's invalidation rule.
type weatherEntry struct {
	mesh    *weather.WeatheredMesh
	version int
}

// MeshStore is the process-wide MeshedArea/WeatheredMesh cache. Inserts
// happen once under a per-id write lock; the MeshedArea value is frozen
// thereafter. The WeatheredMesh for a given id is single-writer,
// multi-reader.
type MeshStore struct {
	areas *lru.Cache[mesh.MeshedAreaID, *mesh.MeshedArea]

	mu       sync.RWMutex
	weathers map[mesh.MeshedAreaID]*weatherEntry
	locks    map[mesh.MeshedAreaID]*sync.Mutex
}

// New constructs a MeshStore holding at most capacity MeshedAreas; evicted
// areas simply become unreachable by id (callers are expected to rebuild
// via C3 if asked for a stale id again, which is why eviction is safe here
// even though a MeshedArea is otherwise described as immutable forever).
func New(capacity int) (*MeshStore, error) {
	if capacity <= 0 {
		capacity = defaultMeshCapacity
	}
	areas, err := lru.New[mesh.MeshedAreaID, *mesh.MeshedArea](capacity)
	if err != nil {
		return nil, err
	}
	return &MeshStore{
		areas:    areas,
		weathers: make(map[mesh.MeshedAreaID]*weatherEntry),
		locks:    make(map[mesh.MeshedAreaID]*sync.Mutex),
	}, nil
}

// Put inserts a freshly built MeshedArea under its own id, once. A second
// Put for the same id is a no-op: the first write wins and the value stays
// frozen.
func (s *MeshStore) Put(area *mesh.MeshedArea) {
	lock := s.lockFor(area.ID)
	lock.Lock()
	defer lock.Unlock()

	s.areas.ContainsOrAdd(area.ID, area)
}

// Get returns the MeshedArea for id, or nil if absent.
func (s *MeshStore) Get(id mesh.MeshedAreaID) (*mesh.MeshedArea, bool) {
	return s.areas.Get(id)
}

// AttachWeather records wm as the current WeatheredMesh for id and returns
// its version. Each call bumps the version, so a reader holding an older
// version can detect invalidation.
func (s *MeshStore) AttachWeather(id mesh.MeshedAreaID, wm *weather.WeatheredMesh) int {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	prev := s.weathers[id]
	version := 1
	if prev != nil {
		version = prev.version + 1
	}
	s.weathers[id] = &weatherEntry{mesh: wm, version: version}
	s.mu.Unlock()

	return version
}

// GetWeather returns the current WeatheredMesh and its version for id.
func (s *MeshStore) GetWeather(id mesh.MeshedAreaID) (*weather.WeatheredMesh, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.weathers[id]
	if !ok {
		return nil, 0, false
	}
	return e.mesh, e.version, true
}

// CheckVersion returns an error if wantVersion no longer matches the
// current WeatheredMesh version for id, per spec.md §5's refusal rule for
// C5 running against an invalidated WeatheredMesh.
func (s *MeshStore) CheckVersion(id mesh.MeshedAreaID, wantVersion int) error {
	_, current, ok := s.GetWeather(id)
	if !ok {
		return naverrs.New(naverrs.WeatherUnavailable, "no weathered mesh for %s", id)
	}
	if current != wantVersion {
		return naverrs.New(naverrs.WeatherUnavailable, "weathered mesh %s was invalidated (have v%d, want v%d)", id, current, wantVersion)
	}
	return nil
}

func (s *MeshStore) lockFor(id mesh.MeshedAreaID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}
