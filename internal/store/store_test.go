package store

import (
	"testing"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	area := &mesh.MeshedArea{ID: "area-1"}
	s.Put(area)

	got, ok := s.Get("area-1")
	if !ok || got != area {
		t.Fatalf("Get returned (%v, %v); want (%v, true)", got, ok, area)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("expected Get of a missing id to report not-found")
	}
}

func TestPutFirstWriteWins(t *testing.T) {
	s, _ := New(8)
	first := &mesh.MeshedArea{ID: "area-1"}
	second := &mesh.MeshedArea{ID: "area-1"}
	s.Put(first)
	s.Put(second)

	got, _ := s.Get("area-1")
	if got != first {
		t.Error("expected the first Put to win and stay frozen")
	}
}

func TestAttachWeatherVersioning(t *testing.T) {
	s, _ := New(8)
	wm1 := &weather.WeatheredMesh{Version: 1}
	wm2 := &weather.WeatheredMesh{Version: 2}

	v1 := s.AttachWeather("area-1", wm1)
	if v1 != 1 {
		t.Errorf("first AttachWeather version = %d; want 1", v1)
	}
	v2 := s.AttachWeather("area-1", wm2)
	if v2 != 2 {
		t.Errorf("second AttachWeather version = %d; want 2", v2)
	}

	if err := s.CheckVersion("area-1", v1); err == nil {
		t.Error("expected CheckVersion against a stale version to fail")
	}
	if err := s.CheckVersion("area-1", v2); err != nil {
		t.Errorf("expected CheckVersion against the current version to pass, got %v", err)
	}
}

func TestCheckVersionMissing(t *testing.T) {
	s, _ := New(8)
	if err := s.CheckVersion("missing", 1); err == nil {
		t.Error("expected CheckVersion on an id with no weathered mesh to fail")
	}
}
