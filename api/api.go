// Package api exposes core.Pipeline's three operations over HTTP, grounded
// on the teacher's api/api.go: a single server struct closing over the
// wired ports, gorilla/mux versioned subrouters, getIp for request-scoped
// log fields, and json.NewDecoder/Encoder request/response bodies.
package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/core"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/mesh"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/polar"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/router"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather"
)

type server struct {
	pipeline *core.Pipeline
	polar    *polar.VesselPolar
}

// NewRouter builds the full HTTP surface: the v1 API, healthz and the
// Prometheus /metrics endpoint, wrapped in access logging and panic
// recovery the way the teacher's go.mod carries gorilla/handlers for but
// never itself wires in (its router construction never got past mux.Router
// alone).
func NewRouter(pipeline *core.Pipeline, vesselPolar *polar.VesselPolar) http.Handler {
	s := &server{pipeline: pipeline, polar: vesselPolar}

	root := mux.NewRouter().StrictSlash(true)

	v1 := root.PathPrefix("/route/api/v1").Subrouter()
	v1.HandleFunc("/-/healthz", s.healthz).Methods(http.MethodGet)
	v1.HandleFunc("/mesh", s.buildMesh).Methods(http.MethodPost)
	v1.HandleFunc("/mesh/{id}/weather", s.fetchWeather).Methods(http.MethodPost)
	v1.HandleFunc("/mesh/{id}/route", s.calculateRoute).Methods(http.MethodPost)

	root.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return handlers.RecoveryHandler()(handlers.LoggingHandler(log.StandardLogger().Writer(), root))
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status string `json:"status"`
	}
	_ = json.NewEncoder(w).Encode(health{Status: "Ok"})
}

// buildMeshRequest mirrors mesh.ValidateControlPoints/mesh.AutoParams's
// inputs: the control-point sequence plus an optional parameter override.
type buildMeshRequest struct {
	ControlPoints []mesh.ControlPoint `json:"control_points"`
	Params        *mesh.Params        `json:"mesh_params,omitempty"`
}

func (s *server) buildMesh(w http.ResponseWriter, req *http.Request) {
	fields := requestFields(req, "build_mesh")
	requestLogger := log.WithFields(fields)

	var body buildMeshRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, naverrs.New(naverrs.InvalidInput, "decoding request body: %v", err))
		return
	}

	start := time.Now()
	area, err := s.pipeline.BuildMesh(body.ControlPoints, body.Params)
	if err != nil {
		requestLogger.WithError(err).Warn("build_mesh failed")
		writeError(w, err)
		return
	}
	requestLogger.Infof("build_mesh produced %d vertices in %s", len(area.Vertices), time.Since(start))

	_ = json.NewEncoder(w).Encode(area)
}

type fetchWeatherRequest struct {
	Horizon weather.Horizon `json:"horizon"`
}

type fetchWeatherResponse struct {
	Version int `json:"version"`
}

func (s *server) fetchWeather(w http.ResponseWriter, req *http.Request) {
	id := mesh.MeshedAreaID(mux.Vars(req)["id"])
	requestLogger := log.WithFields(requestFields(req, "fetch_weather"))

	var body fetchWeatherRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, naverrs.New(naverrs.InvalidInput, "decoding request body: %v", err))
		return
	}

	start := time.Now()
	_, version, err := s.pipeline.FetchWeather(req.Context(), id, body.Horizon)
	if err != nil {
		requestLogger.WithError(err).Warn("fetch_weather failed")
		writeError(w, err)
		return
	}
	requestLogger.Infof("fetch_weather for %s took %s", id, time.Since(start))

	_ = json.NewEncoder(w).Encode(fetchWeatherResponse{Version: version})
}

type calculateRouteRequest struct {
	Version       int               `json:"version"`
	Window        router.TimeWindow `json:"window"`
	CriticalWaveM float64           `json:"critical_wave_m"`
}

func (s *server) calculateRoute(w http.ResponseWriter, req *http.Request) {
	id := mesh.MeshedAreaID(mux.Vars(req)["id"])
	requestLogger := log.WithFields(requestFields(req, "calculate_route"))

	var body calculateRouteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, naverrs.New(naverrs.InvalidInput, "decoding request body: %v", err))
		return
	}

	start := time.Now()
	result, err := s.pipeline.CalculateRoute(id, body.Version, s.polar, body.Window, body.CriticalWaveM)
	if err != nil {
		requestLogger.WithError(err).Warn("calculate_route failed")
		writeError(w, err)
		return
	}
	requestLogger.Infof("calculate_route for %s produced %d variants in %s", id, len(result.Variants), time.Since(start))

	_ = json.NewEncoder(w).Encode(result)
}

// writeError maps a naverrs.Kind to an HTTP status and writes the error as
// JSON, per spec.md §7's client-vs-operator failure split.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := naverrs.Kind("Unknown")
	if e, ok := err.(*naverrs.Error); ok {
		kind = e.Kind
		switch e.Kind {
		case naverrs.InvalidInput:
			status = http.StatusBadRequest
		case naverrs.ControlPointUnreachable, naverrs.DisconnectedControlPoints,
			naverrs.HorizonExceeded, naverrs.NoNavigablePath, naverrs.AllCandidatesInfeasible:
			status = http.StatusUnprocessableEntity
		case naverrs.WeatherUnavailable, naverrs.RateLimited, naverrs.NetworkError, naverrs.GeometryUnavailable:
			status = http.StatusServiceUnavailable
		case naverrs.Cancelled:
			status = http.StatusRequestTimeout
		}
	}

	type errBody struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errBody{Kind: string(kind), Message: err.Error()})
}

func requestFields(r *http.Request, action string) log.Fields {
	fields := log.Fields{"action": action}
	if ip, err := getIP(r); err == nil {
		fields["ip"] = ip
	}
	return fields
}

// getIP is the teacher's header-then-RemoteAddr fallback chain, unchanged.
func getIP(r *http.Request) (string, error) {
	if ip := r.Header.Get("X-REAL-IP"); net.ParseIP(ip) != nil {
		return ip, nil
	}
	for _, ip := range strings.Split(r.Header.Get("X-FORWARDED-FOR"), ",") {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip, nil
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	return "", fmt.Errorf("no valid ip found")
}
