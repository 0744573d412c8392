// Command nav-server runs the sailing route planner's HTTP API: build_mesh,
// fetch_weather and calculate_route over a wired land raster, GRIB-backed
// weather store and a single vessel polar. Flag/env parsing, the gocron
// refresh scheduler and the net/http/pprof wiring are grounded on the
// teacher's main.go.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/jasonlvhit/gocron"
	"github.com/peterbourgon/ff"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	_ "net/http/pprof"

	"github.com/kelvin-ux/sailing-regates-route-calculator/api"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/core"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/land"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/notify"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/polar"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/store"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/telemetry"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/weather/grib"
)

func main() {
	fs := flag.NewFlagSet("nav-server", flag.ExitOnError)
	var (
		listenAddr      = fs.String("listen", ":8888", "")
		landRasterPath  = fs.String("land-raster", "land/output", "")
		gribDir         = fs.String("grib-dir", "grib", "")
		gribRefreshSecs = fs.Uint64("grib-refresh-seconds", 900, "")
		polarPath       = fs.String("polar", "polars/default.json", "")
		meshCacheSize   = fs.Int("mesh-cache-size", 256, "")
		xmppHost        = fs.String("xmpp-host", "", "")
		xmppJid         = fs.String("xmpp-jid", "", "")
		xmppPassword    = fs.String("xmpp-password", "", "")
		xmppTo          = fs.String("xmpp-to", "", "")
		cpuProfile      = fs.Bool("cpuprofile", false, "")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarNoPrefix()); err != nil {
		log.WithError(err).Fatal("parsing flags")
	}

	if *cpuProfile {
		defer profile.Start().Stop()
	}

	raster, err := land.Load(*landRasterPath)
	if err != nil {
		log.WithError(err).Fatal("loading land raster")
	}

	gribStore, err := grib.NewStore(*gribDir, *gribRefreshSecs)
	if err != nil {
		log.WithError(err).Fatal("starting grib store")
	}

	vesselPolar, err := polar.LoadFile(*polarPath)
	if err != nil {
		log.WithError(err).Fatal("loading vessel polar")
	}

	meshStore, err := store.New(*meshCacheSize)
	if err != nil {
		log.WithError(err).Fatal("building mesh store")
	}

	var notifier notify.Notifier = notify.XMPPNotifier{Config: notify.Config{
		Host:     *xmppHost,
		Jid:      *xmppJid,
		Password: *xmppPassword,
		To:       *xmppTo,
	}}

	collector := telemetry.NewCollector("nav_server")
	pipeline := core.New(raster, gribStore, meshStore, collector, notifier)

	s := gocron.NewScheduler()
	job := s.Every(1).Day()
	job.Do(func() {
		log.Info("daily housekeeping tick")
	})
	go s.Start()

	handler := api.NewRouter(pipeline, vesselPolar)

	log.WithField("addr", *listenAddr).Info("nav-server listening")
	if err := http.ListenAndServe(*listenAddr, handler); err != nil {
		log.WithError(err).Fatal("nav-server exited")
	}
}
