package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opd-ai/go-flightsim/pkg/config"
	"github.com/opd-ai/go-flightsim/pkg/controls"
	"github.com/opd-ai/go-flightsim/pkg/engine"
	"github.com/opd-ai/go-flightsim/pkg/health"
	"github.com/opd-ai/go-flightsim/pkg/logging"
	"github.com/opd-ai/go-flightsim/pkg/resource"
	"github.com/opd-ai/go-flightsim/pkg/telemetry"
	"github.com/opd-ai/go-flightsim/pkg/validation"
)

// api serves the runner over HTTP
type api struct {
	runner  *engine.Runner
	pilot   *controls.Pilot // nil while a schedule is flying
	health  *health.Checker
	metrics *telemetry.Metrics
	guard   *validation.RequestGuard
	logger  *logging.Logger
}

type aircraftRequest struct {
	Type string `json:"type"`
}

func newRouter(a *api) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.health.Liveness).Methods("GET")
	router.HandleFunc("/ready", a.health.Readiness).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")

	router.HandleFunc("/state", a.stateHandler).Methods("GET")
	router.HandleFunc("/trail", a.trailHandler).Methods("GET")
	router.HandleFunc("/controls", a.controlsHandler).Methods("GET")
	router.HandleFunc("/aircraft", a.listAircraftHandler).Methods("GET")
	router.HandleFunc("/scenarios", a.scenariosHandler).Methods("GET")

	// Requests that change the flight go through the guard
	router.Handle("/reset", a.guarded(a.resetHandler)).Methods("POST")
	router.Handle("/controls", a.guarded(a.controlsHandler)).Methods("POST")
	router.Handle("/aircraft", a.guarded(a.aircraftHandler)).Methods("POST")
	return router
}

func (a *api) guarded(h http.HandlerFunc) http.Handler {
	if a.guard == nil {
		return h
	}
	return a.guard.Middleware(h)
}

// writeJSON encodes v before the status line so an unencodable value turns
// into a 500 instead of an empty body
func (a *api) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		a.logger.Error(ctx, "response encoding failed", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "response encoding failed"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func (a *api) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	a.writeJSON(ctx, w, status, map[string]string{"error": err.Error()})
}

func (a *api) stateHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(r.Context(), w, http.StatusOK, a.runner.Snapshot())
}

func (a *api) trailHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(r.Context(), w, http.StatusOK, a.runner.Trail())
}

func (a *api) resetHandler(w http.ResponseWriter, r *http.Request) {
	a.runner.RequestReset()
	a.logger.Info(r.Context(), "reset requested", "remote_addr", r.RemoteAddr)
	a.writeJSON(r.Context(), w, http.StatusOK, a.runner.Snapshot())
}

func (a *api) controlsHandler(w http.ResponseWriter, r *http.Request) {
	if a.pilot == nil {
		a.writeError(r.Context(), w, http.StatusConflict, errors.New("controls are driven by a schedule"))
		return
	}
	if r.Method == http.MethodGet {
		a.writeJSON(r.Context(), w, http.StatusOK, a.pilot.Command())
		return
	}

	var cmd controls.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		a.writeError(r.Context(), w, http.StatusBadRequest, errors.New("invalid JSON payload"))
		return
	}
	if err := validation.ValidateCommand(cmd); err != nil {
		a.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	a.pilot.SetCommand(cmd)
	a.writeJSON(r.Context(), w, http.StatusOK, a.pilot.Command())
}

func (a *api) listAircraftHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(r.Context(), w, http.StatusOK, config.ListPresets())
}

func (a *api) aircraftHandler(w http.ResponseWriter, r *http.Request) {
	var req aircraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(r.Context(), w, http.StatusBadRequest, errors.New("invalid JSON payload"))
		return
	}
	name, err := validation.ValidateAircraftType(req.Type)
	if err != nil {
		a.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	if err := a.runner.RequestAircraftType(name); err != nil {
		if errors.Is(err, config.ErrUnknownAircraftType) {
			a.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		a.logger.Error(r.Context(), "aircraft change failed", err, "aircraft_type", name)
		a.writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(r.Context(), w, http.StatusOK, a.runner.Snapshot())
}

func (a *api) scenariosHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(r.Context(), w, http.StatusOK, controls.ListScenarios())
}

// serve runs srv on a supervised goroutine
func serve(ctx context.Context, rm *resource.Manager, srv *http.Server, logger *logging.Logger) error {
	return rm.Go(ctx, "http-server", func(ctx context.Context) error {
		logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}
