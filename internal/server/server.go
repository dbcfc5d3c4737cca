package server

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"syscheck/internal/camera"
	"syscheck/internal/system"
)

//go:embed static/*
var embeddedStatic embed.FS

// Server wraps HTTP serving of the diagnostics API, the liveness endpoint
// the backend check probes, metrics and the static dashboard page.
type Server struct {
	httpServer   *http.Server
	agg          *system.Aggregator
	camera       *camera.Check
	staticFS     fs.FS
	pushInterval time.Duration

	// lifetime outlives individual requests. Background work started by an
	// enable must not die with the request that triggered it.
	lifetime context.Context
	stop     context.CancelFunc
}

// New creates a configured HTTP server for the diagnostics service.
func New(addr string, agg *system.Aggregator, cam *camera.Check, registry *prometheus.Registry, pushInterval time.Duration) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}
	if pushInterval <= 0 {
		pushInterval = time.Second
	}

	lifetime, stop := context.WithCancel(context.Background())
	router := mux.NewRouter()
	s := &Server{
		httpServer:   &http.Server{Addr: addr, Handler: router},
		agg:          agg,
		camera:       cam,
		staticFS:     staticFS,
		pushInterval: pushInterval,
		lifetime:     lifetime,
		stop:         stop,
	}
	s.registerRoutes(router, registry)
	return s
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down and cancels any background work
// the checks still have running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(router *mux.Router, registry *prometheus.Registry) {
	router.HandleFunc("/api/ping", s.handlePing).Methods(http.MethodGet)
	router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/status/ws", s.handleStatusWS).Methods(http.MethodGet)
	router.HandleFunc("/api/checks/camera/device", s.handleSelectDevice).Methods(http.MethodPost)
	router.HandleFunc("/api/checks/camera/resolution", s.handleResolution).Methods(http.MethodPost)
	router.HandleFunc("/api/checks/camera/capture", s.handleCapture).Methods(http.MethodPost)
	router.HandleFunc("/api/checks/{name}/enable", s.handleEnable).Methods(http.MethodPost)
	router.HandleFunc("/api/checks/{name}/disable", s.handleDisable).Methods(http.MethodPost)
	if registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.PathPrefix("/").Handler(http.FileServer(http.FS(s.staticFS))).Methods(http.MethodGet)
}

// handlePing serves the liveness endpoint the backend prerequisite probes.
func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agg.Snapshot())
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, true)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, false)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, enable bool) {
	name := mux.Vars(r)["name"]
	check, ok := s.agg.Check(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown check: "+name)
		return
	}
	toggleable, ok := check.(system.Toggleable)
	if !ok {
		writeError(w, http.StatusConflict, "check cannot be toggled: "+name)
		return
	}

	var err error
	if enable {
		// net/http cancels r.Context() when the handler returns; the check's
		// async work has to survive that.
		err = toggleable.Enable(s.lifetime)
	} else {
		err = toggleable.Disable()
	}
	if err != nil {
		log.Warn().Err(err).Str("check", name).Bool("enable", enable).Msg("toggle failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.agg.Snapshot())
}

type selectDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	var req selectDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.camera.SelectDevice(r.Context(), req.DeviceID); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.camera.Snapshot())
}

type resolutionRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type resolutionResponse struct {
	Session       camera.Session `json:"session"`
	PreviewWidth  float64        `json:"preview_width"`
	PreviewHeight float64        `json:"preview_height"`
}

func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request) {
	var req resolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	desired := camera.Resolution{Width: req.Width, Height: req.Height}
	if err := s.camera.SetResolution(r.Context(), desired); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	width, height := s.camera.Preview()
	writeJSON(w, http.StatusOK, resolutionResponse{
		Session:       s.camera.Snapshot(),
		PreviewWidth:  width,
		PreviewHeight: height,
	})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.camera.Capture(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.camera.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
