// Package server serves the radar map page, the frame and alert JSON
// endpoints, and the timeline control API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Zachdehooge/radar-dashboard/internal/alerts"
	"github.com/Zachdehooge/radar-dashboard/internal/generator"
	"github.com/Zachdehooge/radar-dashboard/internal/log"
	"github.com/Zachdehooge/radar-dashboard/internal/rainviewer"
	"github.com/Zachdehooge/radar-dashboard/internal/tiles"
	"github.com/Zachdehooge/radar-dashboard/internal/timeline"
)

// Config holds server settings resolved from CLI flags.
type Config struct {
	Listen      string
	Region      generator.Region
	Interval    time.Duration
	TileOptions tiles.Options
}

// Server owns the refreshed snapshots and the timeline controller.
type Server struct {
	cfg    Config
	frames *rainviewer.Client
	alerts *alerts.Client
	tl     *timeline.Controller
	logger zerolog.Logger

	mu            sync.RWMutex
	framePayload  generator.FramePayload
	alertsPayload generator.AlertsPayload
}

// New wires a Server from its clients. Either client may be replaced by
// tests via the rainviewer/alerts options.
func New(cfg Config, frameClient *rainviewer.Client, alertClient *alerts.Client) *Server {
	if cfg.Interval < 30*time.Second {
		cfg.Interval = 30 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		frames: frameClient,
		alerts: alertClient,
		tl:     timeline.New(),
		logger: log.WithComponent("server"),
	}
	s.framePayload = generator.FramePayload{Status: generator.StatusEmpty, Frames: []generator.FrameJSON{}}
	s.alertsPayload = generator.AlertsPayload{Status: generator.StatusEmpty, Alerts: []alerts.Alert{}}
	return s
}

// Refresh fetches the frame index (and alerts for regions that show
// them) and replaces the served snapshots. A failed index fetch keeps
// the prior frames and marks the payload stale.
func (s *Server) Refresh(ctx context.Context) {
	start := time.Now()
	idx, err := s.frames.FetchIndex(ctx)
	refreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		refreshErrorsTotal.WithLabelValues("frames").Inc()
		s.logger.Error().Err(err).Msg("frame index refresh failed")
		s.mu.Lock()
		if len(s.framePayload.Frames) > 0 {
			s.framePayload.Status = generator.StatusStale
		}
		s.framePayload.Error = err.Error()
		s.mu.Unlock()
	} else {
		payload := generator.BuildFramePayload(idx, s.cfg.TileOptions)
		s.tl.SetFrames(idx.Frames())
		framesLoaded.Set(float64(len(payload.Frames)))
		lastRefreshTime.SetToCurrentTime()
		s.mu.Lock()
		s.framePayload = payload
		s.mu.Unlock()
		s.logger.Info().Int("frames", len(payload.Frames)).Str("host", payload.Host).Msg("frame index refreshed")
	}

	if !s.cfg.Region.Alerts {
		return
	}
	active, err := s.alerts.FetchActive(ctx)
	if err != nil {
		refreshErrorsTotal.WithLabelValues("alerts").Inc()
		s.logger.Error().Err(err).Msg("alerts refresh failed")
		return
	}
	alertsActive.Set(float64(len(active)))
	s.mu.Lock()
	s.alertsPayload = generator.BuildAlertsPayload(active)
	s.mu.Unlock()
	s.logger.Info().Int("alerts", len(active)).Msg("alerts refreshed")
}

// Router builds the chi router with the middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(securityHeaders)
	r.Use(apiRateLimit())

	r.Get("/", s.handlePage)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/frames", s.handleFrames)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/timeline", s.handleTimeline)
		r.Post("/timeline/play", s.handleTimelinePlay)
		r.Post("/timeline/pause", s.handleTimelinePause)
		r.Post("/timeline/toggle", s.handleTimelineToggle)
		r.Post("/timeline/step", s.handleTimelineStep)
		r.Post("/timeline/seek", s.handleTimelineSeek)
	})
	return r
}

// Run starts the refresh loop and the HTTP listener, and shuts both
// down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.Refresh(ctx)
	go s.refreshLoop(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.cfg.Listen).Str("region", s.cfg.Region.Key).Msg("serving radar dashboard")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.tl.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	}
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	alertsURL := ""
	if s.cfg.Region.Alerts {
		alertsURL = "/api/alerts"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := generator.RenderPage(w, generator.PageData{
		Region:    s.cfg.Region,
		FramesURL: "/api/frames",
		AlertsURL: alertsURL,
		RefreshMS: int(s.cfg.Interval / time.Millisecond),
		TickMS:    int(timeline.DefaultTick / time.Millisecond),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("page render failed")
	}
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	payload := s.framePayload
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Region.Alerts {
		http.NotFound(w, r)
		return
	}
	s.mu.RLock()
	payload := s.alertsPayload
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, payload)
}

// timelineState is the JSON view of the controller.
type timelineState struct {
	Index   int    `json:"index"`
	Count   int    `json:"count"`
	Playing bool   `json:"playing"`
	Time    int64  `json:"time,omitempty"`
	Path    string `json:"path,omitempty"`
}

func (s *Server) timelineSnapshot() timelineState {
	st := timelineState{
		Index:   s.tl.Index(),
		Count:   s.tl.Len(),
		Playing: s.tl.Playing(),
	}
	if frame, ok := s.tl.Current(); ok {
		st.Time = frame.Time
		st.Path = frame.Path
	}
	return st
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.timelineSnapshot())
}

func (s *Server) handleTimelinePlay(w http.ResponseWriter, r *http.Request) {
	s.tl.Play()
	writeJSON(w, http.StatusOK, s.timelineSnapshot())
}

func (s *Server) handleTimelinePause(w http.ResponseWriter, r *http.Request) {
	s.tl.Pause()
	writeJSON(w, http.StatusOK, s.timelineSnapshot())
}

func (s *Server) handleTimelineToggle(w http.ResponseWriter, r *http.Request) {
	s.tl.Toggle()
	writeJSON(w, http.StatusOK, s.timelineSnapshot())
}

func (s *Server) handleTimelineStep(w http.ResponseWriter, r *http.Request) {
	delta, err := strconv.Atoi(r.URL.Query().Get("delta"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "delta must be an integer")
		return
	}
	s.tl.Step(delta)
	writeJSON(w, http.StatusOK, s.timelineSnapshot())
}

func (s *Server) handleTimelineSeek(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	s.tl.Seek(i)
	writeJSON(w, http.StatusOK, s.timelineSnapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"error": detail})
}
