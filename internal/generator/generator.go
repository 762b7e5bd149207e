// Package generator renders the radar map page and the frame/alert JSON
// files consumed by the browser.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Zachdehooge/radar-dashboard/internal/alerts"
	"github.com/Zachdehooge/radar-dashboard/internal/log"
	"github.com/Zachdehooge/radar-dashboard/internal/rainviewer"
	"github.com/Zachdehooge/radar-dashboard/internal/tiles"
)

// Frame payload status values.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusStale = "stale"
)

// FrameJSON is one frame as the browser consumes it: the raw descriptor
// plus its prebuilt tile URL template.
type FrameJSON struct {
	Time    int64  `json:"time"`
	Path    string `json:"path"`
	TileURL string `json:"tileUrl"`
}

// FramePayload is the full structure written to frames.json and served
// from /api/frames on every refresh cycle.
type FramePayload struct {
	Status       string      `json:"status"`
	Error        string      `json:"error,omitempty"`
	Host         string      `json:"host"`
	Generated    int64       `json:"generated"`
	UpdatedAtUTC int64       `json:"updatedAtUTC"`
	Frames       []FrameJSON `json:"frames"`
}

// AlertsPayload is the structure written to alerts.json and served from
// /api/alerts.
type AlertsPayload struct {
	Status       string         `json:"status"`
	Error        string         `json:"error,omitempty"`
	UpdatedAtUTC int64          `json:"updatedAtUTC"`
	Alerts       []alerts.Alert `json:"alerts"`
}

// BuildFramePayload converts a fetched tile index into the wire payload,
// resolving each frame's tile URL template.
func BuildFramePayload(idx *rainviewer.Index, opts tiles.Options) FramePayload {
	frames := idx.Frames()
	payload := FramePayload{
		Status:       StatusOK,
		Host:         idx.Host,
		Generated:    idx.Generated,
		UpdatedAtUTC: time.Now().UTC().Unix(),
		Frames:       make([]FrameJSON, 0, len(frames)),
	}
	for _, f := range frames {
		payload.Frames = append(payload.Frames, FrameJSON{
			Time:    f.Time,
			Path:    f.Path,
			TileURL: tiles.URLTemplate(idx.Host, f.Path, opts),
		})
	}
	if len(payload.Frames) == 0 {
		payload.Status = StatusEmpty
	}
	return payload
}

// BuildAlertsPayload wraps fetched alerts in the wire payload.
func BuildAlertsPayload(active []alerts.Alert) AlertsPayload {
	return AlertsPayload{
		Status:       StatusOK,
		UpdatedAtUTC: time.Now().UTC().Unix(),
		Alerts:       active,
	}
}

// WriteJSON marshals v and atomically replaces outputPath via a temp
// file and rename, so the browser never reads a partial file.
func WriteJSON(outputPath string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write tmp failed: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

// Poller periodically refetches the tile index (and, when the region
// shows them, the alerts) and rewrites the JSON files next to the
// generated page. Used by the static `generate --watch` mode.
type Poller struct {
	Region     Region
	Frames     *rainviewer.Client
	Alerts     *alerts.Client
	Options    tiles.Options
	FramesPath string
	AlertsPath string
}

// Run polls once immediately, then on every interval tick until ctx is
// done. A failed poll keeps the previous files in place.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	p.Poll(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll refreshes the JSON files once.
func (p *Poller) Poll(ctx context.Context) {
	logger := log.WithComponent("poller")

	idx, err := p.Frames.FetchIndex(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("frame index poll failed")
	} else {
		payload := BuildFramePayload(idx, p.Options)
		if err := WriteJSON(p.FramesPath, payload); err != nil {
			logger.Error().Err(err).Str("path", p.FramesPath).Msg("write frames.json failed")
		} else {
			logger.Info().Int("frames", len(payload.Frames)).Str("path", p.FramesPath).Msg("frames written")
		}
	}

	if !p.Region.Alerts || p.AlertsPath == "" {
		return
	}
	active, err := p.Alerts.FetchActive(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("alerts poll failed")
		return
	}
	if err := WriteJSON(p.AlertsPath, BuildAlertsPayload(active)); err != nil {
		logger.Error().Err(err).Str("path", p.AlertsPath).Msg("write alerts.json failed")
		return
	}
	logger.Info().Int("alerts", len(active)).Str("path", p.AlertsPath).Msg("alerts written")
}
