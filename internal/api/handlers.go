// Package api serves the poller's state over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/transit-strips/poller/internal/db"
	"github.com/transit-strips/poller/internal/frame"
	"github.com/transit-strips/poller/internal/metrics"
	"github.com/transit-strips/poller/internal/strip"
	"github.com/transit-strips/poller/internal/topology"
)

// FrameSource exposes the last reconciled frame
type FrameSource interface {
	Current() frame.Frame
}

// StatsSource exposes iteration statistics
type StatsSource interface {
	Snapshot() metrics.Snapshot
}

// PixelRepository reads the virtual strip
type PixelRepository interface {
	Pixels(ctx context.Context) ([]db.Pixel, error)
}

// Handler serves frame, topology and statistics endpoints
type Handler struct {
	topo   *topology.Topology
	frames FrameSource
	stats  StatsSource
	pixels PixelRepository
	// staleAfter marks the service unhealthy when no iteration has run for
	// this long. Zero disables the check.
	staleAfter time.Duration
	now        func() time.Time
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error string `json:"error"`
}

// FrameResponse is the JSON response for GET /api/frame
type FrameResponse struct {
	Cells []frame.Cell `json:"cells"`
	Count int          `json:"count"`
}

// HealthResponse is the JSON response for GET /health
type HealthResponse struct {
	Status          string     `json:"status"`
	Timestamp       time.Time  `json:"timestamp"`
	LastIterationAt *time.Time `json:"last_iteration_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// TopologyResponse is the JSON response for GET /api/topology
type TopologyResponse struct {
	Devices []strip.Device  `json:"devices"`
	Routes  []RouteResponse `json:"routes"`
	Slots   int             `json:"configured_slots"`
}

type RouteResponse struct {
	ID         string              `json:"id"`
	Directions []DirectionResponse `json:"directions"`
}

type DirectionResponse struct {
	ID    int            `json:"id"`
	Color *strip.Color   `json:"color,omitempty"`
	Stops []StopResponse `json:"stops"`
}

type StopResponse struct {
	Code          string       `json:"code"`
	Name          string       `json:"name,omitempty"`
	Lat           float64      `json:"lat"`
	Lon           float64      `json:"lon"`
	Slot          strip.Slot   `json:"slot"`
	Disabled      bool         `json:"disabled,omitempty"`
	Strategy      string       `json:"strategy"`
	Intermediates []strip.Slot `json:"intermediates,omitempty"`
}

// PixelsResponse is the JSON response for GET /api/pixels
type PixelsResponse struct {
	Pixels []db.Pixel `json:"pixels"`
	Count  int        `json:"count"`
}

// GetHealth handles GET /health
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot()
	now := h.now().UTC()
	resp := HealthResponse{Status: "ok", Timestamp: now, LastIterationAt: snap.LastIterationAt}

	if h.staleAfter > 0 && (snap.LastIterationAt == nil || now.Sub(*snap.LastIterationAt) > h.staleAfter) {
		resp.Status = "stale"
		resp.Error = snap.LastError
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFrame handles GET /api/frame
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	current := h.frames.Current()
	if current == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "No frame has been rendered yet"})
		return
	}

	cells := current.Cells()
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, FrameResponse{Cells: cells, Count: len(cells)})
}

// GetCell handles GET /api/frame/{slot}
func (h *Handler) GetCell(w http.ResponseWriter, r *http.Request) {
	slot, err := strip.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	cell, ok := h.frames.Current()[slot]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "LED not found: " + slot.String()})
		return
	}
	writeJSON(w, http.StatusOK, cell)
}

// GetTopology handles GET /api/topology
func (h *Handler) GetTopology(w http.ResponseWriter, r *http.Request) {
	resp := TopologyResponse{
		Devices: h.topo.Devices(),
		Slots:   len(h.topo.AllOutputSlots()),
	}

	for _, route := range h.topo.Routes() {
		rr := RouteResponse{ID: route.ID}
		for _, d := range route.Directions {
			dr := DirectionResponse{ID: d.ID}
			if d.HasColor {
				c := d.Color
				dr.Color = &c
			}
			for _, s := range d.Stops {
				sr := StopResponse{
					Code:     s.Code,
					Name:     s.Name,
					Lat:      s.Location.Lat,
					Lon:      s.Location.Lon,
					Slot:     s.Slot,
					Disabled: s.Disabled,
					Strategy: s.Strategy.String(),
				}
				for _, t := range s.Thresholds {
					sr.Intermediates = append(sr.Intermediates, t.Slot)
				}
				for _, z := range s.Zones {
					sr.Intermediates = append(sr.Intermediates, z.Slot)
				}
				dr.Stops = append(dr.Stops, sr)
			}
			rr.Directions = append(rr.Directions, dr)
		}
		resp.Routes = append(resp.Routes, rr)
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, resp)
}

// GetStats handles GET /api/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

// GetPixels handles GET /api/pixels
func (h *Handler) GetPixels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pixels, err := h.pixels.Pixels(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, ErrorResponse{Error: "Failed to retrieve pixels"})
		return
	}
	writeJSON(w, http.StatusOK, PixelsResponse{Pixels: pixels, Count: len(pixels)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
