package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/transit-strips/poller/internal/topology"
)

// Options configures the router
type Options struct {
	AllowedOrigins []string
	// Pixels enables GET /api/pixels when set.
	Pixels PixelRepository
	// StaleAfter reports /health as unavailable once no iteration has run
	// for this long.
	StaleAfter time.Duration
}

// NewRouter builds the status API
func NewRouter(topo *topology.Topology, frames FrameSource, stats StatsSource, opts Options) http.Handler {
	h := &Handler{
		topo:       topo,
		frames:     frames,
		stats:      stats,
		pixels:     opts.Pixels,
		staleAfter: opts.StaleAfter,
		now:        time.Now,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", h.GetHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/frame", h.GetFrame)
		r.Get("/frame/{slot}", h.GetCell)
		r.Get("/topology", h.GetTopology)
		r.Get("/stats", h.GetStats)
		if h.pixels != nil {
			r.Get("/pixels", h.GetPixels)
		}
	})

	return r
}
