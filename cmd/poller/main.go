package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transit-strips/poller/internal/api"
	"github.com/transit-strips/poller/internal/config"
	"github.com/transit-strips/poller/internal/db"
	"github.com/transit-strips/poller/internal/poller"
	"github.com/transit-strips/poller/internal/realtime/vehicles"
	"github.com/transit-strips/poller/internal/render"
	"github.com/transit-strips/poller/internal/static/gtfs"
	"github.com/transit-strips/poller/internal/strip"
	"github.com/transit-strips/poller/internal/topology"
)

func main() {
	log.Println("Starting strip poller...")

	config.LoadDotEnv()
	cfg := config.Load()
	log.Printf("Config loaded: topology=%s, poll_interval=%v, renderer=%s", cfg.TopologyPath, cfg.PollInterval, cfg.Renderer)

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Static GTFS (optional)
	// ═══════════════════════════════════════════════════════
	var buildOpts []topology.BuildOption
	var trips vehicles.TripIndex
	if cfg.GTFSStaticPath != "" {
		data, err := gtfs.Parse(cfg.GTFSStaticPath)
		if err != nil {
			log.Printf("Warning: static GTFS unavailable: %v", err)
		} else {
			buildOpts = append(buildOpts, topology.WithStopLocator(data.StopLocator()))
			trips = data.TripIndex()
		}
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Topology
	// ═══════════════════════════════════════════════════════
	topoCfg, err := topology.LoadFile(cfg.TopologyPath)
	if err != nil {
		log.Fatalf("Failed to load topology: %v", err)
	}
	topo, err := topology.Build(topoCfg, buildOpts...)
	if err != nil {
		log.Fatalf("Invalid topology: %v", err)
	}
	log.Printf("Topology loaded: %d routes, %d devices, %d configured LEDs",
		len(topo.Routes()), len(topo.Devices()), len(topo.AllOutputSlots()))

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Renderer
	// ═══════════════════════════════════════════════════════
	var out render.Renderer
	var pixels api.PixelRepository
	switch cfg.Renderer {
	case config.RendererSQLite:
		database, err := db.Connect(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure database schema: %v", err)
		}
		if n, err := database.PruneDevices(context.Background(), topo.Devices()); err != nil {
			log.Printf("Warning: failed to prune old pixels: %v", err)
		} else if n > 0 {
			log.Printf("Pruned %d pixels outside the configured devices", n)
		}
		out = render.NewStore(database)
		pixels = database
	case config.RendererLog:
		// One line per LED, paced like the physical strips.
		out = render.NewPaced(render.Log{}, cfg.LightSetDelay)
	case config.RendererConsole:
		out = render.NewConsole(os.Stdout, topo.Devices(), cfg.Gamma)
	default:
		log.Fatalf("Unknown renderer %q", cfg.Renderer)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 4: Poller and status API
	// ═══════════════════════════════════════════════════════
	feed := vehicles.NewClient(vehicles.Options{
		VehiclePositionsURL: cfg.GTFSVehiclePositionsURL,
		AlertsURL:           cfg.GTFSAlertsURL,
		APIKey:              cfg.FeedAPIKey,
	}, trips)

	p := poller.NewPoller(topo, feed, out, nil, poller.Options{
		Workers: cfg.ResolveWorkers,
		Palette: strip.DefaultPalette(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var server *http.Server
	if cfg.HTTPAddr != "" {
		server = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: api.NewRouter(topo, p.Reconciler(), p.Stats(), api.Options{
				AllowedOrigins: cfg.AllowedOrigins,
				Pixels:         pixels,
				StaleAfter:     5 * cfg.PollInterval,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("Status API listening on %s", cfg.HTTPAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Status API failed: %v", err)
			}
		}()
	}

	log.Println("Clearing strips...")
	if err := p.Clear(ctx); err != nil {
		log.Printf("Warning: %v", err)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Poll until shutdown
	// ═══════════════════════════════════════════════════════
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, cfg.PollInterval)
	}()
	log.Printf("Poller running (poll every %v)", cfg.PollInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()
	<-done

	if server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Status API shutdown: %v", err)
		}
	}

	// Leave the strips dark.
	clearCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := p.Clear(clearCtx); err != nil {
		log.Printf("Warning: %v", err)
	}
	log.Println("Goodbye!")
}
