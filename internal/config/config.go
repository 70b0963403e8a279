package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Renderer names accepted in RENDERER
const (
	RendererConsole = "console"
	RendererSQLite  = "sqlite"
	RendererLog     = "log"
)

// Config holds all configuration for the poller service
type Config struct {
	// Topology
	TopologyPath string

	// Real-time feed
	GTFSVehiclePositionsURL string
	GTFSAlertsURL           string
	FeedAPIKey              string
	PollInterval            time.Duration
	ResolveWorkers          int

	// Static GTFS (optional, fills stop coordinates and trip directions)
	GTFSStaticPath string

	// Output
	Renderer      string
	LightSetDelay time.Duration
	Gamma         float64
	DatabasePath  string

	// Status API
	HTTPAddr       string
	AllowedOrigins []string
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("Warning: failed to load %s: %v", f, err)
		}
	}
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	cfg := &Config{
		// Topology
		TopologyPath: getEnv("TOPOLOGY_PATH", "strips.json"),

		// Real-time feed
		GTFSVehiclePositionsURL: getEnv("GTFS_VEHICLE_POSITIONS_URL", ""),
		GTFSAlertsURL:           getEnv("GTFS_ALERTS_URL", ""),
		FeedAPIKey:              getEnv("FEED_API_KEY", ""),
		PollInterval:            time.Duration(getEnvInt("POLL_INTERVAL", 4)) * time.Second,
		ResolveWorkers:          getEnvInt("RESOLVE_WORKERS", 4),

		// Static GTFS
		GTFSStaticPath: getEnv("GTFS_STATIC_PATH", ""),

		// Output
		Renderer:      strings.ToLower(getEnv("RENDERER", RendererConsole)),
		LightSetDelay: time.Duration(getEnvInt("LIGHT_SET_DELAY_MS", 10)) * time.Millisecond,
		Gamma:         float64(getEnvInt("GAMMA", 250)) / 100,
		DatabasePath:  getEnv("SQLITE_DATABASE", "strips.db"),

		// Status API
		HTTPAddr:       getEnv("HTTP_ADDR", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 4 * time.Second
	}
	if cfg.ResolveWorkers < 1 {
		cfg.ResolveWorkers = 1
	}
	if cfg.Gamma <= 0 {
		cfg.Gamma = 2.5
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
