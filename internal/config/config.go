package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment
// variables, with sensible defaults so the tool runs out of the box.
type Config struct {
	SQLitePath string
	ListenAddr string

	// ListingsURL is the paginated listings search to scrape.
	ListingsURL string
	// PageLimit caps scraped result pages; 0 scrapes them all.
	PageLimit int

	// GeocodeURL / RoutingURL override the provider endpoints. Empty means
	// the real providers; tests and local stubs point these elsewhere.
	GeocodeURL string
	RoutingURL string

	HTTPTimeout       time.Duration
	GeocodeRPS        int
	MaxParallelChunks int
}

// LoadConfig reads the optional .env file and environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		SQLitePath:  getEnv("SQLITE_PATH", filepath.Join("data", "suumo-traveltime.db")),
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		ListingsURL: getEnv("LISTINGS_URL", ""),
		GeocodeURL:  getEnv("GEOCODE_URL", ""),
		RoutingURL:  getEnv("ROUTING_URL", ""),
	}

	var err error
	if cfg.PageLimit, err = getEnvInt("PAGE_LIMIT", 1); err != nil {
		return nil, err
	}
	if cfg.GeocodeRPS, err = getEnvInt("GEOCODE_RPS", 10); err != nil {
		return nil, err
	}
	if cfg.MaxParallelChunks, err = getEnvInt("MAX_PARALLEL_CHUNKS", 4); err != nil {
		return nil, err
	}

	timeoutSeconds, err := getEnvInt("HTTP_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, val)
	}
	return n, nil
}
