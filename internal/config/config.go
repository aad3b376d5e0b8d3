package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Interface  string
	Addr       string
	MockMode   bool
	DBPath     string
	CaptureDir string
	Debug      bool
	DwellTime  int // in milliseconds
	BurstGap   int // deauth pacing, in milliseconds
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Interface = getEnv("CHIMERA_INTERFACE", "wlan0")
	cfg.Addr = getEnv("CHIMERA_ADDR", ":8080")
	cfg.MockMode = getEnvBool("CHIMERA_MOCK", false)
	cfg.DBPath = getEnv("CHIMERA_DB", getDefaultDBPath())
	cfg.CaptureDir = getEnv("CHIMERA_CAPTURES", "")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Interface, "i", cfg.Interface, "Wireless interface to drive")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run with an in-memory radio (simulation)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.StringVar(&cfg.CaptureDir, "captures", cfg.CaptureDir, "Directory for per-handshake pcap files (empty to disable)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.IntVar(&cfg.DwellTime, "dwell", 250, "Channel dwell time in milliseconds")
	flag.IntVar(&cfg.BurstGap, "burst-gap", 5, "Delay between deauth frames in milliseconds")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "chimera.db"
	}

	dir := filepath.Join(home, ".chimera")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .chimera directory, using current dir: %v", err)
		return "chimera.db"
	}

	return filepath.Join(dir, "chimera.db")
}
