package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the process needs at startup. Values come from
// the environment with working defaults; nothing here is reloaded at runtime.
type Config struct {
	BackendURL string
	APIKey     string
	UserID     string

	QueuePath   string
	ArchivePath string
	LogPath     string
	LogLevel    string

	SyncInterval       time.Duration
	IdleThreshold      time.Duration
	ScreenshotInterval time.Duration
	RequestTimeout     time.Duration
}

func Load() Config {
	cfg := Config{
		BackendURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("PULSETRACK_BACKEND_URL")), "/"),
		APIKey:             strings.TrimSpace(os.Getenv("PULSETRACK_API_KEY")),
		UserID:             strings.TrimSpace(os.Getenv("PULSETRACK_USER_ID")),
		LogLevel:           strings.TrimSpace(os.Getenv("PULSETRACK_LOG_LEVEL")),
		SyncInterval:       envSeconds("PULSETRACK_SYNC_INTERVAL_SECONDS", 30*time.Second),
		IdleThreshold:      envSeconds("PULSETRACK_IDLE_THRESHOLD_SECONDS", 5*time.Minute),
		ScreenshotInterval: envSeconds("PULSETRACK_SCREENSHOT_INTERVAL_SECONDS", 5*time.Minute),
		RequestTimeout:     envSeconds("PULSETRACK_REQUEST_TIMEOUT_SECONDS", 30*time.Second),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	dir := dataDir()
	cfg.QueuePath = envPath("PULSETRACK_QUEUE_PATH", filepath.Join(dir, "queue.json"))
	cfg.ArchivePath = envPath("PULSETRACK_ARCHIVE_PATH", filepath.Join(dir, "archive.db"))
	cfg.LogPath = envPath("PULSETRACK_LOG_PATH", filepath.Join(dir, "pulsetrack.log"))

	return cfg
}

func dataDir() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(cfg, "pulsetrack")
}

func envPath(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envSeconds(name string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
