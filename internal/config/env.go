package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
)

// Runtime holds process-level options read from the environment.
type Runtime struct {
	LogLevel     zerolog.Level
	ModelDir     string
	BackupDir    string
	SettingsPath string
	EventHistory int
}

// LoadRuntime reads environment overrides.
func LoadRuntime() Runtime {
	return Runtime{
		LogLevel:     ParseLogLevel(getenv("LOG_LEVEL", "info")),
		ModelDir:     getenv("LIVE_TRANSCRIBER_MODEL_DIR", ""),
		BackupDir:    getenv("LIVE_TRANSCRIBER_BACKUP_DIR", "."),
		SettingsPath: getenv("LIVE_TRANSCRIBER_SETTINGS", DefaultSettingsPath()),
		EventHistory: getenvInt("LIVE_TRANSCRIBER_EVENT_HISTORY", 500),
	}
}

// Apply overlays environment overrides onto persisted settings.
func (r Runtime) Apply(cfg domain.Settings) domain.Settings {
	if r.ModelDir != "" {
		cfg.ModelDir = r.ModelDir
	}
	return cfg
}

// ParseLogLevel maps LOG_LEVEL values to zerolog levels. Empty or
// unrecognised values fall back to info.
func ParseLogLevel(v string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(v)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
