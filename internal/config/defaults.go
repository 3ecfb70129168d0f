package config

import (
	"os"
	"path/filepath"

	"live-transcriber/internal/domain"
)

const appDirName = ".live-transcriber"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		ModelDir:  filepath.Join(appDir(), "models"),
		ModelSize: domain.DefaultModelSize,
		Language:  domain.LanguageAuto,
	}
}

// DefaultSettingsPath is where the desktop and terminal apps keep settings.
func DefaultSettingsPath() string {
	return filepath.Join(appDir(), "settings.json")
}

func appDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, appDirName)
}
