package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"live-transcriber/internal/config"
	"live-transcriber/internal/domain"
	"live-transcriber/internal/engine"
)

// GetWhisperModels returns every size and tier artefact, marking the ones
// already present in a known model directory.
func (a *App) GetWhisperModels() []domain.WhisperModelOption {
	models := engine.ModelCatalog()
	markDownloadedModels(models, resolveKnownModelDirs(a.currentSettings()))
	return models
}

// DownloadWhisperModel downloads one size/tier artefact into the model
// directory and refreshes diagnostics.
func (a *App) DownloadWhisperModel(size string, tier string) (domain.WhisperModelOption, error) {
	model, found := engine.LookupModel(strings.TrimSpace(size), domain.PrecisionTier(strings.TrimSpace(tier)))
	if !found {
		return domain.WhisperModelOption{}, fmt.Errorf("unknown model %s/%s", size, tier)
	}

	settings := a.currentSettings()
	target, err := engine.ResolveModelPath(settings.ModelDir, model.Size, model.Tier)
	if err != nil {
		return domain.WhisperModelOption{}, err
	}

	a.log.Info().Str("model", model.Size).Str("tier", string(model.Tier)).Str("path", target).Msg("downloading model")
	if err := downloadURLToFile(target, model.URL, modelDownloadTimeout); err != nil {
		return domain.WhisperModelOption{}, fmt.Errorf("download model %s: %w", model.FileName, err)
	}

	a.refreshDiagnostics(settings)
	model.Downloaded = true
	model.LocalPath = target
	return model, nil
}

func resolveKnownModelDirs(settings domain.Settings) []string {
	seen := map[string]struct{}{}
	var result []string
	add := func(path string) {
		p := strings.TrimSpace(path)
		if p == "" {
			return
		}
		clean := filepath.Clean(p)
		if clean == "." {
			return
		}
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		result = append(result, clean)
	}

	add(settings.ModelDir)
	add(config.DefaultSettings().ModelDir)
	return result
}

func markDownloadedModels(models []domain.WhisperModelOption, modelDirs []string) {
	for i := range models {
		for _, dir := range modelDirs {
			candidate := filepath.Join(dir, models[i].FileName)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			models[i].Downloaded = true
			models[i].LocalPath = candidate
			break
		}
	}
}
