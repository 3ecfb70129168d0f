package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/engine"
)

// TestResolveKnownModelDirsDeduplicates keeps the settings dir first.
func TestResolveKnownModelDirsDeduplicates(t *testing.T) {
	root := t.TempDir()
	dirs := resolveKnownModelDirs(domain.Settings{ModelDir: root + string(filepath.Separator)})
	if len(dirs) == 0 || dirs[0] != root {
		t.Fatalf("dirs = %v, want %s first", dirs, root)
	}
	seen := map[string]bool{}
	for _, d := range dirs {
		if seen[d] {
			t.Fatalf("duplicate dir %s in %v", d, dirs)
		}
		seen[d] = true
	}
}

// TestMarkDownloadedModels marks catalog models when file exists in known dirs.
func TestMarkDownloadedModels(t *testing.T) {
	root := t.TempDir()
	modelPath := filepath.Join(root, "ggml-base-q5_1.bin")
	if err := os.WriteFile(modelPath, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write model file: %v", err)
	}

	models := []domain.WhisperModelOption{
		{Size: "base", Tier: domain.TierInt8Float16, FileName: "ggml-base-q5_1.bin"},
		{Size: "base", Tier: domain.TierFloat16, FileName: "ggml-base.bin"},
	}
	markDownloadedModels(models, []string{root})

	if !models[0].Downloaded {
		t.Fatal("expected quantized base to be marked downloaded")
	}
	if models[0].LocalPath != modelPath {
		t.Fatalf("localPath = %s, want %s", models[0].LocalPath, modelPath)
	}
	if models[1].Downloaded {
		t.Fatal("expected full base to remain not downloaded")
	}
}

// TestGetWhisperModelsListsEveryTier exposes both tiers per size.
func TestGetWhisperModelsListsEveryTier(t *testing.T) {
	f := newTestApp(t, stubDialogs{})
	modelDir := f.app.GetSettings().ModelDir
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-tiny.bin"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	models := f.app.GetWhisperModels()
	if len(models) != len(engine.ModelCatalog()) {
		t.Fatalf("models = %d", len(models))
	}
	for _, m := range models {
		if m.URL == "" {
			t.Fatalf("model %s/%s has no URL", m.Size, m.Tier)
		}
		want := m.FileName == "ggml-tiny.bin"
		if m.Downloaded != want {
			t.Fatalf("model %s downloaded = %v", m.FileName, m.Downloaded)
		}
	}
}

// TestDownloadWhisperModelRejectsUnknown fails before any network access.
func TestDownloadWhisperModelRejectsUnknown(t *testing.T) {
	f := newTestApp(t, stubDialogs{})
	if _, err := f.app.DownloadWhisperModel("base", "int4"); err == nil {
		t.Fatal("expected unknown tier error")
	}
	if _, err := f.app.DownloadWhisperModel("huge", string(domain.TierFloat16)); err == nil {
		t.Fatal("expected unknown size error")
	}
}
