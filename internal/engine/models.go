package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"live-transcriber/internal/domain"
)

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// modelCatalog maps each selectable size to its full and quantized artefacts.
var modelCatalog = []domain.WhisperModelOption{
	{Size: "tiny", Tier: domain.TierFloat16, FileName: "ggml-tiny.bin", SizeLabel: "~75 MB"},
	{Size: "tiny", Tier: domain.TierInt8Float16, FileName: "ggml-tiny-q5_1.bin", SizeLabel: "~31 MB"},
	{Size: "base", Tier: domain.TierFloat16, FileName: "ggml-base.bin", SizeLabel: "~142 MB"},
	{Size: "base", Tier: domain.TierInt8Float16, FileName: "ggml-base-q5_1.bin", SizeLabel: "~57 MB"},
	{Size: "small", Tier: domain.TierFloat16, FileName: "ggml-small.bin", SizeLabel: "~466 MB"},
	{Size: "small", Tier: domain.TierInt8Float16, FileName: "ggml-small-q5_1.bin", SizeLabel: "~181 MB"},
	{Size: "medium", Tier: domain.TierFloat16, FileName: "ggml-medium.bin", SizeLabel: "~1.5 GB"},
	{Size: "medium", Tier: domain.TierInt8Float16, FileName: "ggml-medium-q5_0.bin", SizeLabel: "~514 MB"},
	{Size: "large-v3", Tier: domain.TierFloat16, FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB"},
	{Size: "large-v3", Tier: domain.TierInt8Float16, FileName: "ggml-large-v3-q5_0.bin", SizeLabel: "~1.1 GB"},
}

// ModelCatalog returns a copy of the known model artefacts with download URLs.
func ModelCatalog() []domain.WhisperModelOption {
	out := make([]domain.WhisperModelOption, len(modelCatalog))
	for i, m := range modelCatalog {
		m.URL = modelBaseURL + m.FileName
		out[i] = m
	}
	return out
}

// LookupModel finds the catalog entry for a size and tier.
func LookupModel(size string, tier domain.PrecisionTier) (domain.WhisperModelOption, bool) {
	for _, m := range ModelCatalog() {
		if m.Size == size && m.Tier == tier {
			return m, true
		}
	}
	return domain.WhisperModelOption{}, false
}

// ResolveModelPath returns where the artefact for size and tier lives in dir.
func ResolveModelPath(dir, size string, tier domain.PrecisionTier) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("model directory is required")
	}
	m, ok := LookupModel(size, tier)
	if !ok {
		return "", fmt.Errorf("no %s model for size %q", tier, size)
	}
	return filepath.Join(dir, m.FileName), nil
}
