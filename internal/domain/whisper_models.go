package domain

// PrecisionTier trades accuracy for memory during inference.
type PrecisionTier string

const (
	// TierFloat16 is full-precision accelerated inference.
	TierFloat16 PrecisionTier = "float16"
	// TierInt8Float16 is quantized accelerated inference.
	TierInt8Float16 PrecisionTier = "int8_float16"
)

// DefaultModelSize is selected on first launch.
const DefaultModelSize = "large-v3"

// ModelSizes lists the selectable model sizes in display order.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large-v3"}

// Languages lists the selectable language hints; "auto" means detect.
var Languages = []string{LanguageAuto, "en", "pt", "es", "fr", "de", "it"}

// WhisperModelOption describes one downloadable whisper.cpp model artefact.
type WhisperModelOption struct {
	Size       string        `json:"size"`
	Tier       PrecisionTier `json:"tier"`
	FileName   string        `json:"fileName"`
	URL        string        `json:"url"`
	SizeLabel  string        `json:"sizeLabel,omitempty"`
	Downloaded bool          `json:"downloaded"`
	LocalPath  string        `json:"localPath,omitempty"`
}

// IsModelSize reports whether size is one of ModelSizes.
func IsModelSize(size string) bool {
	return contains(ModelSizes, size)
}

// IsLanguage reports whether lang is one of Languages.
func IsLanguage(lang string) bool {
	return contains(Languages, lang)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
