//go:build !whisper_cpp

package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
)

// disabledOpener is used when the binary is built without whisper.cpp.
type disabledOpener struct {
	log zerolog.Logger
}

// NewWhisperOpener returns an opener that always fails, so the loader
// exhausts both tiers and the job fails with a model load error.
func NewWhisperOpener(modelDir string, logger zerolog.Logger) Opener {
	return &disabledOpener{log: logger.With().Str("component", "engine.whisper").Str("model_dir", modelDir).Logger()}
}

// NativeAvailable reports whether whisper.cpp was compiled in.
func NativeAvailable() bool { return false }

func (o *disabledOpener) Open(ctx context.Context, modelSize string, tier domain.PrecisionTier) (Engine, error) {
	o.log.Warn().Str("model", modelSize).Str("tier", string(tier)).Msg("native backend disabled at build time")
	return nil, fmt.Errorf("%w: rebuild with -tags whisper_cpp", ErrNativeUnavailable)
}
