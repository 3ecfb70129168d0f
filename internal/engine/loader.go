package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
)

// Loader resolves a model size into an engine, falling back once to a
// quantized tier when the full-precision tier cannot be constructed.
type Loader struct {
	opener   Opener
	primary  domain.PrecisionTier
	fallback domain.PrecisionTier
	log      zerolog.Logger
}

// NewLoader creates a loader trying float16 first and int8_float16 second.
func NewLoader(opener Opener, logger zerolog.Logger) *Loader {
	return &Loader{
		opener:   opener,
		primary:  domain.TierFloat16,
		fallback: domain.TierInt8Float16,
		log:      logger.With().Str("component", "engine.loader").Logger(),
	}
}

// Load opens modelSize at the primary tier and retries exactly once at the
// fallback tier. warn receives a visible line before the retry.
func (l *Loader) Load(ctx context.Context, modelSize string, warn func(msg string)) (Engine, error) {
	if !domain.IsModelSize(modelSize) {
		return nil, domain.NewModelLoadError(fmt.Errorf("unknown model size %q", modelSize))
	}

	eng, err := l.opener.Open(ctx, modelSize, l.primary)
	if err == nil {
		l.log.Info().Str("model", modelSize).Str("tier", string(l.primary)).Msg("model loaded")
		return eng, nil
	}

	l.log.Warn().Err(err).Str("model", modelSize).Str("tier", string(l.primary)).Msg("primary tier failed; falling back")
	if warn != nil {
		warn(fmt.Sprintf("VRAM Warning: %v\nFallback to %s...", err, l.fallback))
	}

	eng, err = l.opener.Open(ctx, modelSize, l.fallback)
	if err != nil {
		l.log.Error().Err(err).Str("model", modelSize).Str("tier", string(l.fallback)).Msg("fallback tier failed")
		return nil, domain.NewModelLoadError(err)
	}

	l.log.Info().Str("model", modelSize).Str("tier", string(l.fallback)).Msg("model loaded")
	return eng, nil
}
