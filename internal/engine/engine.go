// Package engine adapts speech-recognition backends into lazy segment streams.
package engine

import (
	"context"
	"errors"

	"live-transcriber/internal/domain"
)

// DefaultBeamSize is the beam width used for every transcription.
const DefaultBeamSize = 5

// ErrNativeUnavailable is returned when the binary was built without a backend.
var ErrNativeUnavailable = errors.New("engine: native whisper backend unavailable")

// Opener constructs a ready inference engine for a model size and tier.
type Opener interface {
	Open(ctx context.Context, modelSize string, tier domain.PrecisionTier) (Engine, error)
}

// Engine transcribes one media file into a detected language and a stream.
type Engine interface {
	Transcribe(ctx context.Context, filePath string, opts TranscribeOptions) (string, SegmentStream, error)
	Close() error
}

// TranscribeOptions configures decoding for one file.
type TranscribeOptions struct {
	BeamSize int
	// Language is the hint passed to the engine; empty means detect.
	Language string
}

// SegmentStream is a finite, non-restartable sequence of segments.
type SegmentStream interface {
	// Next returns the next segment, or io.EOF once the sequence is exhausted.
	Next() (domain.Segment, error)
	// Close releases the producer. It is safe to call more than once.
	Close() error
}
