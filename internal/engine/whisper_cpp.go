//go:build whisper_cpp

package engine

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
)

// segmentBuffer bounds how far decoding may run ahead of the consumer.
const segmentBuffer = 64

// whisperOpener loads ggml model files from a model directory.
type whisperOpener struct {
	modelDir string
	prep     *Preprocessor
	threads  uint
	log      zerolog.Logger
}

// NewWhisperOpener returns an opener backed by whisper.cpp.
func NewWhisperOpener(modelDir string, logger zerolog.Logger) Opener {
	return &whisperOpener{
		modelDir: modelDir,
		prep:     NewPreprocessor(),
		threads:  uint(runtime.NumCPU()),
		log:      logger.With().Str("component", "engine.whisper").Logger(),
	}
}

// NativeAvailable reports whether whisper.cpp was compiled in.
func NativeAvailable() bool { return true }

func (o *whisperOpener) Open(ctx context.Context, modelSize string, tier domain.PrecisionTier) (Engine, error) {
	path, err := ResolveModelPath(o.modelDir, modelSize, tier)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file unavailable: %w", err)
	}

	model, err := whisperpkg.New(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}

	o.log.Info().Str("model", path).Str("tier", string(tier)).Uint("threads", o.threads).Msg("whisper: model loaded")
	return &whisperEngine{model: model, prep: o.prep, threads: o.threads, log: o.log}, nil
}

// whisperEngine runs one transcription per call on a fresh model context.
type whisperEngine struct {
	model   whisperpkg.Model
	prep    *Preprocessor
	threads uint
	log     zerolog.Logger
	stream  *chanStream
}

// Transcribe decodes the file, starts inference and returns once the
// language is known.
func (e *whisperEngine) Transcribe(ctx context.Context, filePath string, opts TranscribeOptions) (string, SegmentStream, error) {
	samples, err := e.prep.LoadSamples(ctx, filePath)
	if err != nil {
		return "", nil, err
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return "", nil, fmt.Errorf("create context: %w", err)
	}
	wctx.SetThreads(e.threads)
	if opts.BeamSize > 0 {
		wctx.SetBeamSize(opts.BeamSize)
	}
	lang := opts.Language
	if lang == "" {
		lang = domain.LanguageAuto
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return "", nil, fmt.Errorf("set language %q: %w", lang, err)
	}

	e.log.Debug().Int("samples", len(samples)).Str("language", lang).Msg("whisper: processing")
	e.stream = newChanStream(ctx, segmentBuffer, func(ctx context.Context, emit emitFunc) error {
		segCB := func(seg whisperpkg.Segment) {
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				return
			}
			detected := wctx.Language()
			if detected == "" || detected == domain.LanguageAuto {
				detected = wctx.DetectedLanguage()
			}
			emit(domain.Segment{Start: seg.Start, End: seg.End, Text: text}, detected)
		}
		if err := wctx.Process(samples, nil, segCB, nil); err != nil {
			return fmt.Errorf("process audio: %w", err)
		}
		return nil
	})

	detected := opts.Language
	if detected == "" {
		detected = e.stream.Language()
	}
	return detected, e.stream, nil
}

// Close waits for any running inference before freeing the model.
func (e *whisperEngine) Close() error {
	if e.stream != nil {
		_ = e.stream.Close()
	}
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}
