package transcript

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
)

const backupTimeLayout = "20060102_150405"

// BackupName builds the auto-backup file name for the given finalize time.
func BackupName(now time.Time) string {
	return "AUTOSAVE_" + now.Format(backupTimeLayout) + ".txt"
}

// SuggestedName builds the default save-dialog file name for a source file.
func SuggestedName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	if base == "." || base == string(filepath.Separator) {
		base = "transcript"
	}
	return "Transcript_" + base + ".txt"
}

// Writer performs plain-text transcript writes that overwrite unconditionally.
type Writer struct {
	writeFile func(name string, data []byte, perm os.FileMode) error
	log       zerolog.Logger
}

// NewWriter builds a writer backed by the real filesystem.
func NewWriter(logger zerolog.Logger) *Writer {
	return &Writer{
		writeFile: os.WriteFile,
		log:       logger.With().Str("component", "transcript.writer").Logger(),
	}
}

// WriteText writes content to path as UTF-8 text.
func (w *Writer) WriteText(path string, content string) error {
	if path == "" {
		return domain.NewIOError(path, os.ErrInvalid)
	}
	if err := w.writeFile(path, []byte(content), 0o644); err != nil {
		return domain.NewIOError(path, err)
	}
	w.log.Debug().Str("path", path).Int("bytes", len(content)).Msg("transcript written")
	return nil
}

// WriteBackup writes content to an AUTOSAVE file in dir and returns its path.
func (w *Writer) WriteBackup(dir string, now time.Time, content string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, BackupName(now))
	if err := w.WriteText(path, content); err != nil {
		return "", err
	}
	w.log.Info().Str("path", path).Msg("Auto-save created")
	return path, nil
}

// NewWriterForTests constructs a writer with an injectable file writer.
func NewWriterForTests(writeFile func(name string, data []byte, perm os.FileMode) error) *Writer {
	return &Writer{
		writeFile: writeFile,
		log:       zerolog.Nop(),
	}
}
