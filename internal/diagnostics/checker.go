// Package diagnostics runs startup checks for the transcription stack.
package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/engine"
)

// Checker validates external tools, model files and the backup directory.
type Checker struct {
	lookPath        func(string) (string, error)
	stat            func(string) (os.FileInfo, error)
	mkdirAll        func(string, os.FileMode) error
	createTemp      func(string, string) (*os.File, error)
	remove          func(string) error
	nativeAvailable func() bool
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:        exec.LookPath,
		stat:            os.Stat,
		mkdirAll:        os.MkdirAll,
		createTemp:      os.CreateTemp,
		remove:          os.Remove,
		nativeAvailable: engine.NativeAvailable,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings, backupDir string) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg"),
		c.checkNative(),
		c.checkModelFiles(settings.ModelDir, settings.ModelSize),
		c.checkBackupDir(backupDir),
	}

	return domain.NewDiagnosticReport(time.Now().UTC(), items)
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before starting a transcription job.",
			Fixable: true,
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

func (c *Checker) checkNative() domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: domain.DiagnosticNativeBackend, Name: "whisper.cpp backend"}
	if c.nativeAvailable() {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "whisper.cpp is linked into this build."
		return item
	}
	item.Status = domain.DiagnosticStatusFail
	item.Message = "This build has no speech recognition backend."
	item.Hint = "Rebuild with -tags whisper_cpp against libwhisper."
	return item
}

// checkModelFiles looks for both precision tiers of the selected size. The
// quantized file alone is enough to run, so a missing full model only warns.
func (c *Checker) checkModelFiles(modelDir, size string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:      domain.DiagnosticModelFiles,
		Name:    "Model files",
		Fixable: true,
	}

	if strings.TrimSpace(modelDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model directory is empty."
		item.Hint = "Set a model directory in settings."
		return item
	}

	var found, missing []string
	for _, tier := range []domain.PrecisionTier{domain.TierFloat16, domain.TierInt8Float16} {
		path, err := engine.ResolveModelPath(modelDir, size, tier)
		if err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = err.Error()
			item.Hint = "Pick one of the listed model sizes."
			return item
		}
		if _, err := c.stat(path); err != nil {
			missing = append(missing, path)
			continue
		}
		found = append(found, path)
	}

	switch {
	case len(missing) == 0:
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Both precision tiers for %s are present in %s", size, modelDir)
	case len(found) == 0:
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("No model files for %s: %s", size, strings.Join(missing, ", "))
		item.Hint = "Download a model from the model catalog."
	default:
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Missing %s; only %s is available", strings.Join(missing, ", "), strings.Join(found, ", "))
		item.Hint = "The job will run on the available tier only."
	}
	return item
}

// checkBackupDir validates backup directory existence and write access.
func (c *Checker) checkBackupDir(backupDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:      domain.DiagnosticBackupDir,
		Name:    "Backup directory",
		Fixable: true,
	}

	if strings.TrimSpace(backupDir) == "" {
		backupDir = "."
	}

	if err := c.mkdirAll(backupDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create backup directory: %s", backupDir)
		item.Hint = "Set LIVE_TRANSCRIBER_BACKUP_DIR to a writable location."
		return item
	}

	tmpFile, err := c.createTemp(backupDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backup directory is not writable: %s", backupDir)
		item.Hint = "Auto-saves would fail and every job would end in an error."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", backupDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
	nativeAvailable func() bool,
) *Checker {
	return &Checker{
		lookPath:        lookPath,
		stat:            stat,
		mkdirAll:        mkdirAll,
		createTemp:      createTemp,
		remove:          remove,
		nativeAvailable: nativeAvailable,
	}
}

// Summary renders failing and warning items as one line each.
func Summary(report domain.DiagnosticReport) []string {
	var out []string
	for _, item := range report.Problems() {
		out = append(out, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(item.Status)), item.Name, item.Message))
	}
	return out
}

