package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/engine"
)

const (
	installCommandTimeout = 45 * time.Minute
	modelDownloadTimeout  = 45 * time.Minute
)

type installOption struct {
	manager  string
	commands [][]string
}

// InstallOrFixDiagnostic applies an OS-specific remediation for one failed diagnostic item.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings := a.currentSettings()
	var fixErr error

	switch id {
	case domain.DiagnosticFFmpeg:
		fixErr = installFFmpegForCurrentOS()
	case domain.DiagnosticModelFiles:
		fixErr = installMissingModel(settings)
	case domain.DiagnosticBackupDir:
		fixErr = os.MkdirAll(a.runtime.BackupDir, 0o755)
	case domain.DiagnosticNativeBackend:
		fixErr = fmt.Errorf("%w: rebuild the application with -tags whisper_cpp", engine.ErrNativeUnavailable)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	report := a.refreshDiagnostics(settings)
	if fixErr != nil {
		a.log.Error().Err(fixErr).Str("item", id).Msg("diagnostic fix failed")
		return report, fixErr
	}
	return report, nil
}

// installMissingModel downloads the full-precision file for the selected
// size unless some tier is already present.
func installMissingModel(settings domain.Settings) error {
	for _, tier := range []domain.PrecisionTier{domain.TierFloat16, domain.TierInt8Float16} {
		path, err := engine.ResolveModelPath(settings.ModelDir, settings.ModelSize, tier)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}

	model, ok := engine.LookupModel(settings.ModelSize, domain.TierFloat16)
	if !ok {
		return fmt.Errorf("unknown model size %q", settings.ModelSize)
	}
	target := filepath.Join(settings.ModelDir, model.FileName)
	if err := downloadURLToFile(target, model.URL, modelDownloadTimeout); err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	return nil
}

func installFFmpegForCurrentOS() error {
	options := []installOption{}

	switch goruntime.GOOS {
	case "windows":
		options = []installOption{
			{
				manager: "winget",
				commands: [][]string{
					{"winget", "install", "--id", "Gyan.FFmpeg", "--exact", "--accept-source-agreements", "--accept-package-agreements"},
				},
			},
			{
				manager:  "choco",
				commands: [][]string{{"choco", "install", "ffmpeg", "-y"}},
			},
			{
				manager:  "scoop",
				commands: [][]string{{"scoop", "install", "ffmpeg"}},
			},
		}
	case "darwin":
		options = []installOption{
			{
				manager:  "brew",
				commands: [][]string{{"brew", "install", "ffmpeg"}},
			},
		}
	default:
		options = []installOption{
			{
				manager: "apt-get",
				commands: [][]string{
					{"apt-get", "update"},
					{"apt-get", "install", "-y", "ffmpeg"},
				},
			},
			{
				manager:  "dnf",
				commands: [][]string{{"dnf", "install", "-y", "ffmpeg"}},
			},
			{
				manager:  "pacman",
				commands: [][]string{{"pacman", "-Sy", "--noconfirm", "ffmpeg"}},
			},
			{
				manager:  "zypper",
				commands: [][]string{{"zypper", "install", "-y", "ffmpeg"}},
			},
		}
	}

	if err := runFirstSuccessfulInstall(options, commandAvailable, runCommandWithPossibleElevation); err != nil {
		return fmt.Errorf("install ffmpeg: %w", err)
	}
	if err := requireToolsOnPath("ffmpeg"); err != nil {
		return fmt.Errorf("verify ffmpeg on PATH: %w", err)
	}
	return nil
}

func runFirstSuccessfulInstall(options []installOption, available func(string) bool, run func([]string) error) error {
	if len(options) == 0 {
		return fmt.Errorf("no install commands configured for OS %s", goruntime.GOOS)
	}

	errorsByManager := make([]string, 0, len(options))
	atLeastOneManager := false

	for _, option := range options {
		if !available(option.manager) {
			continue
		}
		atLeastOneManager = true
		if err := runInstallCommands(option.commands, run); err != nil {
			errorsByManager = append(errorsByManager, fmt.Sprintf("%s: %v", option.manager, err))
			continue
		}
		return nil
	}

	if !atLeastOneManager {
		return fmt.Errorf("no supported package manager found for %s", goruntime.GOOS)
	}
	return errors.New(strings.Join(errorsByManager, " | "))
}

func runInstallCommands(commands [][]string, run func([]string) error) error {
	for _, command := range commands {
		if err := run(command); err != nil {
			return err
		}
	}
	return nil
}

func runCommandWithPossibleElevation(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}

	candidates := [][]string{command}
	if goruntime.GOOS == "linux" && requiresElevation(command[0]) {
		if commandAvailable("pkexec") {
			candidates = append(candidates, append([]string{"pkexec"}, command...))
		}
		if commandAvailable("sudo") {
			candidates = append(candidates, append([]string{"sudo", "-n"}, command...))
		}
	}

	attemptErrors := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		err := runCommand(candidate[0], candidate[1:]...)
		if err == nil {
			return nil
		}
		attemptErrors = append(attemptErrors, err.Error())
	}

	return errors.New(strings.Join(attemptErrors, " | "))
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", formatCommand(name, args), installCommandTimeout)
	}

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500] + "..."
	}
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", formatCommand(name, args), err)
	}
	return fmt.Errorf("%s failed: %w (%s)", formatCommand(name, args), err, trimmed)
}

func formatCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	return strings.Join(parts, " ")
}

func requiresElevation(manager string) bool {
	switch manager {
	case "apt-get", "dnf", "pacman", "zypper":
		return true
	default:
		return false
	}
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func requireToolsOnPath(names ...string) error {
	missing := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

// downloadURLToFile streams sourceURL into a sibling temp file, then renames
// it onto destinationPath.
func downloadURLToFile(destinationPath string, sourceURL string, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "live-transcriber")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}
