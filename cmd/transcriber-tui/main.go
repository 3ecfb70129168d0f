package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"live-transcriber/internal/config"
	"live-transcriber/internal/diagnostics"
	"live-transcriber/internal/engine"
	"live-transcriber/internal/jobs"
	"live-transcriber/internal/transcript"
	"live-transcriber/internal/tui"
	"live-transcriber/internal/ui"
)

func main() {
	file := flag.String("file", "", "media file to preselect")
	logPath := flag.String("log", filepath.Join(os.TempDir(), "live-transcriber-tui.log"), "log file")
	flag.Parse()

	if err := run(*file, *logPath); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(file, logPath string) error {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	rt := config.LoadRuntime()
	logger := config.NewLogger(logFile, rt.LogLevel).With().Str("component", "tui").Logger()

	settings, err := config.NewJSONStore(rt.SettingsPath).Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings = rt.Apply(settings)

	for _, line := range diagnostics.Summary(diagnostics.NewChecker().Run(settings, rt.BackupDir)) {
		fmt.Fprintln(os.Stderr, line)
	}

	relay := jobs.NewRelay(jobs.NewEventBus(rt.EventHistory))
	writer := transcript.NewWriter(logger)
	loader := engine.NewLoader(engine.NewWhisperOpener(settings.ModelDir, logger), logger)
	runner := jobs.NewRunner(jobs.NewManager(), loader, writer, relay, rt.BackupDir, logger)
	ctrl := ui.NewController(relay, writer, settings, logger)
	if file != "" {
		ctrl.SelectFile(file)
	}

	if _, err := tea.NewProgram(tui.New(ctrl, relay, runner), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
