package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"live-transcriber/internal/config"
	"live-transcriber/internal/diagnostics"
	"live-transcriber/internal/domain"
	"live-transcriber/internal/engine"
	"live-transcriber/internal/jobs"
	"live-transcriber/internal/transcript"
	"live-transcriber/internal/ui"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// StateEvent is the runtime event carrying every rendered UI state.
const StateEvent = "ui:state"

// actionTimeout bounds how long a bound method waits to reach the loop.
const actionTimeout = 10 * time.Second

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Media Files",
		Pattern:     "*.mp4;*.mp3;*.wav;*.m4a;*.mkv;*.flac",
	},
	{
		DisplayName: "All Files",
		Pattern:     "*",
	},
}

var transcriptDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Text File",
		Pattern:     "*.txt",
	},
}

// App wires settings, the job runner and the presentation loop to the Wails
// runtime.
type App struct {
	Store     config.Store
	runtime   config.Runtime
	checker   *diagnostics.Checker
	relay     *jobs.Relay
	runner    *jobs.Runner
	loop      *ui.Loop
	assets    fs.FS
	openerFor func(modelDir string) engine.Opener
	log       zerolog.Logger

	mu          sync.Mutex
	settings    domain.Settings
	diagnostics domain.DiagnosticReport
	runtimeCtx  context.Context
	stopLoop    context.CancelFunc
}

// deps are the collaborators New replaces with real implementations.
type deps struct {
	store     config.Store
	runtime   config.Runtime
	checker   *diagnostics.Checker
	openerFor func(modelDir string) engine.Opener
	dialogs   ui.Dialogs
}

// New builds the application with persisted settings and startup diagnostics.
func New(logger zerolog.Logger) (*App, error) {
	return NewWithAssets(nil, logger)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS, logger zerolog.Logger) (*App, error) {
	rt := config.LoadRuntime()
	app, err := newApp(deps{
		store:   config.NewJSONStore(rt.SettingsPath),
		runtime: rt,
		checker: diagnostics.NewChecker(),
		openerFor: func(modelDir string) engine.Opener {
			return engine.NewWhisperOpener(modelDir, logger)
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	app.assets = assets
	return app, nil
}

func newApp(d deps, logger zerolog.Logger) (*App, error) {
	settings, err := d.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = d.runtime.Apply(settings)

	a := &App{
		Store:     d.store,
		runtime:   d.runtime,
		checker:   d.checker,
		openerFor: d.openerFor,
		settings:  settings,
		log:       logger.With().Str("component", "bootstrap").Logger(),
	}
	if a.checker != nil {
		a.diagnostics = a.checker.Run(settings, d.runtime.BackupDir)
	}

	writer := transcript.NewWriter(logger)
	a.relay = jobs.NewRelay(jobs.NewEventBus(d.runtime.EventHistory))
	loader := engine.NewLoader(modelOpener{app: a}, logger)
	a.runner = jobs.NewRunner(jobs.NewManager(), loader, writer, a.relay, d.runtime.BackupDir, logger)

	dialogs := d.dialogs
	if dialogs == nil {
		dialogs = wailsDialogs{app: a}
	}
	ctrl := ui.NewController(a.relay, writer, settings, logger)
	a.loop = ui.NewLoop(ctrl, a.relay, a.runner, dialogs, a.emitState, logger)
	return a, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Live Transcriber",
		Width:       1000,
		Height:      800,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the Wails runtime context and starts the presentation loop.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	for _, line := range diagnostics.Summary(a.GetDiagnostics()) {
		a.log.Warn().Msg(line)
	}
	a.startLoop()
}

// Shutdown stops the presentation loop. A running job is abandoned with the
// process.
func (a *App) Shutdown(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = nil
	if a.stopLoop != nil {
		a.stopLoop()
		a.stopLoop = nil
	}
}

func (a *App) startLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.stopLoop = cancel
	a.mu.Unlock()

	go func() {
		if err := a.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error().Err(err).Msg("presentation loop stopped")
		}
	}()
}

// GetState returns the current UI state.
func (a *App) GetState() (domain.UIState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return a.loop.Snapshot(ctx)
}

// PickInputFile opens the native media picker and loads the chosen file.
func (a *App) PickInputFile() error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return a.loop.PickFile(ctx)
}

// StartTranscription starts a job for the loaded file.
func (a *App) StartTranscription() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return a.loop.Start(ctx)
}

// SaveTranscript opens the save picker for the last completed transcript.
func (a *App) SaveTranscript() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	return a.loop.Save(ctx)
}

// SelectModel changes the model size and remembers it.
func (a *App) SelectModel(size string) error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := a.loop.SelectModel(ctx, size); err != nil {
		return err
	}
	return a.persist(func(s *domain.Settings) { s.ModelSize = size })
}

// SelectLanguage changes the language hint and remembers it.
func (a *App) SelectLanguage(lang string) error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := a.loop.SelectLanguage(ctx, lang); err != nil {
		return err
	}
	return a.persist(func(s *domain.Settings) { s.Language = lang })
}

// CurrentJob returns current job metadata and phase.
func (a *App) CurrentJob() domain.Job {
	return a.runner.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.relay.History(sinceSeq)
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.diagnostics
}

// RefreshDiagnostics reruns dependency checks against current settings.
func (a *App) RefreshDiagnostics() domain.DiagnosticReport {
	return a.refreshDiagnostics(a.currentSettings())
}

// GetSettings returns the settings in effect.
func (a *App) GetSettings() domain.Settings {
	return a.currentSettings()
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
// Selector changes also reach the presentation state.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	normalized = a.runtime.Apply(normalized)
	a.refreshDiagnostics(normalized)

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := a.loop.SelectModel(ctx, normalized.ModelSize); err != nil {
		a.log.Warn().Err(err).Msg("apply model size")
	}
	if err := a.loop.SelectLanguage(ctx, normalized.Language); err != nil {
		a.log.Warn().Err(err).Msg("apply language")
	}
	return normalized, nil
}

// OpenBackupFolder opens the auto-save directory in the file manager.
func (a *App) OpenBackupFolder() error {
	target, err := filepath.Abs(a.runtime.BackupDir)
	if err != nil {
		return fmt.Errorf("resolve backup dir: %w", err)
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("resolve backup dir: %w", err)
	}
	return openInFileManager(target)
}

func (a *App) persist(update func(*domain.Settings)) error {
	a.mu.Lock()
	settings := a.settings
	update(&settings)
	a.settings = settings
	a.mu.Unlock()

	if err := a.Store.Save(settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (a *App) refreshDiagnostics(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = settings
	if a.checker != nil {
		a.diagnostics = a.checker.Run(settings, a.runtime.BackupDir)
	}
	return a.diagnostics
}

func (a *App) currentSettings() domain.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// emitState pushes a rendered state to the frontend.
func (a *App) emitState(state domain.UIState) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, StateEvent, state)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// modelOpener resolves model files against the model directory in effect
// when each job loads.
type modelOpener struct {
	app *App
}

func (o modelOpener) Open(ctx context.Context, modelSize string, tier domain.PrecisionTier) (engine.Engine, error) {
	return o.app.openerFor(o.app.currentSettings().ModelDir).Open(ctx, modelSize, tier)
}

// wailsDialogs implements the pickers with native Wails dialogs.
type wailsDialogs struct {
	app *App
}

func (d wailsDialogs) OpenFile() (string, error) {
	ctx, err := d.app.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media file",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

func (d wailsDialogs) SaveFile(suggested string) (string, error) {
	ctx, err := d.app.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.SaveFileDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           "Save Transcription",
		DefaultFilename: suggested,
		Filters:         transcriptDialogFilter,
	})
	if err != nil {
		return "", err
	}
	return withTextExtension(strings.TrimSpace(path)), nil
}

// withTextExtension appends .txt when the chosen name has no extension.
func withTextExtension(path string) string {
	if path == "" || filepath.Ext(path) != "" {
		return path
	}
	return path + ".txt"
}

// normalizeSettings trims user inputs and applies defaults when empty.
func normalizeSettings(settings domain.Settings) domain.Settings {
	def := config.DefaultSettings()
	settings.ModelDir = strings.TrimSpace(settings.ModelDir)
	settings.ModelSize = strings.TrimSpace(settings.ModelSize)
	settings.Language = strings.TrimSpace(settings.Language)
	if settings.ModelDir == "" {
		settings.ModelDir = def.ModelDir
	}
	if settings.ModelSize == "" {
		settings.ModelSize = def.ModelSize
	}
	if settings.Language == "" {
		settings.Language = def.Language
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
