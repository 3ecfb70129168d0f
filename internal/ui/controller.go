// Package ui projects relayed job events onto presentation state.
package ui

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/jobs"
	"live-transcriber/internal/transcript"
)

const (
	statusReady         = "Ready"
	statusDone          = "Done! Please save your file."
	statusSaveCancelled = "Save cancelled (Backup available in folder)"
)

// ErrInputsLocked is returned when a selector changes while a job runs.
var ErrInputsLocked = errors.New("inputs are locked while a job is running")

type textWriter interface {
	WriteText(path string, content string) error
}

// completed is the transcript handed over by the last Completed event.
type completed struct {
	text   string
	source string
	backup string
	saved  bool
}

// Controller owns UIState. Every method must be called from the single
// presentation goroutine.
type Controller struct {
	state  domain.UIState
	poster jobs.Poster
	writer textWriter
	last   *completed
	spawn  func(func())
	log    zerolog.Logger
}

// NewController builds a controller with selectors initialised from settings.
func NewController(poster jobs.Poster, writer textWriter, settings domain.Settings, logger zerolog.Logger) *Controller {
	size := settings.ModelSize
	if !domain.IsModelSize(size) {
		size = domain.DefaultModelSize
	}
	lang := settings.Language
	if !domain.IsLanguage(lang) {
		lang = domain.LanguageAuto
	}

	return &Controller{
		state: domain.UIState{
			Status:         statusReady,
			Severity:       domain.SeverityInfo,
			Phase:          domain.JobPhaseIdle,
			ModelSize:      size,
			Language:       lang,
			SelectEnabled:  true,
			OptionsEnabled: true,
			Log:            []string{},
		},
		poster: poster,
		writer: writer,
		spawn:  func(fn func()) { go fn() },
		log:    logger.With().Str("component", "ui.controller").Logger(),
	}
}

// State returns a snapshot safe to hand to another goroutine.
func (c *Controller) State() domain.UIState {
	out := c.state
	out.Log = append([]string(nil), c.state.Log...)
	return out
}

// Apply projects one relayed event onto the state.
func (c *Controller) Apply(event jobs.Event) {
	switch event.Type {
	case jobs.EventTypeLog:
		c.state.Log = append(c.state.Log, event.Message)
	case jobs.EventTypeStatus:
		c.setStatus(event.Message, event.Severity)
	case jobs.EventTypePhase:
		c.state.Phase = event.Phase
	case jobs.EventTypeControls:
		c.state.SelectEnabled = event.Enabled
		c.state.OptionsEnabled = event.Enabled
		c.state.StartEnabled = event.Enabled && c.state.FilePath != ""
	case jobs.EventTypeCompleted:
		c.last = &completed{
			text:   event.Transcript,
			source: event.SourcePath,
			backup: event.BackupPath,
		}
		c.state.BackupPath = event.BackupPath
		c.state.SaveEnabled = true
		c.state.SavePending = event.Transcript != ""
		c.setStatus(statusDone, domain.SeveritySuccess)
	case jobs.EventTypeSaved:
		if event.Error != "" {
			c.setStatus("Save Error: "+event.Error, domain.SeverityError)
			return
		}
		if c.last != nil {
			c.last.saved = true
		}
		c.setStatus("Saved to: "+filepath.Base(event.Path), domain.SeveritySuccess)
	default:
		c.log.Warn().Str("type", string(event.Type)).Msg("unknown event type")
	}
}

// SelectFile loads a new input file. An empty path is a cancelled picker.
func (c *Controller) SelectFile(path string) bool {
	if path == "" || !c.state.SelectEnabled {
		return false
	}

	c.state.FilePath = path
	c.state.StartEnabled = true
	c.state.SavePending = false
	c.state.Log = []string{
		"Loaded: " + path,
		"Waiting to start...",
	}
	if c.last != nil && !c.last.saved && c.last.text != "" {
		c.state.Log = append(c.state.Log, fmt.Sprintf("Previous transcript was not saved. Backup: %s", c.last.backup))
	}
	c.log.Debug().Str("path", path).Msg("file selected")
	return true
}

// SelectModel changes the model size used by the next job.
func (c *Controller) SelectModel(size string) error {
	if !c.state.OptionsEnabled {
		return ErrInputsLocked
	}
	if !domain.IsModelSize(size) {
		return fmt.Errorf("unknown model size %q", size)
	}
	c.state.ModelSize = size
	return nil
}

// SelectLanguage changes the language hint used by the next job.
func (c *Controller) SelectLanguage(lang string) error {
	if !c.state.OptionsEnabled {
		return ErrInputsLocked
	}
	if !domain.IsLanguage(lang) {
		return fmt.Errorf("unknown language %q", lang)
	}
	c.state.Language = lang
	return nil
}

// Request builds the job request from the current selections.
func (c *Controller) Request() domain.JobRequest {
	return domain.JobRequest{
		FilePath:  c.state.FilePath,
		ModelSize: c.state.ModelSize,
		Language:  c.state.Language,
	}
}

// RequestSave marks a save as pending when a non-empty transcript exists.
func (c *Controller) RequestSave() bool {
	if c.last == nil || c.last.text == "" {
		return false
	}
	c.state.SavePending = true
	return true
}

// TakePendingSave clears the pending flag and returns the suggested file name
// for the save picker.
func (c *Controller) TakePendingSave() (string, bool) {
	if !c.state.SavePending || c.last == nil {
		return "", false
	}
	c.state.SavePending = false
	return transcript.SuggestedName(c.last.source), true
}

// ResolveSave applies the save picker's outcome. An empty path means the
// user cancelled; otherwise the write runs off the presentation goroutine
// and its result comes back as a saved event.
func (c *Controller) ResolveSave(path string) {
	if path == "" {
		c.setStatus(statusSaveCancelled, domain.SeverityMuted)
		return
	}
	if c.last == nil {
		return
	}

	text := c.last.text
	c.spawn(func() {
		event := jobs.Event{Type: jobs.EventTypeSaved, Path: path}
		if err := c.writer.WriteText(path, text); err != nil {
			c.log.Error().Err(err).Str("path", path).Msg("save transcript")
			event.Error = err.Error()
		}
		c.poster.Post(event)
	})
}

func (c *Controller) setStatus(msg string, severity domain.Severity) {
	c.state.Status = msg
	c.state.Severity = severity
}
