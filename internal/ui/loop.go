package ui

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/jobs"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("presentation loop stopped")

// Dialogs are the native pickers. An empty path with a nil error means the
// user cancelled.
type Dialogs interface {
	OpenFile() (string, error)
	SaveFile(suggested string) (string, error)
}

type jobStarter interface {
	StartJob(req domain.JobRequest) (string, error)
}

// Loop is the presentation goroutine: it serialises user actions with relay
// drains and renders a state snapshot after every turn.
type Loop struct {
	ctrl    *Controller
	relay   *jobs.Relay
	runner  jobStarter
	dialogs Dialogs
	render  func(domain.UIState)
	actions chan func()
	done    chan struct{}
	log     zerolog.Logger
}

// NewLoop wires a loop. render may be nil.
func NewLoop(ctrl *Controller, relay *jobs.Relay, runner jobStarter, dialogs Dialogs, render func(domain.UIState), logger zerolog.Logger) *Loop {
	if render == nil {
		render = func(domain.UIState) {}
	}
	return &Loop{
		ctrl:    ctrl,
		relay:   relay,
		runner:  runner,
		dialogs: dialogs,
		render:  render,
		actions: make(chan func()),
		done:    make(chan struct{}),
		log:     logger.With().Str("component", "ui.loop").Logger(),
	}
}

// Run owns the controller until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.render(l.ctrl.State())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.relay.Ready():
			l.relay.Drain(l.ctrl.Apply)
		case fn := <-l.actions:
			fn()
		}
		l.runPendingSave()
		l.render(l.ctrl.State())
	}
}

// Do runs fn on the presentation goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(*Controller)) error {
	finished := make(chan struct{})
	action := func() {
		defer close(finished)
		fn(l.ctrl)
	}

	select {
	case l.actions <- action:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Snapshot returns the current state.
func (l *Loop) Snapshot(ctx context.Context) (domain.UIState, error) {
	var state domain.UIState
	err := l.Do(ctx, func(c *Controller) { state = c.State() })
	return state, err
}

// PickFile opens the file picker and loads the chosen file.
func (l *Loop) PickFile(ctx context.Context) error {
	var pickErr error
	err := l.Do(ctx, func(c *Controller) {
		if !c.State().SelectEnabled {
			return
		}
		path, err := l.dialogs.OpenFile()
		if err != nil {
			pickErr = err
			return
		}
		c.SelectFile(path)
	})
	if err != nil {
		return err
	}
	return pickErr
}

// Start launches a job with the current selections. It is refused while
// the controls are disabled.
func (l *Loop) Start(ctx context.Context) (string, error) {
	var (
		jobID    string
		startErr error
	)
	err := l.Do(ctx, func(c *Controller) {
		if st := c.State(); st.FilePath != "" && !st.StartEnabled {
			startErr = jobs.ErrJobAlreadyRunning
			return
		}
		jobID, startErr = l.runner.StartJob(c.Request())
	})
	if err != nil {
		return "", err
	}
	return jobID, startErr
}

// Save asks for the save picker on the next turn.
func (l *Loop) Save(ctx context.Context) (bool, error) {
	var ok bool
	err := l.Do(ctx, func(c *Controller) { ok = c.RequestSave() })
	return ok, err
}

// SelectModel changes the model size for the next job.
func (l *Loop) SelectModel(ctx context.Context, size string) error {
	var selErr error
	if err := l.Do(ctx, func(c *Controller) { selErr = c.SelectModel(size) }); err != nil {
		return err
	}
	return selErr
}

// SelectLanguage changes the language hint for the next job.
func (l *Loop) SelectLanguage(ctx context.Context, lang string) error {
	var selErr error
	if err := l.Do(ctx, func(c *Controller) { selErr = c.SelectLanguage(lang) }); err != nil {
		return err
	}
	return selErr
}

func (l *Loop) runPendingSave() {
	suggested, ok := l.ctrl.TakePendingSave()
	if !ok {
		return
	}
	path, err := l.dialogs.SaveFile(suggested)
	if err != nil {
		l.log.Error().Err(err).Msg("save dialog")
		path = ""
	}
	l.ctrl.ResolveSave(path)
}
