// Package tui is a terminal surface over the presentation controller.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/jobs"
	"live-transcriber/internal/ui"
)

type promptMode int

const (
	promptNone promptMode = iota
	promptOpen
	promptSave
)

const defaultLogHeight = 15

// relayActivityMsg reports that relayed events are waiting to be drained.
type relayActivityMsg struct{}

type jobStarter interface {
	StartJob(req domain.JobRequest) (string, error)
}

// Model is the Bubble Tea model. The Bubble Tea update goroutine is the
// presentation goroutine: it alone touches the controller.
type Model struct {
	ctrl    *ui.Controller
	relay   *jobs.Relay
	runner  jobStarter
	spinner spinner.Model
	input   textinput.Model
	prompt  promptMode
	notice  string
	width   int
	height  int
}

// New builds the terminal model.
func New(ctrl *ui.Controller, relay *jobs.Relay, runner jobStarter) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = severityStyle(domain.SeverityProgress)

	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Width = 60

	return Model{
		ctrl:    ctrl,
		relay:   relay,
		runner:  runner,
		spinner: sp,
		input:   ti,
		height:  defaultLogHeight + 10,
	}
}

// Init starts the spinner and the relay watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForActivity(m.relay))
}

// waitForActivity blocks until the relay has events for the next drain.
func waitForActivity(relay *jobs.Relay) tea.Cmd {
	return func() tea.Msg {
		<-relay.Ready()
		return relayActivityMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(20, msg.Width-20)
		return m, nil

	case relayActivityMsg:
		m.relay.Drain(m.ctrl.Apply)
		cmds := []tea.Cmd{waitForActivity(m.relay)}
		if m.prompt == promptNone {
			cmds = append(cmds, m.openSavePromptIfPending())
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.prompt != promptNone {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.ctrl.State()
	m.notice = ""

	switch msg.String() {
	case "q":
		if state.SelectEnabled {
			return m, tea.Quit
		}
		m.notice = "A job is running; press ctrl+c to abandon it."
	case "o":
		if state.SelectEnabled {
			cmd := m.openPrompt(promptOpen, state.FilePath)
			return m, cmd
		}
	case "enter", "s":
		if !state.StartEnabled {
			return m, nil
		}
		if _, err := m.runner.StartJob(m.ctrl.Request()); err != nil {
			m.notice = err.Error()
		}
	case "m":
		if err := m.ctrl.SelectModel(next(domain.ModelSizes, state.ModelSize)); err != nil {
			m.notice = err.Error()
		}
	case "l":
		if err := m.ctrl.SelectLanguage(next(domain.Languages, state.Language)); err != nil {
			m.notice = err.Error()
		}
	case "w":
		if !m.ctrl.RequestSave() {
			m.notice = "Nothing to save yet."
			return m, nil
		}
		cmd := m.openSavePromptIfPending()
		return m, cmd
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		m.closePrompt(value)
		return m, nil
	case tea.KeyEsc:
		m.closePrompt("")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// openSavePromptIfPending stands in for the native save dialog.
func (m *Model) openSavePromptIfPending() tea.Cmd {
	suggested, ok := m.ctrl.TakePendingSave()
	if !ok {
		return nil
	}
	return m.openPrompt(promptSave, suggested)
}

func (m *Model) openPrompt(mode promptMode, value string) tea.Cmd {
	m.prompt = mode
	m.input.SetValue(value)
	m.input.CursorEnd()
	if mode == promptSave {
		m.input.Prompt = "Save as: "
	} else {
		m.input.Prompt = "Media file: "
	}
	return m.input.Focus()
}

// closePrompt resolves the active prompt. An empty value is a cancellation.
func (m *Model) closePrompt(value string) {
	mode := m.prompt
	m.prompt = promptNone
	m.input.Blur()

	switch mode {
	case promptOpen:
		m.ctrl.SelectFile(value)
	case promptSave:
		if value != "" && filepath.Ext(value) == "" {
			value += ".txt"
		}
		m.ctrl.ResolveSave(value)
	}
}

// View renders the surface.
func (m Model) View() string {
	state := m.ctrl.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Live Transcriber"))
	b.WriteString("\n\n")

	file := state.FilePath
	if file == "" {
		file = "No file selected"
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("File:"), valueStyle.Render(file))
	fmt.Fprintf(&b, "%s %s   %s %s\n",
		labelStyle.Render("Model:"), valueStyle.Render(state.ModelSize),
		labelStyle.Render("Language:"), valueStyle.Render(state.Language))

	status := severityStyle(state.Severity).Render(state.Status)
	if state.Phase == domain.JobPhaseLoading || state.Phase == domain.JobPhaseStreaming {
		status = m.spinner.View() + " " + status
	}
	b.WriteString("\n" + status + "\n")
	if m.notice != "" {
		b.WriteString(helpStyle.Render(m.notice) + "\n")
	}

	b.WriteString(logStyle.Render(tail(state.Log, m.logHeight())))
	b.WriteString("\n")

	if m.prompt != promptNone {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter: confirm • esc: cancel"))
		return b.String()
	}

	b.WriteString(m.help(state))
	return b.String()
}

func (m Model) help(state domain.UIState) string {
	keys := []struct {
		key     string
		label   string
		enabled bool
	}{
		{"o", "open", state.SelectEnabled},
		{"enter", "start", state.StartEnabled},
		{"m", "model", state.OptionsEnabled},
		{"l", "language", state.OptionsEnabled},
		{"w", "save", state.SaveEnabled},
		{"q", "quit", state.SelectEnabled},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		text := k.key + ": " + k.label
		if !k.enabled {
			parts = append(parts, disabledStyle.Render(text))
			continue
		}
		parts = append(parts, helpStyle.Render(text))
	}
	return strings.Join(parts, helpStyle.Render(" • "))
}

func (m Model) logHeight() int {
	h := m.height - 12
	if h < 5 {
		return 5
	}
	return h
}

// tail returns the last n rendered lines of the log.
func tail(log []string, n int) string {
	var lines []string
	for _, entry := range log {
		lines = append(lines, strings.Split(entry, "\n")...)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// next returns the option after current, wrapping around.
func next(options []string, current string) string {
	for i, opt := range options {
		if opt == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}
