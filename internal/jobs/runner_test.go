package jobs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/engine"
	"live-transcriber/internal/transcript"
)

type fakeLoader struct {
	mu       sync.Mutex
	engine   engine.Engine
	err      error
	warnings []string
	gate     chan struct{}
	sizes    []string
}

func (f *fakeLoader) Load(_ context.Context, size string, warn func(string)) (engine.Engine, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.sizes = append(f.sizes, size)
	f.mu.Unlock()
	for _, w := range f.warnings {
		warn(w)
	}
	return f.engine, f.err
}

type fakeEngine struct {
	language    string
	segments    []domain.Segment
	streamErrAt int
	streamErr   error
	openErr     error
	panicMsg    string
	gotOpts     engine.TranscribeOptions
	gotPath     string
	closed      bool
}

func (f *fakeEngine) Transcribe(_ context.Context, path string, opts engine.TranscribeOptions) (string, engine.SegmentStream, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.gotPath = path
	f.gotOpts = opts
	if f.openErr != nil {
		return "", nil, f.openErr
	}
	lang := opts.Language
	if lang == "" {
		lang = f.language
	}
	return lang, &sliceStream{segments: f.segments, errAt: f.streamErrAt, err: f.streamErr}, nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

type sliceStream struct {
	segments []domain.Segment
	pos      int
	errAt    int
	err      error
}

func (s *sliceStream) Next() (domain.Segment, error) {
	if s.err != nil && s.pos == s.errAt {
		return domain.Segment{}, s.err
	}
	if s.pos >= len(s.segments) {
		return domain.Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}

func (s *sliceStream) Close() error { return nil }

type testRunner struct {
	*Runner
	relay *Relay
	dir   string
}

func newTestRunner(t *testing.T, loader modelLoader, writer backupWriter) testRunner {
	t.Helper()
	dir := t.TempDir()
	relay := NewRelay(NewEventBus(1000))
	if writer == nil {
		writer = transcript.NewWriter(zerolog.Nop())
	}
	r := NewRunner(NewManager(), loader, writer, relay, dir, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	r.newID = func() string { return "job-test" }
	return testRunner{Runner: r, relay: relay, dir: dir}
}

func (tr testRunner) runToEnd(t *testing.T, req domain.JobRequest) []Event {
	t.Helper()
	if _, err := tr.StartJob(req); err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	tr.Wait()
	var events []Event
	tr.relay.Drain(func(e Event) { events = append(events, e) })
	return events
}

func logLines(events []Event) []string {
	var out []string
	for _, e := range events {
		if e.Type == EventTypeLog {
			out = append(out, e.Message)
		}
	}
	return out
}

func findEvent(events []Event, typ EventType) (Event, bool) {
	for _, e := range events {
		if e.Type == typ {
			return e, true
		}
	}
	return Event{}, false
}

func indexOf(lines []string, target string) int {
	for i, l := range lines {
		if l == target {
			return i
		}
	}
	return -1
}

func segs(texts ...string) []domain.Segment {
	out := make([]domain.Segment, 0, len(texts))
	for i, text := range texts {
		out = append(out, domain.Segment{
			Start: time.Duration(i) * 2 * time.Second,
			End:   time.Duration(i+1) * 2 * time.Second,
			Text:  text,
		})
	}
	return out
}

var autosavePattern = regexp.MustCompile(`^AUTOSAVE_\d{8}_\d{6}\.txt$`)

// TestRunnerCompletesAndWritesBackup covers the happy path from start to backup.
func TestRunnerCompletesAndWritesBackup(t *testing.T) {
	eng := &fakeEngine{language: "en", segments: segs("hello", "world", "again")}
	tr := newTestRunner(t, &fakeLoader{engine: eng}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "/media/talk.mp3", ModelSize: "small", Language: domain.LanguageAuto})

	done, ok := findEvent(events, EventTypeCompleted)
	if !ok {
		t.Fatalf("no completed event in %+v", events)
	}
	wantText := "[00:00.00] hello\n[00:02.00] world\n[00:04.00] again"
	if done.Transcript != wantText {
		t.Fatalf("transcript = %q, want %q", done.Transcript, wantText)
	}
	if done.SourcePath != "/media/talk.mp3" {
		t.Fatalf("source = %q", done.SourcePath)
	}
	if !autosavePattern.MatchString(filepath.Base(done.BackupPath)) {
		t.Fatalf("backup name = %q", done.BackupPath)
	}
	if filepath.Dir(done.BackupPath) != tr.dir {
		t.Fatalf("backup dir = %q, want %q", filepath.Dir(done.BackupPath), tr.dir)
	}
	data, err := os.ReadFile(done.BackupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != wantText {
		t.Fatalf("backup content = %q", data)
	}

	if !eng.closed {
		t.Fatal("engine was not closed")
	}
	if eng.gotOpts.BeamSize != engine.DefaultBeamSize || eng.gotOpts.Language != "" {
		t.Fatalf("options = %+v", eng.gotOpts)
	}
	if tr.Current().Phase != domain.JobPhaseIdle {
		t.Fatalf("manager phase = %s, want idle", tr.Current().Phase)
	}
}

// TestRunnerEventOrder checks the relayed sequence around streaming.
func TestRunnerEventOrder(t *testing.T) {
	eng := &fakeEngine{language: "en", segments: segs("one", "two")}
	tr := newTestRunner(t, &fakeLoader{engine: eng}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "base", Language: domain.LanguageAuto})

	if events[0].Type != EventTypeControls || events[0].Enabled {
		t.Fatalf("first event = %+v, want controls disabled", events[0])
	}
	last := events[len(events)-1]
	if last.Type != EventTypeControls || !last.Enabled {
		t.Fatalf("last event = %+v, want controls enabled", last)
	}

	var phases []domain.JobPhase
	var statuses []string
	for _, e := range events {
		switch e.Type {
		case EventTypePhase:
			phases = append(phases, e.Phase)
		case EventTypeStatus:
			statuses = append(statuses, e.Message)
		}
		if e.JobID != "job-test" {
			t.Fatalf("event without job id: %+v", e)
		}
	}
	wantPhases := []domain.JobPhase{
		domain.JobPhaseLoading, domain.JobPhaseStreaming,
		domain.JobPhaseFinalizing, domain.JobPhaseCompleted,
	}
	if len(phases) != len(wantPhases) {
		t.Fatalf("phases = %v", phases)
	}
	for i := range wantPhases {
		if phases[i] != wantPhases[i] {
			t.Fatalf("phases = %v, want %v", phases, wantPhases)
		}
	}
	if len(statuses) != 2 || statuses[0] != "Initializing GPU..." || statuses[1] != "Transcribing... (Please wait)" {
		t.Fatalf("statuses = %v", statuses)
	}

	lines := logLines(events)
	detected := indexOf(lines, "Detected Language: EN")
	first := indexOf(lines, "[00:00.00] one")
	second := indexOf(lines, "[00:02.00] two")
	if detected < 0 || first < 0 || second < 0 {
		t.Fatalf("missing log lines: %q", lines)
	}
	if !(detected < first && first < second) {
		t.Fatalf("log order wrong: %q", lines)
	}
	if !strings.Contains(lines[len(lines)-1], "COMPLETED") {
		t.Fatalf("last log line = %q", lines[len(lines)-1])
	}
}

// TestRunnerExplicitLanguageSkipsDetection passes the hint and logs no detection.
func TestRunnerExplicitLanguageSkipsDetection(t *testing.T) {
	eng := &fakeEngine{language: "en", segments: segs("hola")}
	tr := newTestRunner(t, &fakeLoader{engine: eng}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "base", Language: "es"})

	if eng.gotOpts.Language != "es" {
		t.Fatalf("language hint = %q, want es", eng.gotOpts.Language)
	}
	for _, line := range logLines(events) {
		if strings.HasPrefix(line, "Detected Language") {
			t.Fatalf("unexpected detection line %q", line)
		}
	}
}

// TestRunnerZeroSegmentsWritesEmptyBackup completes with an empty transcript.
func TestRunnerZeroSegmentsWritesEmptyBackup(t *testing.T) {
	tr := newTestRunner(t, &fakeLoader{engine: &fakeEngine{language: "de"}}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "silence.wav", ModelSize: "tiny"})

	done, ok := findEvent(events, EventTypeCompleted)
	if !ok {
		t.Fatal("expected completion")
	}
	data, err := os.ReadFile(done.BackupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("backup = %q, want empty", data)
	}
}

// TestRunnerRelaysLoaderWarnings forwards fallback warnings into the log.
func TestRunnerRelaysLoaderWarnings(t *testing.T) {
	loader := &fakeLoader{
		engine:   &fakeEngine{language: "en"},
		warnings: []string{"VRAM Warning: out of memory\nFallback to int8_float16..."},
	}
	tr := newTestRunner(t, loader, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "large-v3"})

	if indexOf(logLines(events), loader.warnings[0]) < 0 {
		t.Fatalf("warning not relayed: %q", logLines(events))
	}
	if len(loader.sizes) != 1 || loader.sizes[0] != "large-v3" {
		t.Fatalf("loaded sizes = %v", loader.sizes)
	}
}

// TestRunnerLoadFailure fails the job and re-enables controls.
func TestRunnerLoadFailure(t *testing.T) {
	loadErr := domain.NewModelLoadError(errors.New("no model file"))
	tr := newTestRunner(t, &fakeLoader{err: loadErr}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "small"})

	if _, ok := findEvent(events, EventTypeCompleted); ok {
		t.Fatal("failed job must not complete")
	}
	assertFailed(t, events, "no model file")

	entries, err := os.ReadDir(tr.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("unexpected backup files: %v", entries)
	}
}

// TestRunnerInferenceFailureMidStream keeps lines already relayed but fails.
func TestRunnerInferenceFailureMidStream(t *testing.T) {
	eng := &fakeEngine{
		language:    "en",
		segments:    segs("first", "second"),
		streamErrAt: 1,
		streamErr:   errors.New("decoder crashed"),
	}
	tr := newTestRunner(t, &fakeLoader{engine: eng}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "small"})

	if indexOf(logLines(events), "[00:00.00] first") < 0 {
		t.Fatalf("first line missing: %q", logLines(events))
	}
	if _, ok := findEvent(events, EventTypeCompleted); ok {
		t.Fatal("failed job must not complete")
	}
	assertFailed(t, events, "decoder crashed")
	if !eng.closed {
		t.Fatal("engine was not closed after failure")
	}
}

// TestRunnerTranscribeOpenFailure wraps engine start errors as inference errors.
func TestRunnerTranscribeOpenFailure(t *testing.T) {
	eng := &fakeEngine{openErr: errors.New("ffmpeg failed")}
	tr := newTestRunner(t, &fakeLoader{engine: eng}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "small"})
	assertFailed(t, events, "ffmpeg failed")
}

// TestRunnerBackupFailureFailsJob never reports completion without a backup.
func TestRunnerBackupFailureFailsJob(t *testing.T) {
	writer := transcript.NewWriterForTests(func(string, []byte, os.FileMode) error {
		return errors.New("disk full")
	})
	eng := &fakeEngine{language: "en", segments: segs("x")}
	tr := newTestRunner(t, &fakeLoader{engine: eng}, writer)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "small"})

	if _, ok := findEvent(events, EventTypeCompleted); ok {
		t.Fatal("job completed without backup")
	}
	phase := assertFailed(t, events, "disk full")
	if !strings.Contains(phase.Error, "AUTOSAVE_") {
		t.Fatalf("error should name the backup path: %q", phase.Error)
	}
}

// TestRunnerRecoversPanic turns a worker panic into a failed job.
func TestRunnerRecoversPanic(t *testing.T) {
	eng := &fakeEngine{panicMsg: "boom"}
	tr := newTestRunner(t, &fakeLoader{engine: eng}, nil)

	events := tr.runToEnd(t, domain.JobRequest{FilePath: "a.wav", ModelSize: "small"})
	assertFailed(t, events, "boom")
	if tr.Current().Phase != domain.JobPhaseIdle {
		t.Fatalf("manager phase = %s", tr.Current().Phase)
	}
}

// TestRunnerRejectsEmptyPath leaves state untouched without a file.
func TestRunnerRejectsEmptyPath(t *testing.T) {
	loader := &fakeLoader{engine: &fakeEngine{}}
	tr := newTestRunner(t, loader, nil)

	if _, err := tr.StartJob(domain.JobRequest{FilePath: "  ", ModelSize: "small"}); !errors.Is(err, ErrEmptyFilePath) {
		t.Fatalf("err = %v, want ErrEmptyFilePath", err)
	}
	tr.Wait()
	if tr.relay.Pending() != 0 {
		t.Fatalf("pending events = %d, want 0", tr.relay.Pending())
	}
	if len(loader.sizes) != 0 {
		t.Fatal("loader called for empty path")
	}
}

// TestRunnerRejectsSecondJobWhileLoading keeps at most one job in flight.
func TestRunnerRejectsSecondJobWhileLoading(t *testing.T) {
	loader := &fakeLoader{engine: &fakeEngine{language: "en"}, gate: make(chan struct{})}
	tr := newTestRunner(t, loader, nil)

	req := domain.JobRequest{FilePath: "a.wav", ModelSize: "small"}
	if _, err := tr.StartJob(req); err != nil {
		t.Fatalf("first start: %v", err)
	}
	pending := tr.relay.Pending()
	if _, err := tr.StartJob(req); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("second start err = %v", err)
	}
	if tr.relay.Pending() != pending {
		t.Fatal("rejected start posted events")
	}

	close(loader.gate)
	tr.Wait()
	if len(loader.sizes) != 1 {
		t.Fatalf("loader calls = %d, want 1", len(loader.sizes))
	}

	if _, err := tr.StartJob(req); err != nil {
		t.Fatalf("start after completion: %v", err)
	}
	tr.Wait()
}

func assertFailed(t *testing.T, events []Event, wantMsg string) Event {
	t.Helper()
	var phase Event
	var found bool
	for _, e := range events {
		if e.Type == EventTypePhase && e.Phase == domain.JobPhaseFailed {
			phase, found = e, true
		}
	}
	if !found {
		t.Fatalf("no failed phase in %+v", events)
	}
	if !strings.Contains(phase.Error, wantMsg) {
		t.Fatalf("error = %q, want to contain %q", phase.Error, wantMsg)
	}

	lines := logLines(events)
	var critical bool
	for _, l := range lines {
		if strings.HasPrefix(l, "CRITICAL ERROR: ") && strings.Contains(l, wantMsg) {
			critical = true
		}
	}
	if !critical {
		t.Fatalf("no critical log line in %q", lines)
	}

	var status Event
	for _, e := range events {
		if e.Type == EventTypeStatus {
			status = e
		}
	}
	if !strings.HasPrefix(status.Message, "Error: ") || status.Severity != domain.SeverityError {
		t.Fatalf("final status = %+v", status)
	}

	last := events[len(events)-1]
	if last.Type != EventTypeControls || !last.Enabled {
		t.Fatalf("last event = %+v, want controls enabled", last)
	}
	return phase
}

type blockingEngine struct {
	stream *blockingStream
}

func (e *blockingEngine) Transcribe(context.Context, string, engine.TranscribeOptions) (string, engine.SegmentStream, error) {
	return "en", e.stream, nil
}

func (e *blockingEngine) Close() error { return nil }

// blockingStream yields one segment, then parks the worker in Next until
// release is closed.
type blockingStream struct {
	calls   int
	parked  chan struct{}
	release chan struct{}
}

func (s *blockingStream) Next() (domain.Segment, error) {
	s.calls++
	if s.calls == 1 {
		return domain.Segment{Text: "first"}, nil
	}
	if s.calls == 2 {
		close(s.parked)
		<-s.release
	}
	return domain.Segment{}, io.EOF
}

func (s *blockingStream) Close() error { return nil }

// TestRunnerRejectsSecondJobWhileStreaming keeps the slot held mid-stream and
// posts nothing for the refused request.
func TestRunnerRejectsSecondJobWhileStreaming(t *testing.T) {
	stream := &blockingStream{parked: make(chan struct{}), release: make(chan struct{})}
	loader := &fakeLoader{engine: &blockingEngine{stream: stream}}
	tr := newTestRunner(t, loader, nil)

	req := domain.JobRequest{FilePath: "a.wav", ModelSize: "small"}
	if _, err := tr.StartJob(req); err != nil {
		t.Fatalf("first start: %v", err)
	}
	<-stream.parked

	if phase := tr.Current().Phase; phase != domain.JobPhaseStreaming {
		t.Fatalf("phase = %s, want streaming", phase)
	}
	pending := tr.relay.Pending()
	if _, err := tr.StartJob(domain.JobRequest{FilePath: "b.wav", ModelSize: "tiny"}); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("second start err = %v, want ErrJobAlreadyRunning", err)
	}
	if got := tr.relay.Pending(); got != pending {
		t.Fatalf("pending = %d, want %d", got, pending)
	}
	if got := tr.Current().Request.FilePath; got != "a.wav" {
		t.Fatalf("current file = %q", got)
	}

	close(stream.release)
	tr.Wait()
	var events []Event
	tr.relay.Drain(func(e Event) { events = append(events, e) })
	if _, ok := findEvent(events, EventTypeCompleted); !ok {
		t.Fatal("first job did not complete")
	}
	if len(loader.sizes) != 1 {
		t.Fatalf("loader calls = %d, want 1", len(loader.sizes))
	}
}

// slotCheckingPoster records whether the worker slot was still held when the
// controls were re-enabled.
type slotCheckingPoster struct {
	next    Poster
	manager *Manager
	mu      sync.Mutex
	held    []bool
}

func (p *slotCheckingPoster) Post(e Event) {
	if e.Type == EventTypeControls && e.Enabled {
		p.mu.Lock()
		p.held = append(p.held, p.manager.IsRunning())
		p.mu.Unlock()
	}
	p.next.Post(e)
}

// TestRunnerReenablesControlsBeforeReleasingSlot guarantees that a job
// started right after cleanup posts its events behind the re-enable.
func TestRunnerReenablesControlsBeforeReleasingSlot(t *testing.T) {
	for _, loader := range []*fakeLoader{
		{engine: &fakeEngine{language: "en", segments: segs("a")}},
		{err: domain.NewModelLoadError(errors.New("no model"))},
	} {
		manager := NewManager()
		relay := NewRelay(NewEventBus(100))
		poster := &slotCheckingPoster{next: relay, manager: manager}
		r := NewRunner(manager, loader, transcript.NewWriter(zerolog.Nop()), poster, t.TempDir(), zerolog.Nop())

		if _, err := r.StartJob(domain.JobRequest{FilePath: "a.wav", ModelSize: "small"}); err != nil {
			t.Fatalf("StartJob: %v", err)
		}
		r.Wait()

		if len(poster.held) != 1 || !poster.held[0] {
			t.Fatalf("slot held at re-enable = %v, want [true]", poster.held)
		}
		if manager.IsRunning() {
			t.Fatal("slot not released after cleanup")
		}
	}
}
