package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"live-transcriber/internal/domain"
	"live-transcriber/internal/engine"
	"live-transcriber/internal/transcript"
)

const bannerRule = "========================================"

// modelLoader resolves a model size into a ready engine.
type modelLoader interface {
	Load(ctx context.Context, modelSize string, warn func(msg string)) (engine.Engine, error)
}

// backupWriter performs the durable auto-backup write.
type backupWriter interface {
	WriteBackup(dir string, now time.Time, content string) (string, error)
}

// Runner owns the lifecycle of one transcription job at a time. Every
// visible effect is posted through the relay.
type Runner struct {
	jobs      *Manager
	loader    modelLoader
	writer    backupWriter
	relay     Poster
	backupDir string
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewRunner wires a runner writing backups into backupDir.
func NewRunner(jobs *Manager, loader modelLoader, writer backupWriter, relay Poster, backupDir string, logger zerolog.Logger) *Runner {
	if backupDir == "" {
		backupDir = "."
	}
	return &Runner{
		jobs:      jobs,
		loader:    loader,
		writer:    writer,
		relay:     relay,
		backupDir: backupDir,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       logger.With().Str("component", "jobs.runner").Logger(),
	}
}

// StartJob starts req on a fresh worker goroutine and returns immediately.
// It changes nothing when the file path is empty or a job is active.
func (r *Runner) StartJob(req domain.JobRequest) (string, error) {
	if strings.TrimSpace(req.FilePath) == "" {
		return "", ErrEmptyFilePath
	}

	jobID := r.newID()
	if err := r.jobs.Start(jobID, req); err != nil {
		return "", err
	}

	r.log.Info().
		Str("job_id", jobID).
		Str("file", req.FilePath).
		Str("model", req.ModelSize).
		Str("language", req.Language).
		Msg("job started")

	r.post(jobID, Event{Type: EventTypeControls, Enabled: false})
	r.post(jobID, Event{Type: EventTypePhase, Phase: domain.JobPhaseLoading})
	r.post(jobID, Event{Type: EventTypeStatus, Message: "Initializing GPU...", Severity: domain.SeverityInfo})

	r.wg.Add(1)
	go r.run(jobID, req)
	return jobID, nil
}

// Current returns the job occupying the worker slot, if any.
func (r *Runner) Current() domain.Job {
	return r.jobs.Current()
}

// Wait blocks until the in-flight worker, if any, has cleaned up.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// run is the worker body. Cleanup always runs, after failures are relayed
// and after any panic is recovered.
func (r *Runner) run(jobID string, req domain.JobRequest) {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := r.log.With().Str("job_id", jobID).Logger()
	defer r.cleanup(jobID, log)
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(jobID, fmt.Errorf("unexpected failure: %v", rec), log)
		}
	}()

	if err := r.execute(ctx, jobID, req, log); err != nil {
		r.fail(jobID, err, log)
	}
}

// execute runs loading, streaming and finalizing for one job.
func (r *Runner) execute(ctx context.Context, jobID string, req domain.JobRequest, log zerolog.Logger) error {
	eng, err := r.loader.Load(ctx, req.ModelSize, func(msg string) {
		r.post(jobID, Event{Type: EventTypeLog, Message: msg})
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Warn().Err(err).Msg("close engine")
		}
	}()

	r.setPhase(jobID, domain.JobPhaseStreaming, log)
	r.post(jobID, Event{Type: EventTypeStatus, Message: "Transcribing... (Please wait)", Severity: domain.SeverityProgress})
	r.post(jobID, Event{Type: EventTypeLog, Message: banner("TRANSCRIPTION STARTED")})

	hint := req.LanguageHint()
	detected, stream, err := eng.Transcribe(ctx, req.FilePath, engine.TranscribeOptions{
		BeamSize: engine.DefaultBeamSize,
		Language: hint,
	})
	if err != nil {
		return domain.NewInferenceError(err)
	}
	defer stream.Close()

	if hint == "" {
		r.post(jobID, Event{Type: EventTypeLog, Message: "Detected Language: " + strings.ToUpper(detected)})
	}

	var tr transcript.Transcript
	for {
		seg, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.NewInferenceError(err)
		}
		line := transcript.FormatLine(seg)
		tr.Append(line)
		r.post(jobID, Event{Type: EventTypeLog, Message: line})
	}
	log.Info().Int("lines", tr.Len()).Msg("segment stream exhausted")

	r.setPhase(jobID, domain.JobPhaseFinalizing, log)
	text := tr.Text()
	backupPath, err := r.writer.WriteBackup(r.backupDir, r.now(), text)
	if err != nil {
		if errors.Is(err, domain.ErrIO) {
			return err
		}
		return domain.NewIOError(r.backupDir, err)
	}

	r.setPhase(jobID, domain.JobPhaseCompleted, log)
	r.post(jobID, Event{Type: EventTypeLog, Message: banner("COMPLETED")})
	r.post(jobID, Event{
		Type:       EventTypeCompleted,
		Transcript: text,
		BackupPath: backupPath,
		SourcePath: req.FilePath,
	})
	log.Info().Str("backup", backupPath).Msg("job completed")
	return nil
}

// fail relays a terminal error: log line, status and the failed phase.
func (r *Runner) fail(jobID string, err error, log zerolog.Logger) {
	log.Error().Err(err).Msg("job failed")
	if tErr := r.jobs.Transition(domain.JobPhaseFailed); tErr != nil {
		log.Warn().Err(tErr).Msg("record failed phase")
	}
	r.post(jobID, Event{Type: EventTypePhase, Phase: domain.JobPhaseFailed, Error: err.Error()})
	r.post(jobID, Event{Type: EventTypeLog, Message: "CRITICAL ERROR: " + err.Error()})
	r.post(jobID, Event{Type: EventTypeStatus, Message: "Error: " + err.Error(), Severity: domain.SeverityError})
}

// cleanup restores inputs and frees the worker slot. The controls event is
// queued while the slot is still held so that a job started afterwards
// always posts its events behind it.
func (r *Runner) cleanup(jobID string, log zerolog.Logger) {
	r.post(jobID, Event{Type: EventTypeControls, Enabled: true})
	r.jobs.Reset()
	log.Debug().Msg("job slot released")
}

func (r *Runner) setPhase(jobID string, phase domain.JobPhase, log zerolog.Logger) {
	if err := r.jobs.Transition(phase); err != nil {
		log.Warn().Err(err).Str("phase", string(phase)).Msg("unexpected transition")
	}
	r.post(jobID, Event{Type: EventTypePhase, Phase: phase})
}

func (r *Runner) post(jobID string, event Event) {
	event.JobID = jobID
	r.relay.Post(event)
}

func banner(title string) string {
	return "\n" + bannerRule + "\n" + title + "\n" + bannerRule
}
