package domain

import "time"

// JobPhase tracks each stage of a single transcription job.
type JobPhase string

const (
	JobPhaseIdle       JobPhase = "idle"
	JobPhaseLoading    JobPhase = "loading"
	JobPhaseStreaming  JobPhase = "streaming"
	JobPhaseFinalizing JobPhase = "finalizing"
	JobPhaseCompleted  JobPhase = "completed"
	JobPhaseFailed     JobPhase = "failed"
)

// Terminal reports whether the phase ends a job.
func (p JobPhase) Terminal() bool {
	return p == JobPhaseCompleted || p == JobPhaseFailed
}

// Severity colours a status message.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityProgress Severity = "progress"
	SeveritySuccess  Severity = "success"
	SeverityError    Severity = "error"
	SeverityMuted    Severity = "muted"
)

// LanguageAuto asks the engine to detect the spoken language.
const LanguageAuto = "auto"

// JobRequest is the immutable input of one transcription job.
type JobRequest struct {
	FilePath  string `json:"filePath"`
	ModelSize string `json:"modelSize"`
	Language  string `json:"language"`
}

// LanguageHint returns the engine language hint, empty for auto-detection.
func (r JobRequest) LanguageHint() string {
	if r.Language == "" || r.Language == LanguageAuto {
		return ""
	}
	return r.Language
}

// Segment is one timed span of recognized speech.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ModelDir  string `json:"modelDir"`
	ModelSize string `json:"modelSize"`
	Language  string `json:"language"`
}

// Job stores the current job identity and lifecycle phase.
type Job struct {
	ID      string     `json:"id"`
	Phase   JobPhase   `json:"phase"`
	Request JobRequest `json:"request"`
}

// UIState is the presentation-only projection rendered by every surface.
type UIState struct {
	Status         string   `json:"status"`
	Severity       Severity `json:"severity"`
	Phase          JobPhase `json:"phase"`
	FilePath       string   `json:"filePath"`
	ModelSize      string   `json:"modelSize"`
	Language       string   `json:"language"`
	SelectEnabled  bool     `json:"selectEnabled"`
	StartEnabled   bool     `json:"startEnabled"`
	SaveEnabled    bool     `json:"saveEnabled"`
	OptionsEnabled bool     `json:"optionsEnabled"`
	SavePending    bool     `json:"savePending"`
	BackupPath     string   `json:"backupPath,omitempty"`
	Log            []string `json:"log"`
}
