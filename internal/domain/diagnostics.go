package domain

import "time"

// DiagnosticStatus is the outcome of one environment check.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusWarn DiagnosticStatus = "warn"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// Check identifiers shared by the checker, the fix actions and the frontend.
const (
	DiagnosticFFmpeg        = "tool_ffmpeg"
	DiagnosticNativeBackend = "native_backend"
	DiagnosticModelFiles    = "model_files"
	DiagnosticBackupDir     = "backup_dir"
)

// DiagnosticItem is one check result. Fixable items offer a one-click
// remediation through InstallOrFixDiagnostic.
type DiagnosticItem struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  DiagnosticStatus `json:"status"`
	Message string           `json:"message"`
	Hint    string           `json:"hint,omitempty"`
	Fixable bool             `json:"fixable"`
}

// DiagnosticReport is the full set of checks taken at one moment.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}

// NewDiagnosticReport stamps items and derives HasFailures. Items that passed
// are never offered a fix.
func NewDiagnosticReport(at time.Time, items []DiagnosticItem) DiagnosticReport {
	report := DiagnosticReport{GeneratedAt: at, Items: items}
	for i := range report.Items {
		switch report.Items[i].Status {
		case DiagnosticStatusPass:
			report.Items[i].Fixable = false
		case DiagnosticStatusFail:
			report.HasFailures = true
		}
	}
	return report
}

// Problems returns the items that did not pass, in check order.
func (r DiagnosticReport) Problems() []DiagnosticItem {
	var out []DiagnosticItem
	for _, item := range r.Items {
		if item.Status != DiagnosticStatusPass {
			out = append(out, item)
		}
	}
	return out
}
