package domain

import "fmt"

// ErrorKind classifies failures caught at the job boundary.
type ErrorKind string

const (
	ErrorKindModelLoad ErrorKind = "model_load"
	ErrorKindInference ErrorKind = "inference"
	ErrorKindIO        ErrorKind = "io"
)

// Sentinels for errors.Is checks against a JobError kind.
var (
	ErrModelLoad = &JobError{Kind: ErrorKindModelLoad}
	ErrInference = &JobError{Kind: ErrorKindInference}
	ErrIO        = &JobError{Kind: ErrorKindIO}
)

// JobError is a kind-aware error surfaced to the status line.
type JobError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// NewModelLoadError reports that every model tier failed to load.
func NewModelLoadError(err error) *JobError {
	return &JobError{Kind: ErrorKindModelLoad, Message: errMessage(err), Err: err}
}

// NewInferenceError reports a failure while producing segments.
func NewInferenceError(err error) *JobError {
	return &JobError{Kind: ErrorKindInference, Message: errMessage(err), Err: err}
}

// NewIOError reports a failed transcript write.
func NewIOError(path string, err error) *JobError {
	return &JobError{
		Kind:    ErrorKindIO,
		Message: fmt.Sprintf("write %s: %s", path, errMessage(err)),
		Err:     err,
	}
}

// Error returns the message shown after "Error: " in the status line.
func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind) + " error"
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *JobError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another JobError of the same kind.
func (e *JobError) Is(target error) bool {
	t, ok := target.(*JobError)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
