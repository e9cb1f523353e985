package transcriber

import (
	"errors"
	"fmt"

	"github.com/scribed/scribed/internal/whisper"
)

// FailureKind classifies engine failures surfaced to callers.
type FailureKind string

const (
	DecodeFailure  FailureKind = "decode"
	RuntimeFailure FailureKind = "runtime"
	UnknownFailure FailureKind = "unknown"
)

// StagingError means the upload could not be persisted. Fatal for the
// request; nothing was staged, so there is nothing to clean.
type StagingError struct {
	Err error
}

func (e *StagingError) Error() string { return "stage upload: " + e.Err.Error() }
func (e *StagingError) Unwrap() error { return e.Err }

// ModelLoadError means the requested variant could not be constructed.
// Fatal for the request only: the registry still serves other variants
// and may retry this one on a later request.
type ModelLoadError struct {
	Variant whisper.Variant
	Err     error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Variant, e.Err)
}
func (e *ModelLoadError) Unwrap() error { return e.Err }

// TranscriptionError means the engine failed on this specific file.
type TranscriptionError struct {
	Kind FailureKind
	Err  error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (%s): %v", e.Kind, e.Err)
}
func (e *TranscriptionError) Unwrap() error { return e.Err }

func classify(err error) *TranscriptionError {
	switch {
	case errors.Is(err, whisper.ErrDecode):
		return &TranscriptionError{Kind: DecodeFailure, Err: err}
	case errors.Is(err, whisper.ErrRuntime):
		return &TranscriptionError{Kind: RuntimeFailure, Err: err}
	default:
		return &TranscriptionError{Kind: UnknownFailure, Err: err}
	}
}
