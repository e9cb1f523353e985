package whisper

import (
	"context"
	"errors"
)

// Sentinel causes for engine failures. The orchestrator classifies
// errors with errors.Is against these.
var (
	// ErrDecode marks failures while turning the source media into PCM.
	ErrDecode = errors.New("decode audio")
	// ErrRuntime marks failures raised by the recognition engine itself.
	ErrRuntime = errors.New("engine runtime")
)

// Segment is one time-bounded span of the transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the normalized output of one engine invocation: the full
// transcript plus its segments ordered by non-decreasing start time.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Engine is a loaded recognition model bound to one variant.
// Implementations may be a no-op (stub) or backed by whisper.cpp (build tag: whisper_cpp).
type Engine interface {
	// Transcribe runs recognition over the media file at path and returns
	// the full transcript with ordered segments. Decoding is forced to
	// English at temperature zero, so repeated runs over the same input
	// and model produce identical output. onSegment, when non-nil, is
	// invoked for each segment as it is produced.
	Transcribe(ctx context.Context, path string, onSegment func(Segment)) (*Result, error)
	Close() error
}
