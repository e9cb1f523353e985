//go:build !whisper_cpp

package whisper

import (
	"context"

	"github.com/scribed/scribed/internal/media"
)

// Default stub (no cgo) so the project builds without whisper_cpp tag.
type stubEngine struct{}

func NewEngine(modelPath string, probe media.Probe) (Engine, error) { return &stubEngine{}, nil }
func (e *stubEngine) Close() error                                  { return nil }
func (e *stubEngine) Transcribe(ctx context.Context, path string, onSegment func(Segment)) (*Result, error) {
	return &Result{}, nil
}
