package transcriber_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/scribed/scribed/internal/media"
	"github.com/scribed/scribed/internal/transcriber"
	"github.com/scribed/scribed/internal/whisper"
)

type fakeEngine struct {
	result *whisper.Result
	err    error
}

func (f *fakeEngine) Transcribe(ctx context.Context, path string, onSegment func(whisper.Segment)) (*whisper.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if onSegment != nil {
		for _, seg := range f.result.Segments {
			onSegment(seg)
		}
	}
	return f.result, nil
}
func (f *fakeEngine) Close() error { return nil }

func sampleResult() *whisper.Result {
	return &whisper.Result{
		Text: " Hello there. General Kenobi. ",
		Segments: []whisper.Segment{
			{Start: 0, End: 2.5, Text: "Hello there."},
			{Start: 2.5, End: 5, Text: "General Kenobi."},
		},
	}
}

func newService(t *testing.T, eng whisper.Engine, loadErr error) *transcriber.Service {
	t.Helper()
	reg := whisper.NewRegistry(func(ctx context.Context, v whisper.Variant) (whisper.Engine, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		return eng, nil
	})
	return &transcriber.Service{
		Registry:   reg,
		Probe:      media.Probe{Binary: "scribed-test-missing-decoder"},
		StagingDir: t.TempDir(),
		Default:    whisper.VariantBase,
	}
}

func stagingEntries(t *testing.T, svc *transcriber.Service) int {
	t.Helper()
	entries, err := os.ReadDir(svc.StagingDir)
	if err != nil {
		t.Fatalf("reading staging dir: %v", err)
	}
	return len(entries)
}

func TestTranscribeCompletesAndCleans(t *testing.T) {
	svc := newService(t, &fakeEngine{result: sampleResult()}, nil)

	var states []transcriber.State
	var streamed []whisper.Segment
	res, err := svc.Transcribe(context.Background(), "talk.mp3", bytes.NewReader([]byte("fake media")), transcriber.Request{
		OnState:   func(st transcriber.State) { states = append(states, st) },
		OnSegment: func(seg whisper.Segment) { streamed = append(streamed, seg) },
	})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if res.Text != "Hello there. General Kenobi." {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Segments) != 2 || len(streamed) != 2 {
		t.Errorf("segments = %d, streamed = %d, want 2 each", len(res.Segments), len(streamed))
	}
	want := []transcriber.State{
		transcriber.StateReceived,
		transcriber.StateStaged,
		transcriber.StateDecoderChecked,
		transcriber.StateModelReady,
		transcriber.StateTranscribing,
		transcriber.StateCompleted,
		transcriber.StateCleaned,
	}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
	if n := stagingEntries(t, svc); n != 0 {
		t.Errorf("staging dir should be empty after completion, has %d entries", n)
	}
}

func TestSegmentsStayOrdered(t *testing.T) {
	svc := newService(t, &fakeEngine{result: sampleResult()}, nil)
	res, err := svc.Transcribe(context.Background(), "talk.mp3", bytes.NewReader([]byte("x")), transcriber.Request{})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	for i := 1; i < len(res.Segments); i++ {
		if res.Segments[i-1].Start > res.Segments[i].Start {
			t.Fatalf("segments out of order at %d: %v", i, res.Segments)
		}
	}
}

func TestRunFailureStillCleans(t *testing.T) {
	engErr := fmt.Errorf("%w: inference blew up", whisper.ErrRuntime)
	svc := newService(t, &fakeEngine{err: engErr}, nil)

	up, err := svc.Stage("talk.mp3", bytes.NewReader([]byte("fake media")))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}
	var states []transcriber.State
	_, err = svc.Run(context.Background(), transcriber.Request{
		Upload:  up,
		OnState: func(st transcriber.State) { states = append(states, st) },
	})

	var terr *transcriber.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TranscriptionError, got %v", err)
	}
	if terr.Kind != transcriber.RuntimeFailure {
		t.Errorf("kind = %q, want runtime", terr.Kind)
	}
	if _, statErr := os.Stat(up.Path); !os.IsNotExist(statErr) {
		t.Error("staged file should be removed after a failed run")
	}
	if len(states) < 2 ||
		states[len(states)-2] != transcriber.StateFailed ||
		states[len(states)-1] != transcriber.StateCleaned {
		t.Errorf("states = %v, want ... failed, cleaned", states)
	}
}

func TestFailureClassification(t *testing.T) {
	cases := []struct {
		err  error
		want transcriber.FailureKind
	}{
		{fmt.Errorf("%w: bad container", whisper.ErrDecode), transcriber.DecodeFailure},
		{fmt.Errorf("%w: inference", whisper.ErrRuntime), transcriber.RuntimeFailure},
		{errors.New("something else"), transcriber.UnknownFailure},
	}
	for _, tc := range cases {
		svc := newService(t, &fakeEngine{err: tc.err}, nil)
		_, err := svc.Transcribe(context.Background(), "talk.mp3", bytes.NewReader([]byte("x")), transcriber.Request{})
		var terr *transcriber.TranscriptionError
		if !errors.As(err, &terr) {
			t.Fatalf("expected *TranscriptionError for %v, got %v", tc.err, err)
		}
		if terr.Kind != tc.want {
			t.Errorf("kind for %v = %q, want %q", tc.err, terr.Kind, tc.want)
		}
	}
}

func TestModelLoadFailureStillCleans(t *testing.T) {
	svc := newService(t, nil, errors.New("weights unavailable"))

	var states []transcriber.State
	_, err := svc.Transcribe(context.Background(), "talk.mp3", bytes.NewReader([]byte("x")), transcriber.Request{
		Variant: whisper.VariantSmall,
		OnState: func(st transcriber.State) { states = append(states, st) },
	})

	var loadErr *transcriber.ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *ModelLoadError, got %v", err)
	}
	if loadErr.Variant != whisper.VariantSmall {
		t.Errorf("variant = %q", loadErr.Variant)
	}
	if n := stagingEntries(t, svc); n != 0 {
		t.Errorf("staging dir should be empty after model load failure, has %d entries", n)
	}
	if states[len(states)-1] != transcriber.StateCleaned {
		t.Errorf("states = %v, want trailing cleaned", states)
	}
}

func TestStagingFailureEntersNoFurtherStates(t *testing.T) {
	svc := newService(t, &fakeEngine{result: sampleResult()}, nil)
	svc.StagingDir = "/proc/does-not-exist/staging"

	var states []transcriber.State
	_, err := svc.Transcribe(context.Background(), "talk.mp3", bytes.NewReader([]byte("x")), transcriber.Request{
		OnState: func(st transcriber.State) { states = append(states, st) },
	})
	var stagingErr *transcriber.StagingError
	if !errors.As(err, &stagingErr) {
		t.Fatalf("expected *StagingError, got %v", err)
	}
	if len(states) != 1 || states[0] != transcriber.StateReceived {
		t.Errorf("states = %v, want [received] only", states)
	}
}

func TestDefaultVariantIsUsed(t *testing.T) {
	var loaded whisper.Variant
	reg := whisper.NewRegistry(func(ctx context.Context, v whisper.Variant) (whisper.Engine, error) {
		loaded = v
		return &fakeEngine{result: sampleResult()}, nil
	})
	svc := &transcriber.Service{
		Registry:   reg,
		Probe:      media.Probe{Binary: "scribed-test-missing-decoder"},
		StagingDir: t.TempDir(),
		Default:    whisper.VariantMedium,
	}
	if _, err := svc.Transcribe(context.Background(), "talk.mp3", bytes.NewReader([]byte("x")), transcriber.Request{}); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if loaded != whisper.VariantMedium {
		t.Errorf("loaded variant = %q, want medium", loaded)
	}
}

func TestPrepareWarmsWithoutTranscribing(t *testing.T) {
	var loads int
	reg := whisper.NewRegistry(func(ctx context.Context, v whisper.Variant) (whisper.Engine, error) {
		loads++
		return &fakeEngine{result: sampleResult()}, nil
	})
	svc := &transcriber.Service{
		Registry:   reg,
		Probe:      media.Probe{Binary: "scribed-test-missing-decoder"},
		StagingDir: t.TempDir(),
		Default:    whisper.VariantBase,
	}
	if _, err := svc.Prepare(context.Background(), whisper.VariantBase); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), "talk.mp3", bytes.NewReader([]byte("x")), transcriber.Request{}); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if loads != 1 {
		t.Errorf("expected the prepared engine to be reused, loads = %d", loads)
	}
}
