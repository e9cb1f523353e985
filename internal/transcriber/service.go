// Package transcriber drives one upload through the transcription
// pipeline: stage the file, check the external decoder, obtain a model
// handle, invoke recognition, and clean the staged file up whatever the
// outcome.
package transcriber

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scribed/scribed/internal/config"
	"github.com/scribed/scribed/internal/media"
	"github.com/scribed/scribed/internal/models"
	"github.com/scribed/scribed/internal/subtitle"
	"github.com/scribed/scribed/internal/whisper"
)

// State tracks the pipeline stage of a single request. Transitions are
// strictly sequential with no branching back.
type State string

const (
	StateReceived       State = "received"
	StateStaged         State = "staged"
	StateDecoderChecked State = "decoder_checked"
	StateModelReady     State = "model_ready"
	StateTranscribing   State = "transcribing"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
	StateCleaned        State = "cleaned"
)

// Result is the normalized outcome of one successful request.
type Result struct {
	Text     string
	Segments []whisper.Segment
	Elapsed  time.Duration
	Decoder  string // resolved decoder path; empty when not found
}

// SRT renders the segments as a subtitle document. Stateless and
// recomputed on demand.
func (r *Result) SRT() (string, error) {
	return subtitle.RenderSRT(r.Segments)
}

// Request drives one Run over an already staged upload. OnState and
// OnSegment are optional observers invoked from the calling goroutine.
type Request struct {
	Upload    *Upload
	Variant   whisper.Variant
	OnState   func(State)
	OnSegment func(whisper.Segment)
}

// Service owns the model registry and decoder probe and runs requests
// end to end, one at a time per caller.
type Service struct {
	Registry   *whisper.Registry
	Probe      media.Probe
	StagingDir string
	Default    whisper.Variant
}

// New wires a Service from configuration: weights resolved (and
// downloaded on first use) under the model dir, engines cached per
// variant by the registry.
func New(cfg config.Config) *Service {
	probe := media.Probe{FallbackDir: cfg.FFmpegFallbackDir}
	store := models.New(cfg.ModelDir, cfg.ModelBaseURL, cfg.ModelDownload, cfg.ModelFetchTimeoutSec)
	loader := func(ctx context.Context, v whisper.Variant) (whisper.Engine, error) {
		path, err := store.Resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		return whisper.NewEngine(path, probe)
	}
	def, err := whisper.ParseVariant(cfg.DefaultModelSize)
	if err != nil {
		log.Warn().Str("model_size", cfg.DefaultModelSize).Msg("unknown default model size, using base")
		def = whisper.VariantBase
	}
	return &Service{
		Registry:   whisper.NewRegistry(loader),
		Probe:      probe,
		StagingDir: cfg.StagingDir,
		Default:    def,
	}
}

// Stage persists one upload for a later Run. Uploading and transcribing
// are separate actions: a staged file may never be transcribed, and its
// model may be warmed independently via Prepare.
func (s *Service) Stage(name string, payload io.Reader) (*Upload, error) {
	return Stage(s.StagingDir, name, payload)
}

// Prepare loads (or reuses) the engine for a variant without running
// any transcription.
func (s *Service) Prepare(ctx context.Context, v whisper.Variant) (whisper.Engine, error) {
	v = s.variantOrDefault(v)
	eng, err := s.Registry.Get(ctx, v)
	if err != nil {
		return nil, &ModelLoadError{Variant: v, Err: err}
	}
	return eng, nil
}

// Transcribe runs the whole pipeline for one incoming payload:
// Received → Staged → ... → Cleaned.
func (s *Service) Transcribe(ctx context.Context, name string, payload io.Reader, req Request) (*Result, error) {
	step(req.OnState, StateReceived)
	up, err := s.Stage(name, payload)
	if err != nil {
		// nothing was staged; no further states, cleanup is a no-op
		return nil, err
	}
	step(req.OnState, StateStaged)
	req.Upload = up
	return s.Run(ctx, req)
}

// Run drives an already staged upload through decoder check, model
// load, and recognition. The staged file is removed at the terminal
// state regardless of outcome; removal failures are swallowed.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	up := req.Upload
	defer func() {
		_ = up.Discard()
		step(req.OnState, StateCleaned)
	}()

	decoder, found := s.Probe.Resolve()
	if !found {
		// degraded mode, not an error: some inputs decode in-process
		log.Warn().Str("file", up.Name).Msg("ffmpeg not detected; transcription may fail to decode audio/video")
	} else {
		log.Debug().Str("ffmpeg", decoder).Msg("decoder available")
	}
	step(req.OnState, StateDecoderChecked)

	variant := s.variantOrDefault(req.Variant)
	eng, err := s.Registry.Get(ctx, variant)
	if err != nil {
		step(req.OnState, StateFailed)
		return nil, &ModelLoadError{Variant: variant, Err: err}
	}
	step(req.OnState, StateModelReady)

	step(req.OnState, StateTranscribing)
	log.Info().Str("file", up.Name).Str("variant", string(variant)).Msg("transcription started")
	started := time.Now()
	out, err := eng.Transcribe(ctx, up.Path, req.OnSegment)
	elapsed := time.Since(started) // reporting only, never a timeout
	if err != nil {
		terr := classify(err)
		log.Error().Err(err).Str("file", up.Name).Str("kind", string(terr.Kind)).Msg("transcription failed")
		step(req.OnState, StateFailed)
		return nil, terr
	}

	log.Info().
		Str("file", up.Name).
		Int("segments", len(out.Segments)).
		Dur("elapsed", elapsed).
		Msg("transcription finished")
	step(req.OnState, StateCompleted)
	return &Result{
		Text:     strings.TrimSpace(out.Text),
		Segments: out.Segments,
		Elapsed:  elapsed,
		Decoder:  decoder,
	}, nil
}

func (s *Service) variantOrDefault(v whisper.Variant) whisper.Variant {
	if v == "" {
		if s.Default != "" {
			return s.Default
		}
		return whisper.VariantBase
	}
	return v
}

func step(on func(State), st State) {
	if on != nil {
		on(st)
	}
}
