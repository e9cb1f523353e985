//go:build whisper_cpp

package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"github.com/scribed/scribed/internal/audio"
	"github.com/scribed/scribed/internal/media"
)

// EngineCPP is the whisper.cpp-backed implementation of Engine.
type EngineCPP struct {
	model   whisperpkg.Model
	probe   media.Probe
	threads uint
	mu      sync.Mutex // whisper contexts must not run concurrently on one model
}

func NewEngine(modelPath string, probe media.Probe) (Engine, error) {
	threads := uint(runtime.NumCPU())
	if v := os.Getenv("SCRIBED_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			threads = uint(n)
			log.Info().Int("threads", n).Msg("whisper: using configured thread count")
		}
	}

	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	log.Info().Str("model", modelPath).Uint("threads", threads).Msg("whisper: model loaded")
	return &EngineCPP{model: m, probe: probe, threads: threads}, nil
}

func (e *EngineCPP) Close() error {
	if e.model != nil {
		e.model.Close()
	}
	return nil
}

// Transcribe implements Engine with a single full-file pass. Language is
// pinned to English and temperature to zero (no fallback sampling), so
// output for a given file and model version is reproducible.
func (e *EngineCPP) Transcribe(ctx context.Context, path string, onSegment func(Segment)) (*Result, error) {
	samples, err := e.loadSamples(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// Serialize access to the model to prevent concurrent processing crashes
	e.mu.Lock()
	defer e.mu.Unlock()

	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("%w: create context: %v", ErrRuntime, err)
	}
	wctx.SetThreads(e.threads)
	if err := wctx.SetLanguage("en"); err != nil {
		return nil, fmt.Errorf("%w: set language: %v", ErrRuntime, err)
	}
	wctx.SetTranslate(false)
	wctx.SetTemperature(0)
	wctx.SetTemperatureFallback(0)

	var (
		segments []Segment
		texts    []string
	)
	segCB := func(seg whisperpkg.Segment) {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			return
		}
		out := Segment{Start: seg.Start.Seconds(), End: seg.End.Seconds(), Text: text}
		segments = append(segments, out)
		texts = append(texts, text)
		if onSegment != nil {
			onSegment(out)
		}
	}
	if err := wctx.Process(samples, nil, segCB, nil); err != nil {
		log.Error().Err(err).Str("path", path).Msg("whisper: process failed")
		return nil, fmt.Errorf("%w: process audio: %v", ErrRuntime, err)
	}

	log.Debug().Int("segments", len(segments)).Int("samples", len(samples)).Msg("whisper: transcription complete")
	return &Result{Text: strings.Join(texts, " "), Segments: segments}, nil
}

// loadSamples produces 16kHz mono float32 PCM for the engine. WAV input
// is decoded in-process; everything else goes through the external
// decoder first.
func (e *EngineCPP) loadSamples(ctx context.Context, path string) ([]float32, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if samples, sr, err := audio.DecodeWAVToFloat32(b); err == nil {
			if sr != audio.WhisperSampleRate {
				samples = audio.ResampleLinear(samples, sr, audio.WhisperSampleRate)
			}
			return samples, nil
		}
		// Some .wav uploads carry codecs the in-process decoder cannot
		// handle; fall through to the external decoder.
	}

	wavPath, err := e.probe.ExtractAudio(ctx, path, "")
	if err != nil {
		return nil, err
	}
	defer os.Remove(wavPath)

	b, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	samples, sr, err := audio.DecodeWAVToFloat32(b)
	if err != nil {
		return nil, err
	}
	if sr != audio.WhisperSampleRate {
		samples = audio.ResampleLinear(samples, sr, audio.WhisperSampleRate)
	}
	return samples, nil
}
