package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const defaultBinary = "ffmpeg"

// Probe locates the external media decoder. The fallback directory is
// injected configuration rather than a mutation of the ambient PATH, so
// tests can point it at a fake install location.
type Probe struct {
	Binary      string // decoder executable name, defaults to "ffmpeg"
	FallbackDir string // optional extra installation directory to consult
}

func (p Probe) binary() string {
	if p.Binary == "" {
		return defaultBinary
	}
	return p.Binary
}

// Available reports whether the decoder resolves through the normal
// executable lookup. Pure query, no side effects.
func (p Probe) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// Resolve returns the decoder path, consulting the fallback directory
// when normal lookup fails. Best effort: a missing fallback directory
// is not an error here; decode failures surface later during
// transcription.
func (p Probe) Resolve() (string, bool) {
	if path, err := exec.LookPath(p.binary()); err == nil {
		return path, true
	}
	if p.FallbackDir == "" {
		return "", false
	}
	cand := filepath.Join(p.FallbackDir, p.binary())
	info, err := os.Stat(cand)
	if err != nil || info.IsDir() {
		return "", false
	}
	return cand, true
}

// ExtractAudio converts a media file into the mono 16kHz WAV layout the
// recognition engine consumes and returns the output path under tmpDir
// (os.TempDir when empty).
func (p Probe) ExtractAudio(ctx context.Context, mediaPath, tmpDir string) (string, error) {
	bin, ok := p.Resolve()
	if !ok {
		// let exec report the lookup failure with its usual error
		bin = p.binary()
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	out := filepath.Join(tmpDir, base+"_16k.wav")

	cmd := exec.CommandContext(ctx, bin,
		"-y", "-i", mediaPath,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := lastLine(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("ffmpeg: %w: %s", err, detail)
		}
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	log.Debug().Str("in", mediaPath).Str("out", out).Msg("media: extracted audio")
	return out, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
