// Package models resolves whisper weight files on disk, fetching them
// on first use the way whisper's own model loader does.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scribed/scribed/internal/whisper"
)

// DefaultBaseURL hosts the ggml conversions of the whisper checkpoints.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

type Store struct {
	dir      string
	base     string
	download bool
	http     *http.Client
}

// New builds a store over dir. When download is true, missing weight
// files are fetched from base; timeoutSec bounds one fetch.
func New(dir, base string, download bool, timeoutSec int) *Store {
	if base == "" {
		base = DefaultBaseURL
	}
	if timeoutSec <= 0 {
		timeoutSec = 600
	}
	return &Store{
		dir:      dir,
		base:     strings.TrimRight(base, "/"),
		download: download,
		http:     &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

// Path returns where the variant's weight file lives, whether or not it
// exists yet.
func (s *Store) Path(v whisper.Variant) string {
	return filepath.Join(s.dir, v.WeightFile())
}

// Downloaded reports whether the variant's weights are present on disk.
func (s *Store) Downloaded(v whisper.Variant) bool {
	info, err := os.Stat(s.Path(v))
	return err == nil && !info.IsDir()
}

// Resolve returns the local weight file for the variant, fetching it
// from the configured base URL when it is not present.
func (s *Store) Resolve(ctx context.Context, v whisper.Variant) (string, error) {
	path := s.Path(v)
	if s.Downloaded(v) {
		return path, nil
	}
	if !s.download {
		return "", fmt.Errorf("model weights missing: %s", path)
	}
	if err := s.fetch(ctx, v, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) fetch(ctx context.Context, v whisper.Variant, path string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	url := s.base + "/" + v.WeightFile()
	log.Info().Str("variant", string(v)).Str("url", url).Msg("models: downloading weights")
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}

	// write to a partial file first so an interrupted download never
	// looks like valid weights
	part := path + ".part"
	f, err := os.Create(part)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return fmt.Errorf("write %s: %w", part, err)
	}
	if err := os.Rename(part, path); err != nil {
		os.Remove(part)
		return err
	}

	log.Info().
		Str("variant", string(v)).
		Int64("bytes", n).
		Dur("elapsed", time.Since(started)).
		Msg("models: weights downloaded")
	return nil
}
