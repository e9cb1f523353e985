package transcriber

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Accepted upload extensions. Advisory only: the suffix picks the
// staging file name and output basename and is never validated against
// the actual content.
var acceptedExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".m4a": {}, ".flac": {}, ".ogg": {},
	".webm": {}, ".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {},
}

// AcceptedExtension reports whether the declared filename carries one of
// the supported media extensions.
func AcceptedExtension(name string) bool {
	_, ok := acceptedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Upload is one staged media payload. It lives for the duration of a
// single request and is removed at the request's terminal state.
type Upload struct {
	Name string // declared filename from the caller
	Path string // transient location on disk
}

// Stage writes the payload to a transient uniquely-named file under dir
// (os.TempDir when empty), keeping the declared name's suffix so
// downstream tools can pick a demuxer from it.
func Stage(dir, name string, payload io.Reader) (*Upload, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	suffix := strings.ToLower(filepath.Ext(name))
	if suffix == "" {
		suffix = ".tmp"
	}
	path := filepath.Join(dir, "upload-"+uuid.NewString()+suffix)

	f, err := os.Create(path)
	if err != nil {
		return nil, &StagingError{Err: err}
	}
	if _, err := io.Copy(f, payload); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &StagingError{Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, &StagingError{Err: err}
	}
	log.Debug().Str("name", name).Str("path", path).Msg("staged upload")
	return &Upload{Name: name, Path: path}, nil
}

// Append adds more payload bytes to an already staged upload.
func (u *Upload) Append(b []byte) error {
	f, err := os.OpenFile(u.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &StagingError{Err: err}
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return &StagingError{Err: err}
	}
	if err := f.Close(); err != nil {
		return &StagingError{Err: err}
	}
	return nil
}

// Discard removes the transient file. Best effort: the returned error
// exists for callers that want it and is safe to ignore — a leftover
// temp file never affects a returned transcript.
func (u *Upload) Discard() error {
	if u == nil || u.Path == "" {
		return nil
	}
	err := os.Remove(u.Path)
	if err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("path", u.Path).Msg("staged file cleanup failed")
		return err
	}
	return nil
}

// Basename derives the output file base from the declared name, for
// naming downloaded transcripts and subtitle tracks.
func (u *Upload) Basename() string {
	base := filepath.Base(u.Name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return "transcript"
	}
	return base
}
