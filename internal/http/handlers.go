package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/scribed/scribed/internal/config"
	"github.com/scribed/scribed/internal/subtitle"
	"github.com/scribed/scribed/internal/transcriber"
	"github.com/scribed/scribed/internal/whisper"
)

// uploads are read through a multipart reader; this only bounds the
// in-memory form parts
const maxFormMemory = 32 << 20

type handler struct {
	cfg config.Config
	svc *transcriber.Service
}

type modelInfo struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	SizeLabel   string `json:"sizeLabel,omitempty"`
	Description string `json:"description,omitempty"`
}

func (h *handler) models(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := make([]modelInfo, 0, len(whisper.Variants()))
	for _, v := range whisper.Variants() {
		out = append(out, modelInfo{
			ID:          string(v),
			FileName:    v.WeightFile(),
			SizeLabel:   v.SizeLabel(),
			Description: v.Description(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type segmentDisplay struct {
	Range string `json:"range"`
	Text  string `json:"text"`
}

type transcribeResponse struct {
	Text           string            `json:"text"`
	Segments       []whisper.Segment `json:"segments,omitempty"`
	Display        []segmentDisplay  `json:"display,omitempty"`
	SRT            string            `json:"srt,omitempty"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Decoder        string            `json:"decoder,omitempty"`
	DecoderWarning string            `json:"decoder_warning,omitempty"`
}

// transcribe accepts a multipart upload ("file", optional "model_size",
// optional "format" of json, txt, or srt) and runs the full pipeline in
// the request goroutine. There is no timeout: inference runs as long as
// it needs.
func (h *handler) transcribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !transcriber.AcceptedExtension(hdr.Filename) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file extension for %q", hdr.Filename))
		return
	}

	variant := whisper.Variant("")
	if s := r.FormValue("model_size"); s != "" {
		variant, err = whisper.ParseVariant(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	format := r.FormValue("format")
	switch format {
	case "", "json":
		format = "json"
	case "txt":
		if !h.cfg.EnableTXTDownload {
			writeError(w, http.StatusForbidden, "txt download is disabled")
			return
		}
	case "srt":
		if !h.cfg.EnableSRTDownload {
			writeError(w, http.StatusForbidden, "srt download is disabled")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	res, err := h.svc.Transcribe(r.Context(), hdr.Filename, file, transcriber.Request{Variant: variant})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	basename := outputBasename(hdr.Filename)
	switch format {
	case "txt":
		writeAttachment(w, basename+".txt", res.Text)
	case "srt":
		doc, err := res.SRT()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, basename+".srt", doc)
	default:
		resp := transcribeResponse{
			Text:           res.Text,
			ElapsedSeconds: res.Elapsed.Seconds(),
			Decoder:        res.Decoder,
		}
		if res.Decoder == "" {
			resp.DecoderWarning = "ffmpeg not detected; decoding may have been degraded"
		}
		if h.cfg.ShowSegments {
			resp.Segments = res.Segments
			for _, seg := range res.Segments {
				resp.Display = append(resp.Display, segmentDisplay{
					Range: subtitle.FormatClock(seg.Start) + " → " + subtitle.FormatClock(seg.End),
					Text:  seg.Text,
				})
			}
		}
		if h.cfg.EnableSRTDownload {
			if doc, err := res.SRT(); err == nil {
				resp.SRT = doc
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// writeFailure maps the orchestrator's error taxonomy onto HTTP status
// codes; nothing propagates as an uncaught fault.
func (h *handler) writeFailure(w http.ResponseWriter, err error) {
	var (
		stagingErr *transcriber.StagingError
		loadErr    *transcriber.ModelLoadError
		transErr   *transcriber.TranscriptionError
	)
	switch {
	case errors.As(err, &stagingErr):
		writeError(w, http.StatusInternalServerError, stagingErr.Error())
	case errors.As(err, &loadErr):
		writeError(w, http.StatusInternalServerError, loadErr.Error())
	case errors.As(err, &transErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": transErr.Error(),
			"kind":  string(transErr.Kind),
		})
	default:
		log.Error().Err(err).Msg("unclassified transcription failure")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func outputBasename(name string) string {
	u := transcriber.Upload{Name: name}
	return u.Basename()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

func writeAttachment(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
