// Package ws exposes the transcription pipeline over a websocket so a
// caller can stage an upload in chunks and trigger transcription as a
// separate, explicit action.
package ws

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/scribed/scribed/internal/config"
	"github.com/scribed/scribed/internal/transcriber"
	"github.com/scribed/scribed/internal/whisper"
)

const readDeadline = 60 * time.Second

type Server struct {
	cfg      config.Config
	svc      *transcriber.Service
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, svc *transcriber.Service) *Server {
	return &Server{
		cfg: cfg,
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024 * 16,
			WriteBufferSize: 1024 * 16,
		},
	}
}

// Handle runs one upload/transcribe session. Protocol, all JSON text
// frames:
//
//	start      {filename, model_size?}    -> started
//	chunk      {data: base64}             -> staged quietly
//	transcribe {}                         -> state/segment events, then
//	                                         completed or error
//	stop       {}                         -> stopped, connection closes
//
// The staged file is removed when the session ends, whether or not a
// transcription ever ran.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(readDeadline)); return nil })

	var (
		upload  *transcriber.Upload
		variant whisper.Variant
	)
	defer func() {
		// staged files never outlive the session
		if upload != nil {
			_ = upload.Discard()
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("ws read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		if mt != websocket.TextMessage {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "invalid json"})
			continue
		}

		switch msg["type"] {
		case "ping":
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			_ = conn.WriteJSON(map[string]any{"type": "pong", "ts": msg["ts"]})

		case "start":
			name, _ := msg["filename"].(string)
			if name == "" {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "missing filename"})
				continue
			}
			if !transcriber.AcceptedExtension(name) {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "unsupported file extension"})
				continue
			}
			variant = ""
			if sz, _ := msg["model_size"].(string); sz != "" {
				v, err := whisper.ParseVariant(sz)
				if err != nil {
					_ = conn.WriteJSON(map[string]any{"type": "error", "detail": err.Error()})
					continue
				}
				variant = v
			}
			// a second start replaces any staged payload
			if upload != nil {
				_ = upload.Discard()
			}
			upload, err = s.svc.Stage(name, bytes.NewReader(nil))
			if err != nil {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": err.Error()})
				continue
			}
			// warm the model while the upload trickles in; the registry
			// single-flights the load, so a later transcribe just waits
			go func(v whisper.Variant) {
				if _, err := s.svc.Prepare(context.Background(), v); err != nil {
					log.Warn().Err(err).Msg("ws: model warmup failed")
				}
			}(variant)
			_ = conn.WriteJSON(map[string]any{"type": "started", "filename": name})

		case "chunk":
			if upload == nil {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "no active upload"})
				continue
			}
			b64, _ := msg["data"].(string)
			if b64 == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "invalid base64 payload"})
				continue
			}
			if err := upload.Append(raw); err != nil {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": err.Error()})
			}

		case "transcribe":
			if upload == nil {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "no active upload"})
				continue
			}
			// inference can outlast the read deadline; give the session
			// room until the run returns
			_ = conn.SetReadDeadline(time.Time{})
			res, err := s.svc.Run(r.Context(), transcriber.Request{
				Upload:  upload,
				Variant: variant,
				OnState: func(st transcriber.State) {
					_ = conn.WriteJSON(map[string]any{"type": "state", "state": string(st)})
				},
				OnSegment: func(seg whisper.Segment) {
					_ = conn.WriteJSON(map[string]any{
						"type": "segment", "start": seg.Start, "end": seg.End, "text": seg.Text,
					})
				},
			})
			basename := upload.Basename()
			upload = nil // Run always removes the staged file
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			if err != nil {
				_ = conn.WriteJSON(map[string]any{
					"type": "error", "detail": err.Error(), "kind": failureKind(err),
				})
				continue
			}
			payload := map[string]any{
				"type":            "completed",
				"text":            res.Text,
				"basename":        basename,
				"elapsed_seconds": res.Elapsed.Seconds(),
			}
			if s.cfg.EnableSRTDownload {
				if doc, err := res.SRT(); err == nil {
					payload["srt"] = doc
				}
			}
			_ = conn.WriteJSON(payload)

		case "stop":
			_ = conn.WriteJSON(map[string]any{"type": "stopped"})
			return

		default:
			_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "unknown message type"})
		}
	}
}

func failureKind(err error) string {
	var (
		stagingErr *transcriber.StagingError
		loadErr    *transcriber.ModelLoadError
		transErr   *transcriber.TranscriptionError
	)
	switch {
	case errors.As(err, &stagingErr):
		return "staging"
	case errors.As(err, &loadErr):
		return "model_load"
	case errors.As(err, &transErr):
		return string(transErr.Kind)
	default:
		return "unknown"
	}
}
