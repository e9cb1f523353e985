package http

import (
	"encoding/json"
	"net/http"

	"github.com/scribed/scribed/internal/config"
	"github.com/scribed/scribed/internal/transcriber"
	"github.com/scribed/scribed/internal/ws"
)

func NewRouter(cfg config.Config, svc *transcriber.Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	h := &handler{cfg: cfg, svc: svc}
	mux.HandleFunc("/v1/models", h.models)
	mux.HandleFunc("/v1/transcribe", h.transcribe)

	// Chunked-upload transcription WebSocket
	wss := ws.NewServer(cfg, svc)
	mux.HandleFunc("/ws/transcribe", wss.Handle)
	return mux
}
