package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scribed/scribed/internal/config"
	serverhttp "github.com/scribed/scribed/internal/http"
	"github.com/scribed/scribed/internal/transcriber"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			lvl = l
		}
	}
	log.Logger = log.Level(lvl)

	cfg := config.Load()
	svc := transcriber.New(cfg)

	if path, ok := svc.Probe.Resolve(); ok {
		log.Info().Str("ffmpeg", path).Msg("decoder found")
	} else {
		log.Warn().Msg("ffmpeg not detected; uploads that need external decoding will fail")
	}

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     serverhttp.NewRouter(cfg, svc),
		ReadTimeout: 30 * time.Second,
		// no write timeout: transcription responses are open-ended
	}

	log.Info().Str("addr", cfg.Addr).Str("model_size", string(svc.Default)).Msg("scribed server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}
