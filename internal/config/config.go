package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr                 string
	ModelDir             string
	DefaultModelSize     string
	StagingDir           string
	FFmpegFallbackDir    string
	ModelBaseURL         string
	ModelDownload        bool
	ModelFetchTimeoutSec int
	ShowSegments         bool
	EnableTXTDownload    bool
	EnableSRTDownload    bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "0", "false", "no", "off", "False", "FALSE":
			return false
		default:
			return true
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func Load() Config {
	return Config{
		Addr:                 getenv("SCRIBED_ADDR", ":8080"),
		ModelDir:             getenv("SCRIBED_MODEL_DIR", "./models"),
		DefaultModelSize:     getenv("SCRIBED_MODEL_SIZE", "base"),
		StagingDir:           getenv("SCRIBED_STAGING_DIR", ""),
		FFmpegFallbackDir:    getenv("SCRIBED_FFMPEG_DIR", "/opt/ffmpeg/bin"),
		ModelBaseURL:         getenv("SCRIBED_MODEL_BASE_URL", ""),
		ModelDownload:        getenvBool("SCRIBED_MODEL_DOWNLOAD", true),
		ModelFetchTimeoutSec: getenvInt("SCRIBED_MODEL_FETCH_TIMEOUT", 600),
		ShowSegments:         getenvBool("SCRIBED_SHOW_SEGMENTS", true),
		EnableTXTDownload:    getenvBool("SCRIBED_ENABLE_TXT", true),
		EnableSRTDownload:    getenvBool("SCRIBED_ENABLE_SRT", true),
	}
}
