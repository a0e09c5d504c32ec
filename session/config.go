package session

import (
	"os"
	"strconv"
)

// Config holds everything needed to construct a Server.
type Config struct {
	Host            string
	Port            int
	StoragePath     string
	Username        string
	Password        string
	ProtocolVersion int
	Capabilities    []string
	MaxUploadSize   *uint64
	MetricsAddr     string
	MaxFrameBytes   int
}

// DefaultCapabilities lists every command the server advertises in
// INFO_RESULT when the caller does not supply its own set.
var DefaultCapabilities = []string{"AUTH", "PUT", "GET", "LIST", "DEL", "INFO", "BYE"}

// ConfigFromEnv builds a Config from LEO_HOST, LEO_PORT, LEO_STORAGE,
// LEO_USER, LEO_PASS, and the optional LEO_METRICS_ADDR and
// LEO_MAX_FRAME_BYTES.
func ConfigFromEnv() Config {
	cfg := Config{
		Host:            envOr("LEO_HOST", "0.0.0.0"),
		Port:            envIntOr("LEO_PORT", 9443),
		StoragePath:     envOr("LEO_STORAGE", "./leo-storage"),
		Username:        os.Getenv("LEO_USER"),
		Password:        os.Getenv("LEO_PASS"),
		ProtocolVersion: 1,
		Capabilities:    DefaultCapabilities,
		MetricsAddr:     os.Getenv("LEO_METRICS_ADDR"),
		MaxFrameBytes:   envIntOr("LEO_MAX_FRAME_BYTES", 0),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
