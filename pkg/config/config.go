// Package config loads the CLI and library settings from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the process configuration.
type Config struct {
	APIURL          string
	StoreURL        string
	StoreSecret     string
	LogLevel        string
	PageSize        int
	EvidenceGateway string
	RateLimitRPS    float64
	Network         string
	NetworksFile    string

	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	apiURL := os.Getenv("RECICLA_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	storeURL := os.Getenv("RECICLA_STORE_URL")
	if storeURL == "" {
		storeURL = "sqlite://" + filepath.Join(stateDir(), "session.db")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	pageSize, err := strconv.Atoi(os.Getenv("RECICLA_PAGE_SIZE"))
	if err != nil || pageSize < 1 {
		pageSize = 6
	}

	gateway := os.Getenv("RECICLA_EVIDENCE_GATEWAY")
	if gateway == "" {
		gateway = "https://gateway.pinata.cloud/ipfs/"
	}

	rps, err := strconv.ParseFloat(os.Getenv("RECICLA_RATE_LIMIT_RPS"), 64)
	if err != nil || rps < 0 {
		rps = 0
	}

	network := os.Getenv("RECICLA_NETWORK")
	if network == "" {
		network = NetworkHardhat
	}

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}

	return &Config{
		APIURL:          strings.TrimRight(apiURL, "/"),
		StoreURL:        storeURL,
		StoreSecret:     os.Getenv("RECICLA_STORE_SECRET"),
		LogLevel:        logLevel,
		PageSize:        pageSize,
		EvidenceGateway: gateway,
		RateLimitRPS:    rps,
		Network:         strings.ToLower(network),
		NetworksFile:    os.Getenv("RECICLA_NETWORKS_FILE"),
		OTelEnabled:     os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:    otelEndpoint,
		OTelInsecure:    os.Getenv("OTEL_INSECURE") == "true",
	}
}

// SlogLevel maps LogLevel onto a slog level; unknown values mean INFO.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".recicla"
	}
	return filepath.Join(home, ".recicla")
}
