// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

// ServiceConfig holds service identity and listen addresses.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsPort string
}

// AudioConfig holds the canonical working format for decoded audio.
type AudioConfig struct {
	TargetSampleRate int     // canonical working rate in Hz
	MaxDurationSec   float64 // seconds of audio retained per unit
}

// FeatureConfig holds the fixed tensor geometry the classifier expects.
type FeatureConfig struct {
	MelBands  int
	MaxFrames int
}

// ClassifierConfig selects and configures the classifier backend.
type ClassifierConfig struct {
	Provider  string // "mock" or "serving"
	Endpoint  string // base URL of the serving backend
	ModelName string
	Labels    []string // closed label vocabulary, index-ordered
}

// KafkaConfig holds event publishing configuration.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	Principal string
}

// LimitsConfig bounds per-unit input sizes.
type LimitsConfig struct {
	MaxUploadBytes int64
	MaxChunkBytes  int64
}

// ObservabilityConfig holds logging configuration.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Service       ServiceConfig
	Audio         AudioConfig
	Feature       FeatureConfig
	Classifier    ClassifierConfig
	Kafka         KafkaConfig
	Limits        LimitsConfig
	Observability ObservabilityConfig
}

// DefaultLabels is the label vocabulary the bundled model was trained on.
var DefaultLabels = []string{
	"angry", "calm", "disgust", "fearful", "happy", "neutral", "sad", "surprised",
}

// Load reads configuration from environment variables, falling back to
// defaults for unset or unparseable values.
func Load() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal:   envOrDefault("SERVICE_PRINCIPAL", "svc-emotion-inference"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Audio: AudioConfig{
			TargetSampleRate: envInt("AUDIO_TARGET_SAMPLE_RATE", 22050),
			MaxDurationSec:   envFloat("AUDIO_MAX_DURATION_SEC", 3.0),
		},
		Feature: FeatureConfig{
			MelBands:  envInt("FEATURE_MEL_BANDS", 64),
			MaxFrames: envInt("FEATURE_MAX_FRAMES", 129),
		},
		Classifier: ClassifierConfig{
			Provider:  envOrDefault("CLASSIFIER_PROVIDER", "mock"),
			Endpoint:  envOrDefault("CLASSIFIER_ENDPOINT", ""),
			ModelName: envOrDefault("CLASSIFIER_MODEL_NAME", "emotion"),
			Labels:    envList("CLASSIFIER_LABELS", DefaultLabels),
		},
		Kafka: KafkaConfig{
			Enabled:   envBool("KAFKA_ENABLED", false),
			Brokers:   envList("KAFKA_BROKERS", nil),
			Topic:     envOrDefault("KAFKA_TOPIC", "emotion.prediction"),
			Principal: envOrDefault("KAFKA_PRINCIPAL", envOrDefault("SERVICE_PRINCIPAL", "svc-emotion-inference")),
		},
		Limits: LimitsConfig{
			MaxUploadBytes: envInt64("LIMIT_MAX_UPLOAD_BYTES", 10*1024*1024),
			MaxChunkBytes:  envInt64("LIMIT_MAX_CHUNK_BYTES", 2*1024*1024),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
