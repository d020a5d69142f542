package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the certificate service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string
	JWTIssuer string

	VerificationBaseURL string
	TemplateVersion     string
	SchemaVersion       string
	GeneratorVersion    string

	RenderTimeout   time.Duration
	IssuanceLockTTL time.Duration
	BatchWorkers    int

	VerifyRateThreshold int
	VerifyRateWindow    time.Duration

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"dependencies"`
	Certificates struct {
		VerificationBaseURL string `yaml:"verification_base_url"`
		TemplateVersion     string `yaml:"template_version"`
		SchemaVersion       string `yaml:"schema_version"`
		GeneratorVersion    string `yaml:"generator_version"`
	} `yaml:"certificates"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "certificate-service",
		HTTPPort:            8080,
		GRPCPort:            9090,
		KafkaTopic:          "certificate.lifecycle",
		JWTIssuer:           "campushq",
		VerificationBaseURL: "http://localhost:8080",
		TemplateVersion:     "v2",
		SchemaVersion:       "2024-1",
		GeneratorVersion:    "go-1",
		RenderTimeout:       15 * time.Second,
		IssuanceLockTTL:     30 * time.Second,
		BatchWorkers:        4,
		VerifyRateThreshold: 30,
		VerifyRateWindow:    time.Minute,
		MaxDBConns:          20,
		OutboxPollInterval:  5 * time.Second,
		OutboxBatchSize:     50,
		OutboxClaimTTL:      time.Minute,
		OutboxMaxRetries:    8,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaTopic != "" {
			cfg.KafkaTopic = f.Dependencies.KafkaTopic
		}
		if f.Certificates.VerificationBaseURL != "" {
			cfg.VerificationBaseURL = f.Certificates.VerificationBaseURL
		}
		if f.Certificates.TemplateVersion != "" {
			cfg.TemplateVersion = f.Certificates.TemplateVersion
		}
		if f.Certificates.SchemaVersion != "" {
			cfg.SchemaVersion = f.Certificates.SchemaVersion
		}
		if f.Certificates.GeneratorVersion != "" {
			cfg.GeneratorVersion = f.Certificates.GeneratorVersion
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.VerificationBaseURL = strings.TrimRight(envOrDefault("VERIFICATION_BASE_URL", cfg.VerificationBaseURL), "/")

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.BatchWorkers = envInt("BATCH_WORKERS", cfg.BatchWorkers)
	cfg.VerifyRateThreshold = envInt("VERIFY_RATE_THRESHOLD", cfg.VerifyRateThreshold)

	cfg.RenderTimeout = time.Duration(envInt("RENDER_TIMEOUT_SECONDS", int(cfg.RenderTimeout.Seconds()))) * time.Second
	cfg.IssuanceLockTTL = time.Duration(envInt("ISSUANCE_LOCK_TTL_SECONDS", int(cfg.IssuanceLockTTL.Seconds()))) * time.Second
	cfg.VerifyRateWindow = time.Duration(envInt("VERIFY_RATE_WINDOW_SECONDS", int(cfg.VerifyRateWindow.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
