package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nordstock/invoicepipe/internal/pkg/env"
)

// Config carries every externally supplied setting the pipeline needs.
// Nothing in the processing code reads the environment directly.
type Config struct {
	AppHost string
	AppPort string

	WebhookSecret   string `validate:"required"`
	SignatureHeader string `validate:"required"`

	InputFolder     string `validate:"required,startswith=/"`
	ProcessedFolder string `validate:"required,startswith=/"`
	TemplateFolder  string `validate:"required,startswith=/"`
	InvoiceFolder   string `validate:"required,startswith=/"`

	// SettleDelay is the wait between webhook receipt and folder listing,
	// compensating for eventual-consistency lag in the storage backend.
	SettleDelay time.Duration `validate:"min=0"`

	// HTTPTimeout bounds every download/upload call so a hung remote never
	// blocks an invocation forever.
	HTTPTimeout time.Duration `validate:"gt=0"`

	StoreBackend string `validate:"oneof=s3 memory"`

	// S3Endpoint stays empty for AWS itself; S3-compatible backends
	// (MinIO, Backblaze B2) need it set.
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string `validate:"required_if=StoreBackend s3"`
	S3SecretAccessKey string `validate:"required_if=StoreBackend s3"`
	S3Bucket          string `validate:"required_if=StoreBackend s3"`

	CursorBackend string `validate:"oneof=memory redis"`
	CacheHost     string
	CachePort     string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost:           env.GetEnv("APP_HOST", "0.0.0.0"),
		AppPort:           env.GetEnv("APP_PORT", "3000"),
		WebhookSecret:     env.GetEnv("WEBHOOK_SECRET", ""),
		SignatureHeader:   env.GetEnv("SIGNATURE_HEADER", "X-Dropbox-Signature"),
		InputFolder:       env.GetEnv("INPUT_FOLDER", "/input"),
		ProcessedFolder:   env.GetEnv("PROCESSED_FOLDER", "/processed"),
		TemplateFolder:    env.GetEnv("TEMPLATE_FOLDER", "/templates"),
		InvoiceFolder:     env.GetEnv("INVOICE_FOLDER", "/invoices"),
		SettleDelay:       time.Duration(envInt("SETTLE_DELAY_SECONDS", 4)) * time.Second,
		HTTPTimeout:       time.Duration(envInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		StoreBackend:      env.GetEnv("STORE_BACKEND", "s3"),
		S3Endpoint:        env.GetEnv("S3_ENDPOINT_URL", ""),
		S3Region:          env.GetEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Bucket:          env.GetEnv("S3_BUCKET", ""),
		CursorBackend:     env.GetEnv("CURSOR_BACKEND", "memory"),
		CacheHost:         env.GetEnv("CACHE_HOST", "localhost"),
		CachePort:         env.GetEnv("CACHE_PORT", "6379"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func envInt(key string, def int) int {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
