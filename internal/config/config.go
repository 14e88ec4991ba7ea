/**
 * Configuration for the OCR extraction worker
 *
 * Loads configuration from environment variables (optionally seeded from .env)
 */

package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

const (
	RunModeOnce   = "once"
	RunModeWorker = "worker"

	QueueBackendRedis = "redis"
	QueueBackendAsynq = "asynq"
)

// Config holds worker configuration
type Config struct {
	RunMode string

	// Single-document run
	PDFPath            string
	OutputPath         string
	EnhancedSamplePath string

	// Rasterizer
	RasterDPI    int
	PdftoppmPath string
	TempDir      string

	// Tesseract
	TessdataPrefix    string
	PrimaryLanguage   string
	SecondaryLanguage string
	StrategyTimeoutMs int
	ContrastFactor    float64
	SharpnessFactor   float64
	BrightnessFactor  float64
	SaturationFactor  float64

	// Queue
	RedisURL          string
	QueueBackend      string
	QueueName         string
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds

	// PostgreSQL (optional)
	DatabaseURL string

	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RunMode:            getEnvOrDefault("RUN_MODE", RunModeOnce),
		PDFPath:            getEnvOrDefault("PDF_PATH", ""),
		OutputPath:         getEnvOrDefault("OUTPUT_PATH", "extraction_report.txt"),
		EnhancedSamplePath: getEnvOrDefault("ENHANCED_SAMPLE_PATH", ""),
		RasterDPI:          getEnvAsIntOrDefault("RASTER_DPI", 400),
		PdftoppmPath:       getEnvOrDefault("PDFTOPPM_PATH", "pdftoppm"),
		TempDir:            getEnvOrDefault("TEMP_DIR", os.TempDir()),
		TessdataPrefix:     getEnvOrDefault("TESSDATA_PREFIX", ""),
		PrimaryLanguage:    getEnvOrDefault("OCR_PRIMARY_LANG", "chi_sim"),
		SecondaryLanguage:  getEnvOrDefault("OCR_SECONDARY_LANG", "eng"),
		StrategyTimeoutMs:  getEnvAsIntOrDefault("OCR_STRATEGY_TIMEOUT_MS", 120000), // 2 minutes
		ContrastFactor:     getEnvAsFloatOrDefault("ENHANCE_CONTRAST", 2.2),
		SharpnessFactor:    getEnvAsFloatOrDefault("ENHANCE_SHARPNESS", 1.8),
		BrightnessFactor:   getEnvAsFloatOrDefault("ENHANCE_BRIGHTNESS", 1.1),
		SaturationFactor:   getEnvAsFloatOrDefault("ENHANCE_SATURATION", 1.2),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		QueueBackend:       getEnvOrDefault("QUEUE_BACKEND", QueueBackendRedis),
		QueueName:          getEnvOrDefault("QUEUE_NAME", "pdfocr:jobs"),
		WorkerConcurrency:  getEnvAsIntOrDefault("WORKER_CONCURRENCY", 2),
		ProcessingTimeout:  getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 1800000), // 30 minutes
		DatabaseURL:        getEnvOrDefault("DATABASE_URL", ""),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.RunMode {
	case RunModeOnce:
		if c.PDFPath == "" {
			return fmt.Errorf("PDF_PATH is required in %s mode", RunModeOnce)
		}
	case RunModeWorker:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in %s mode", RunModeWorker)
		}
		if c.QueueBackend != QueueBackendRedis && c.QueueBackend != QueueBackendAsynq {
			return fmt.Errorf("QUEUE_BACKEND must be %q or %q, got %q", QueueBackendRedis, QueueBackendAsynq, c.QueueBackend)
		}
	default:
		return fmt.Errorf("RUN_MODE must be %q or %q, got %q", RunModeOnce, RunModeWorker, c.RunMode)
	}

	if c.RasterDPI < 36 || c.RasterDPI > 1200 {
		return fmt.Errorf("RASTER_DPI must be between 36 and 1200, got %d", c.RasterDPI)
	}

	if c.PrimaryLanguage == "" || c.SecondaryLanguage == "" {
		return fmt.Errorf("OCR_PRIMARY_LANG and OCR_SECONDARY_LANG are required")
	}

	if c.StrategyTimeoutMs < 0 {
		return fmt.Errorf("OCR_STRATEGY_TIMEOUT_MS must not be negative, got %d", c.StrategyTimeoutMs)
	}

	factors := map[string]float64{
		"ENHANCE_CONTRAST":   c.ContrastFactor,
		"ENHANCE_SHARPNESS":  c.SharpnessFactor,
		"ENHANCE_BRIGHTNESS": c.BrightnessFactor,
		"ENHANCE_SATURATION": c.SaturationFactor,
	}
	for key, f := range factors {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return fmt.Errorf("%s must be a finite non-negative number, got %v", key, f)
		}
	}

	if c.ProcessingTimeout <= 0 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be a positive number of milliseconds, got %d", c.ProcessingTimeout)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	return nil
}

// StrategyTimeout is the per-invocation OCR deadline; zero disables it.
func (c *Config) StrategyTimeout() time.Duration {
	return time.Duration(c.StrategyTimeoutMs) * time.Millisecond
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}
