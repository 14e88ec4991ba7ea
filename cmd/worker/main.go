/**
 * PDF OCR Worker - Main Entry Point
 *
 * Extracts text from scanned Chinese/English PDFs.
 *
 * Architecture:
 * - Poppler rasterization of every page at a fixed DPI
 * - Contrast, sharpness, brightness and saturation enhancement per page
 * - Tesseract run under several language strategies, best CJK yield wins
 * - Plain-text report plus a statistics summary file
 *
 * Modes:
 * - once:   process PDF_PATH and exit
 * - worker: consume jobs from Redis (LIST consumer or asynq)
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/adverant/nexus/pdfocr-worker/internal/config"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
	"github.com/adverant/nexus/pdfocr-worker/internal/queue"
	"github.com/adverant/nexus/pdfocr-worker/internal/storage"
)

const previewLines = 8

// consumer is satisfied by both queue backends
type consumer interface {
	Start() error
	Stop() error
}

func main() {
	logger := logging.NewLogger("main")

	if err := godotenv.Load(".env"); err != nil {
		logger.Warn(".env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.LogLevel)

	logger.Info("PDF OCR worker starting",
		"mode", cfg.RunMode,
		"dpi", cfg.RasterDPI,
		"languages", cfg.PrimaryLanguage+"+"+cfg.SecondaryLanguage)

	var store *storage.PostgresClient
	if cfg.DatabaseURL != "" {
		store, err = storage.NewPostgresClient(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		logger.Info("PostgreSQL connected")
	}

	proc, err := newProcessor(cfg, store)
	if err != nil {
		logger.Error("Failed to initialize document processor", "error", err)
		os.Exit(1)
	}

	switch cfg.RunMode {
	case config.RunModeWorker:
		err = runWorker(cfg, proc, logger)
	default:
		err = runOnce(cfg, proc, logger)
	}
	if err != nil {
		if store != nil {
			store.Close()
		}
		os.Exit(1)
	}
}

func newProcessor(cfg *config.Config, store *storage.PostgresClient) (*processor.DocumentProcessor, error) {
	pcfg := &processor.ProcessorConfig{
		Rasterizer: processor.NewPopplerRasterizer(processor.RasterizerConfig{
			PdftoppmPath: cfg.PdftoppmPath,
			TempDir:      cfg.TempDir,
		}),
		Engine: processor.NewTesseractOCR(processor.TesseractConfig{
			TessdataPrefix: cfg.TessdataPrefix,
			DPI:            cfg.RasterDPI,
			Timeout:        cfg.StrategyTimeout(),
		}),
		Effects: processor.Effects(
			cfg.ContrastFactor,
			cfg.SharpnessFactor,
			cfg.BrightnessFactor,
			cfg.SaturationFactor,
		),
		Strategies:         processor.Strategies(cfg.PrimaryLanguage, cfg.SecondaryLanguage),
		DPI:                cfg.RasterDPI,
		TempDir:            cfg.TempDir,
		EnhancedSamplePath: cfg.EnhancedSamplePath,
	}
	if store != nil {
		pcfg.Store = store
	}
	return processor.NewDocumentProcessor(pcfg)
}

func runOnce(cfg *config.Config, proc *processor.DocumentProcessor, logger *logging.Logger) error {
	jobID := uuid.New().String()
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ProcessingTimeout)*time.Millisecond)
	defer cancel()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := proc.ProcessDocument(ctx, &processor.ProcessRequest{
		JobID:        jobID,
		DocumentPath: cfg.PDFPath,
		OutputPath:   cfg.OutputPath,
		SamplePath:   cfg.EnhancedSamplePath,
	})
	if result != nil && result.Report != nil {
		for _, line := range result.Report.Preview(previewLines) {
			logger.Info("Preview", "line", line)
		}
	}
	if err != nil {
		logger.Error("Extraction failed", "job", jobID, "path", cfg.PDFPath, "error", err)
		return err
	}

	logger.Info("Extraction complete",
		"job", jobID,
		"pages", result.Report.Summary.PageCount,
		"report", result.ReportPath,
		"summary", result.SummaryPath,
		"duration_ms", result.ProcessingTimeMs)
	return nil
}

func runWorker(cfg *config.Config, proc *processor.DocumentProcessor, logger *logging.Logger) error {
	var (
		c   consumer
		err error
	)

	switch cfg.QueueBackend {
	case config.QueueBackendAsynq:
		c, err = queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			ProcessingTimeout: int64(cfg.ProcessingTimeout),
		})
	default:
		c, err = queue.NewRedisConsumer(&queue.RedisConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			ProcessingTimeout: int64(cfg.ProcessingTimeout),
		})
	}
	if err != nil {
		logger.Error("Failed to initialize queue consumer", "backend", cfg.QueueBackend, "error", err)
		return err
	}

	if err := c.Start(); err != nil {
		logger.Error("Failed to start queue consumer", "error", err)
		return err
	}

	logger.Info("Worker is ready",
		"backend", cfg.QueueBackend,
		"queue", cfg.QueueName,
		"concurrency", cfg.WorkerConcurrency)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal, initiating graceful shutdown", "signal", sig.String())

	if err := c.Stop(); err != nil {
		logger.Error("Error stopping queue consumer", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
