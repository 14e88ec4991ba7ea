/**
 * Document Processor for the OCR extraction worker
 *
 * Rasterizes a scanned PDF once, runs the page pipeline over every page in
 * ascending order and aggregates the page statistics into a text report.
 */

package processor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/storage"
)

// DocumentProcessorInterface defines the interface for document processing
type DocumentProcessorInterface interface {
	ProcessDocument(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error
}

// ReportStore persists job state and finished reports.
type ReportStore interface {
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
	SaveReport(ctx context.Context, record *storage.ReportRecord) (string, error)
}

// ProcessorConfig holds processor configuration
type ProcessorConfig struct {
	Rasterizer Rasterizer
	Engine     OCREngine
	Effects    []Effect   // defaults to DefaultEffects()
	Strategies []Strategy // defaults to Strategies("chi_sim", "eng")
	DPI        int        // defaults to DefaultDPI

	TempDir            string
	EnhancedSamplePath string

	// Store is optional; without it reports are only written to disk.
	Store ReportStore
}

// ProcessRequest represents a document extraction request
type ProcessRequest struct {
	JobID          string
	DocumentPath   string
	DocumentBuffer []byte // used when DocumentPath is empty
	DPI            int    // overrides ProcessorConfig.DPI when positive
	OutputPath     string // report destination; empty keeps the report in memory only
	SamplePath     string // enhanced page-1 image; defaults to a per-job path derived from EnhancedSamplePath
}

// ProcessResult represents the processing result
type ProcessResult struct {
	JobID            string
	Report           *Report
	ReportPath       string
	SummaryPath      string
	ReportID         string
	ProcessingTimeMs int64
}

// DocumentProcessor handles document processing
type DocumentProcessor struct {
	config     *ProcessorConfig
	rasterizer Rasterizer
	pipeline   *PagePipeline
	store      ReportStore
	logger     *logging.Logger
}

// NewDocumentProcessor creates a new document processor
func NewDocumentProcessor(cfg *ProcessorConfig) (*DocumentProcessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if cfg.Rasterizer == nil {
		return nil, fmt.Errorf("rasterizer is required")
	}

	if cfg.Engine == nil {
		return nil, fmt.Errorf("OCR engine is required")
	}

	if cfg.Effects == nil {
		cfg.Effects = DefaultEffects()
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = Strategies("chi_sim", "eng")
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}

	pipeline := NewPagePipeline(
		NewEnhancer(cfg.Effects),
		NewStrategySelector(cfg.Engine, cfg.Strategies),
	)

	return &DocumentProcessor{
		config:     cfg,
		rasterizer: cfg.Rasterizer,
		pipeline:   pipeline,
		store:      cfg.Store,
		logger:     logging.NewLogger("processor"),
	}, nil
}

// ProcessDocument extracts the text of every page and builds the report.
// An unreadable or page-less document fails with DOCUMENT_EMPTY_OR_UNREADABLE
// and produces no report. Cancellation at any point fails with PROCESSING_TIMEOUT.
// When the report cannot be written to OutputPath the result is still returned
// together with a REPORT_WRITE_FAILED error and nothing is persisted.
func (p *DocumentProcessor) ProcessDocument(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	start := time.Now()
	logger := p.logger.With("job", req.JobID)

	path, cleanup, err := p.resolveDocument(req)
	if err != nil {
		return nil, errors.NewDocumentEmptyOrUnreadableError(req.JobID, req.DocumentPath, err)
	}
	defer cleanup()

	dpi := p.config.DPI
	if req.DPI > 0 {
		dpi = req.DPI
	}

	logger.Info("Starting extraction", "path", path, "dpi", dpi)
	pages, err := p.rasterizer.Rasterize(ctx, path, dpi)
	if err != nil || len(pages) == 0 {
		if err == nil {
			err = fmt.Errorf("rasterizer returned no pages")
		}
		logger.Error("Document rasterization failed", "path", path, "error", err)
		return nil, errors.NewDocumentEmptyOrUnreadableError(req.JobID, path, err)
	}

	samplePath := req.SamplePath
	if samplePath == "" {
		samplePath = SamplePathFor(p.config.EnhancedSamplePath, req.JobID)
	}

	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	results := make([]PageResult, 0, len(pages))
	var total Stats
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewProcessingTimeoutError(req.JobID, time.Since(start), err)
		}

		logger.Info("Processing page", "page", page.Index, "of", len(pages))
		result := p.pipeline.Process(ctx, page, samplePath)
		// a page cut short by cancellation was not fully recognized
		if err := ctx.Err(); err != nil {
			logger.Warn("Extraction interrupted", "page", page.Index, "error", err)
			return nil, errors.NewProcessingTimeoutError(req.JobID, time.Since(start), err)
		}
		total = total.Add(result.Stats)
		results = append(results, result)

		if result.Recognized {
			logger.Info("Page complete", "page", page.Index, "strategy", result.Strategy,
				"chars", result.Stats.TotalChars, "chinese", result.Stats.ChineseChars)
		}
	}

	report := &Report{
		Source: path,
		Summary: Summary{
			Start:     start,
			End:       time.Now(),
			PageCount: len(pages),
			Stats:     total,
		},
		Pages: results,
	}

	result := &ProcessResult{
		JobID:            req.JobID,
		Report:           report,
		ProcessingTimeMs: report.Summary.Elapsed().Milliseconds(),
	}

	logger.Info("Extraction complete", "pages", len(pages), "chars", total.TotalChars,
		"chinese", total.ChineseChars, "elapsed", report.Summary.Elapsed().Round(time.Millisecond))

	if req.OutputPath != "" {
		summaryPath, err := report.WriteFiles(req.OutputPath)
		if err != nil {
			logger.Error("Failed to write report", "path", req.OutputPath, "error", err)
			return result, errors.NewReportWriteError(req.JobID, req.OutputPath, err)
		}
		result.ReportPath = req.OutputPath
		result.SummaryPath = summaryPath
		logger.Info("Report written", "path", req.OutputPath, "summary", summaryPath)
	}

	if p.store != nil {
		reportID, err := p.store.SaveReport(ctx, report.Record(req.JobID))
		if err != nil {
			logger.Warn("Failed to persist report", "error", errors.NewStorageFailedError(req.JobID, err))
		} else {
			result.ReportID = reportID
			logger.Info("Report persisted", "reportId", reportID)
		}
	}

	return result, nil
}

// UpdateJobStatus records job state when a store is configured
func (p *DocumentProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error {
	if p.store == nil {
		return nil
	}

	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Metadata: metadata,
	}

	if metadata != nil {
		if processingTime, ok := metadata["processingTime"].(int64); ok {
			update.ProcessingTimeMs = processingTime
		}
		if pageCount, ok := metadata["pageCount"].(int); ok {
			update.PageCount = pageCount
		}
		if reportID, ok := metadata["reportId"].(string); ok {
			update.ReportID = reportID
		}
		if code, ok := metadata["error_code"].(string); ok {
			update.ErrorCode = code
		}
		if errorMsg, ok := metadata["error"].(string); ok {
			if update.ErrorCode == "" {
				update.ErrorCode = "PROCESSING_ERROR"
			}
			update.ErrorMessage = errorMsg
		}
	}

	return p.store.UpdateJobStatus(ctx, update)
}

// resolveDocument returns a readable path for the request, spilling an
// in-memory document to a temp file that cleanup removes.
func (p *DocumentProcessor) resolveDocument(req *ProcessRequest) (string, func(), error) {
	if req.DocumentPath != "" {
		return req.DocumentPath, func() {}, nil
	}

	if len(req.DocumentBuffer) == 0 {
		return "", nil, fmt.Errorf("no document source provided (path or buffer)")
	}

	f, err := os.CreateTemp(p.config.TempDir, "pdfocr-input-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := f.Write(req.DocumentBuffer); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to spill document buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to spill document buffer: %w", err)
	}

	return f.Name(), cleanup, nil
}
