/**
 * PostgreSQL Client for the OCR extraction worker
 *
 * Persists job status and finished extraction reports.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	ProcessingTimeMs int64
	PageCount        int
	ReportID         string
	ErrorCode        string
	ErrorMessage     string
	Metadata         map[string]interface{}
}

// ReportRecord is a finished report with its summary statistics.
type ReportRecord struct {
	ID           string
	JobID        string
	SourcePath   string
	PageCount    int
	StartedAt    time.Time
	FinishedAt   time.Time
	TotalChars   int
	ChineseChars int
	EnglishChars int
	DigitChars   int
	Lines        int
	Questions    int
	Options      int
	SummaryText  string
	ReportText   string
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// NewPostgresClientFromDB wraps an already opened database handle
func NewPostgresClientFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// UpdateJobStatus upserts the job row, creating it on the first update
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO ocr.extraction_jobs (
			id, status, processing_time_ms, page_count, report_id,
			error_code, error_message, metadata, created_at, updated_at
		) VALUES (
			$1, $2, NULLIF($3, 0), NULLIF($4, 0),
			CASE WHEN $5 = '' THEN NULL ELSE $5::uuid END,
			NULLIF($6, ''), NULLIF($7, ''),
			COALESCE($8::jsonb, '{}'::jsonb),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, ocr.extraction_jobs.processing_time_ms),
			page_count = COALESCE(EXCLUDED.page_count, ocr.extraction_jobs.page_count),
			report_id = COALESCE(EXCLUDED.report_id, ocr.extraction_jobs.report_id),
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			metadata = COALESCE(EXCLUDED.metadata, ocr.extraction_jobs.metadata),
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,            // $1
		update.Status,           // $2
		update.ProcessingTimeMs, // $3
		update.PageCount,        // $4
		update.ReportID,         // $5
		update.ErrorCode,        // $6
		update.ErrorMessage,     // $7
		metadataJSON,            // $8
	).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("job not found: %s", update.JobID)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// SaveReport stores the finished report of a job and returns its ID. A job has
// at most one report (unique job_id); saving again replaces it and keeps the ID.
func (p *PostgresClient) SaveReport(ctx context.Context, record *ReportRecord) (string, error) {
	if record.JobID == "" {
		return "", fmt.Errorf("job ID is required")
	}

	query := `
		INSERT INTO ocr.document_reports (
			job_id, source_path, page_count, started_at, finished_at,
			total_chars, chinese_chars, english_chars, digit_chars,
			lines, questions, options, summary_text, report_text, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (job_id) DO UPDATE SET
			source_path = EXCLUDED.source_path,
			page_count = EXCLUDED.page_count,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			total_chars = EXCLUDED.total_chars,
			chinese_chars = EXCLUDED.chinese_chars,
			english_chars = EXCLUDED.english_chars,
			digit_chars = EXCLUDED.digit_chars,
			lines = EXCLUDED.lines,
			questions = EXCLUDED.questions,
			options = EXCLUDED.options,
			summary_text = EXCLUDED.summary_text,
			report_text = EXCLUDED.report_text
		RETURNING id
	`

	var reportID string
	err := p.db.QueryRowContext(
		ctx,
		query,
		record.JobID,
		record.SourcePath,
		record.PageCount,
		record.StartedAt,
		record.FinishedAt,
		record.TotalChars,
		record.ChineseChars,
		record.EnglishChars,
		record.DigitChars,
		record.Lines,
		record.Questions,
		record.Options,
		record.SummaryText,
		record.ReportText,
	).Scan(&reportID)

	if err != nil {
		return "", fmt.Errorf("failed to store report: %w", err)
	}

	return reportID, nil
}

// GetReport retrieves a report by ID
func (p *PostgresClient) GetReport(ctx context.Context, reportID string) (*ReportRecord, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report ID is required")
	}

	query := `
		SELECT
			id, job_id, source_path, page_count, started_at, finished_at,
			total_chars, chinese_chars, english_chars, digit_chars,
			lines, questions, options, summary_text, report_text
		FROM ocr.document_reports
		WHERE id = $1
	`

	var r ReportRecord
	err := p.db.QueryRowContext(ctx, query, reportID).Scan(
		&r.ID, &r.JobID, &r.SourcePath, &r.PageCount, &r.StartedAt, &r.FinishedAt,
		&r.TotalChars, &r.ChineseChars, &r.EnglishChars, &r.DigitChars,
		&r.Lines, &r.Questions, &r.Options, &r.SummaryText, &r.ReportText,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report not found: %s", reportID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &r, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
