package queue

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
)

// Job states shared by both consumers
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const defaultProcessingTimeout = 30 * time.Minute

// JobPayload contains the actual job data. DocumentBuffer travels as base64 in JSON.
type JobPayload struct {
	JobID          string `json:"jobId"`
	DocumentPath   string `json:"documentPath,omitempty"`
	DocumentBuffer []byte `json:"documentBuffer,omitempty"`
	DPI            int    `json:"dpi,omitempty"`
	OutputPath     string `json:"outputPath,omitempty"`
}

func timeoutOrDefault(ms int64) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultProcessingTimeout
}

// runJob executes one extraction under ctx and maps a deadline overrun to PROCESSING_TIMEOUT.
func runJob(ctx context.Context, proc processor.DocumentProcessorInterface, payload *JobPayload, timeout time.Duration, logger *logging.Logger) (*processor.ProcessResult, error) {
	start := time.Now()
	logger.Info("Processing job", "job", payload.JobID, "path", payload.DocumentPath, "timeout", timeout)

	result, err := proc.ProcessDocument(ctx, &processor.ProcessRequest{
		JobID:          payload.JobID,
		DocumentPath:   payload.DocumentPath,
		DocumentBuffer: payload.DocumentBuffer,
		DPI:            payload.DPI,
		OutputPath:     payload.OutputPath,
	})

	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.IsCode(err, errors.ErrorProcessingTimeout) {
			return nil, errors.NewProcessingTimeoutError(payload.JobID, timeout, err)
		}
		return nil, err
	}

	logger.Info("Job processed", "job", payload.JobID, "duration", time.Since(start).Round(time.Millisecond))
	return result, nil
}

// withJobID fills in a fresh job ID when the submitter left it empty.
func withJobID(payload JobPayload) JobPayload {
	if payload.JobID == "" {
		payload.JobID = uuid.New().String()
	}
	return payload
}

// retryable reports whether running the job again could succeed. An unreadable
// document or an unwritable output path fails the same way every time.
func retryable(err error) bool {
	return !errors.IsCode(err, errors.ErrorDocumentEmptyOrUnreadable) &&
		!errors.IsCode(err, errors.ErrorReportWriteFailed)
}

// shouldRequeue counts the failed attempt on job and reports whether it goes back on the queue.
func shouldRequeue(job *RedisJobData, err error) bool {
	job.Attempts++
	return retryable(err) && job.Attempts < job.MaxRetries
}

func failureMetadata(err error, attempts int) map[string]interface{} {
	metadata := map[string]interface{}{}
	var pe *errors.ProcessingError
	if stderrors.As(err, &pe) {
		metadata = pe.ToMap()
	}
	metadata["error"] = err.Error()
	metadata["attempts"] = attempts
	return metadata
}

func completionMetadata(res *processor.ProcessResult) map[string]interface{} {
	metadata := map[string]interface{}{
		"processingTime": res.ProcessingTimeMs,
		"reportId":       res.ReportID,
	}
	if res.Report != nil {
		metadata["pageCount"] = res.Report.Summary.PageCount
	}
	return metadata
}

func resultSummary(res *processor.ProcessResult) map[string]interface{} {
	summary := map[string]interface{}{
		"processingTimeMs": res.ProcessingTimeMs,
		"reportId":         res.ReportID,
		"reportPath":       res.ReportPath,
		"summaryPath":      res.SummaryPath,
	}
	if res.Report != nil {
		summary["pageCount"] = res.Report.Summary.PageCount
		summary["stats"] = res.Report.Summary.Stats
	}
	return summary
}
