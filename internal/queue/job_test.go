package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
	"github.com/adverant/nexus/pdfocr-worker/internal/processor"
)

type fakeProcessor struct {
	process  func(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error)
	requests []*processor.ProcessRequest
	statuses []string
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error) {
	f.requests = append(f.requests, req)
	return f.process(ctx, req)
}

func (f *fakeProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, metadata map[string]interface{}) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func TestJobPayloadDecoding(t *testing.T) {
	raw := `{"jobId":"job-1","documentPath":"/data/exam.pdf","dpi":300,"outputPath":"/out/report.txt"}`

	var payload JobPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, "job-1", payload.JobID)
	assert.Equal(t, "/data/exam.pdf", payload.DocumentPath)
	assert.Equal(t, 300, payload.DPI)
	assert.Equal(t, "/out/report.txt", payload.OutputPath)
	assert.Empty(t, payload.DocumentBuffer)
}

func TestRedisJobDataDecoding(t *testing.T) {
	raw := `{"id":"r-1","type":"extract","payload":{"documentBuffer":"JVBERi0="},"attempts":1,"maxRetries":3}`

	var job RedisJobData
	require.NoError(t, json.Unmarshal([]byte(raw), &job))

	assert.Equal(t, "r-1", job.ID)
	assert.Equal(t, []byte("%PDF-"), job.Payload.DocumentBuffer)
	assert.Equal(t, 3, job.MaxRetries)
}

func TestNewExtractTask(t *testing.T) {
	task, err := NewExtractTask(JobPayload{JobID: "job-1", DocumentPath: "/data/exam.pdf"})
	require.NoError(t, err)
	assert.Equal(t, TypeExtractDocument, task.Type())

	var decoded JobPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, "/data/exam.pdf", decoded.DocumentPath)

	_, err = NewExtractTask(JobPayload{DocumentPath: "/data/exam.pdf"})
	assert.Error(t, err)

	_, err = NewExtractTask(JobPayload{JobID: "job-2"})
	assert.Error(t, err)
}

func TestTimeoutOrDefault(t *testing.T) {
	assert.Equal(t, defaultProcessingTimeout, timeoutOrDefault(0))
	assert.Equal(t, 1500*time.Millisecond, timeoutOrDefault(1500))
}

func TestRunJobPassesRequest(t *testing.T) {
	proc := &fakeProcessor{
		process: func(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error) {
			return &processor.ProcessResult{JobID: req.JobID, ProcessingTimeMs: 42}, nil
		},
	}
	payload := &JobPayload{JobID: "job-1", DocumentPath: "/data/exam.pdf", DPI: 300, OutputPath: "out.txt"}

	result, err := runJob(context.Background(), proc, payload, time.Minute, logging.NewLogger("test"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.ProcessingTimeMs)

	require.Len(t, proc.requests, 1)
	req := proc.requests[0]
	assert.Equal(t, "job-1", req.JobID)
	assert.Equal(t, "/data/exam.pdf", req.DocumentPath)
	assert.Equal(t, 300, req.DPI)
	assert.Equal(t, "out.txt", req.OutputPath)
}

func TestRunJobTimeout(t *testing.T) {
	proc := &fakeProcessor{
		process: func(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := runJob(ctx, proc, &JobPayload{JobID: "job-1"}, 10*time.Millisecond, logging.NewLogger("test"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrorProcessingTimeout))
}

func TestRunJobKeepsDocumentError(t *testing.T) {
	docErr := errors.NewDocumentEmptyOrUnreadableError("job-1", "/missing.pdf", fmt.Errorf("no such file"))
	proc := &fakeProcessor{
		process: func(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error) {
			return nil, docErr
		},
	}

	_, err := runJob(context.Background(), proc, &JobPayload{JobID: "job-1"}, time.Minute, logging.NewLogger("test"))
	assert.Same(t, docErr, err)
}

func TestFailureMetadata(t *testing.T) {
	err := errors.NewDocumentEmptyOrUnreadableError("job-1", "/missing.pdf", fmt.Errorf("no such file"))
	metadata := failureMetadata(err, 2)

	assert.Equal(t, "DOCUMENT_EMPTY_OR_UNREADABLE", metadata["error_code"])
	assert.Equal(t, "/missing.pdf", metadata["document_path"])
	assert.Equal(t, err.Error(), metadata["error"])
	assert.Equal(t, 2, metadata["attempts"])

	plain := failureMetadata(fmt.Errorf("boom"), 1)
	assert.Equal(t, "boom", plain["error"])
	assert.NotContains(t, plain, "error_code")
}

func TestCompletionMetadata(t *testing.T) {
	res := &processor.ProcessResult{
		ProcessingTimeMs: 1200,
		ReportID:         "rep-1",
		Report:           &processor.Report{Summary: processor.Summary{PageCount: 3}},
	}

	metadata := completionMetadata(res)
	assert.Equal(t, int64(1200), metadata["processingTime"])
	assert.Equal(t, 3, metadata["pageCount"])
	assert.Equal(t, "rep-1", metadata["reportId"])

	summary := resultSummary(res)
	assert.Equal(t, 3, summary["pageCount"])
	assert.Contains(t, summary, "stats")
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unreadable document", err: errors.NewDocumentEmptyOrUnreadableError("job-1", "/a.pdf", fmt.Errorf("no pages")), want: false},
		{name: "unwritable output", err: errors.NewReportWriteError("job-1", "/ro/report.txt", fmt.Errorf("read-only file system")), want: false},
		{name: "wrapped unwritable output", err: fmt.Errorf("job failed: %w", errors.NewReportWriteError("job-1", "/ro/report.txt", nil)), want: false},
		{name: "timeout", err: errors.NewProcessingTimeoutError("job-1", time.Minute, context.DeadlineExceeded), want: true},
		{name: "plain error", err: fmt.Errorf("connection reset"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}

func TestShouldRequeue(t *testing.T) {
	transient := fmt.Errorf("connection reset")

	job := &RedisJobData{ID: "r-1", MaxRetries: 3}
	assert.True(t, shouldRequeue(job, transient))
	assert.True(t, shouldRequeue(job, transient))
	assert.False(t, shouldRequeue(job, transient), "third failure exhausts retries")
	assert.Equal(t, 3, job.Attempts)

	unreadable := &RedisJobData{ID: "r-2", MaxRetries: 3}
	assert.False(t, shouldRequeue(unreadable, errors.NewDocumentEmptyOrUnreadableError("r-2", "/a.pdf", nil)))
	assert.Equal(t, 1, unreadable.Attempts)

	unwritable := &RedisJobData{ID: "r-3", MaxRetries: 3}
	assert.False(t, shouldRequeue(unwritable, errors.NewReportWriteError("r-3", "/ro/report.txt", nil)))

	noRetries := &RedisJobData{ID: "r-4"}
	assert.False(t, shouldRequeue(noRetries, transient))

	metadata := failureMetadata(transient, unreadable.Attempts)
	assert.Equal(t, 1, metadata["attempts"])
}

func TestWithJobID(t *testing.T) {
	generated := withJobID(JobPayload{DocumentPath: "/data/exam.pdf"})
	assert.Len(t, generated.JobID, 36)
	assert.Equal(t, "/data/exam.pdf", generated.DocumentPath)

	other := withJobID(JobPayload{DocumentPath: "/data/exam.pdf"})
	assert.NotEqual(t, generated.JobID, other.JobID)

	kept := withJobID(JobPayload{JobID: "job-1"})
	assert.Equal(t, "job-1", kept.JobID)

	_, err := NewExtractTask(withJobID(JobPayload{DocumentPath: "/data/exam.pdf"}))
	assert.NoError(t, err)
}
