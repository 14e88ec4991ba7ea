package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsCodeWalksChain(t *testing.T) {
	inner := NewDocumentUnreadableError("/data/broken.pdf", fmt.Errorf("not a PDF"))
	outer := NewDocumentEmptyOrUnreadableError("job-1", "/data/broken.pdf", inner)
	wrapped := fmt.Errorf("extraction failed: %w", outer)

	assert.True(t, IsCode(wrapped, ErrorDocumentEmptyOrUnreadable))
	assert.True(t, IsCode(wrapped, ErrorDocumentUnreadable))
	assert.False(t, IsCode(wrapped, ErrorProcessingTimeout))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrorDocumentUnreadable))
	assert.False(t, IsCode(nil, ErrorDocumentUnreadable))
}

func TestProcessingErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewReportWriteError("job-1", "/readonly/report.txt", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "REPORT_WRITE_FAILED")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestToMap(t *testing.T) {
	err := NewProcessingTimeoutError("job-1", 30*time.Minute, fmt.Errorf("context deadline exceeded"))
	m := err.ToMap()

	assert.Equal(t, "PROCESSING_TIMEOUT", m["error_code"])
	assert.Equal(t, "30m0s", m["timeout_duration"])
	assert.Equal(t, "context deadline exceeded", m["cause"])

	noCause := NewStorageFailedError("job-1", nil).ToMap()
	assert.NotContains(t, noCause, "cause")
}

func TestRecoverableErrorDetails(t *testing.T) {
	strategy := NewStrategyInvocationError(3, "mixed", fmt.Errorf("crash"))
	assert.Equal(t, ErrorStrategyInvocationFailed, strategy.Code)
	assert.Equal(t, 3, strategy.Details["page"])

	step := NewEnhancementStepError("contrast", 2.2, fmt.Errorf("bad mode"))
	assert.Equal(t, ErrorEnhancementStepFailed, step.Code)
	assert.Equal(t, "contrast", step.Details["effect"])
}
