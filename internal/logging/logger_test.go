package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevLevel := base.Out, base.GetLevel()
	base.SetOutput(&buf)
	t.Cleanup(func() {
		base.SetOutput(prevOut)
		base.SetLevel(prevLevel)
	})
	return &buf
}

func TestLoggerFields(t *testing.T) {
	buf := captureOutput(t)

	NewLogger("rasterizer").With("job", "job-1").Info("Page rasterized", "page", 2, "dangling")

	out := buf.String()
	assert.Contains(t, out, "prefix=rasterizer")
	assert.Contains(t, out, "job=job-1")
	assert.Contains(t, out, "page=2")
	assert.Contains(t, out, `msg="Page rasterized"`)
	assert.NotContains(t, out, "dangling")
}

func TestSetLevel(t *testing.T) {
	buf := captureOutput(t)
	logger := NewLogger("test")

	SetLevel("warn")
	assert.Equal(t, logrus.WarnLevel, Base().GetLevel())
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	SetLevel("nonsense")
	assert.Equal(t, logrus.WarnLevel, Base().GetLevel())

	SetLevel("DEBUG")
	assert.Equal(t, logrus.DebugLevel, Base().GetLevel())
}
