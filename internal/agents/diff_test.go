package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeChangeIdentical(t *testing.T) {
	summary := SummarizeChange("main.go", "same\n", "same\n")
	assert.False(t, summary.Changed())
	assert.Empty(t, summary.Unified)
}

func TestSummarizeChangeCountsLines(t *testing.T) {
	before := "a\nb\nc\n"
	after := "a\nB\nc\nd\n"

	summary := SummarizeChange("file.txt", before, after)
	assert.True(t, summary.Changed())
	assert.Equal(t, 2, summary.AddedLines)
	assert.Equal(t, 1, summary.RemovedLines)

	assert.Contains(t, summary.Unified, "--- a/file.txt")
	assert.Contains(t, summary.Unified, "+++ b/file.txt")
	assert.Contains(t, summary.Unified, "-b")
	assert.Contains(t, summary.Unified, "+B")
	assert.Contains(t, summary.Unified, "+d")
}

func TestSummarizeChangePureAddition(t *testing.T) {
	summary := SummarizeChange("new.go", "", "package main\n")
	assert.Equal(t, 1, summary.AddedLines)
	assert.Equal(t, 0, summary.RemovedLines)
}

func TestColorizePreservesContent(t *testing.T) {
	summary := SummarizeChange("f", "old line\n", "new line\n")
	rendered := summary.Colorize()
	// Color escapes may or may not be present depending on the terminal,
	// but the diff text itself always is.
	assert.Contains(t, rendered, "old line")
	assert.Contains(t, rendered, "new line")
	assert.Equal(t, strings.Count(summary.Unified, "\n"), strings.Count(rendered, "\n"))
}
