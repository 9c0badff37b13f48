package agents

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeSummary reports what a proposed edit does to one file.
type ChangeSummary struct {
	Path         string
	Unified      string
	AddedLines   int
	RemovedLines int
}

// Changed reports whether the edit modifies anything.
func (s ChangeSummary) Changed() bool {
	return s.AddedLines > 0 || s.RemovedLines > 0
}

// SummarizeChange builds a line-level diff between two versions of a text,
// typically the results of two related tasks.
func SummarizeChange(path, before, after string) ChangeSummary {
	summary := ChangeSummary{Path: path}
	if before == after {
		return summary
	}

	dmp := diffmatchpatch.New()
	beforeRunes, afterRunes, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(beforeRunes, afterRunes, false), lines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- a/%s\n+++ b/%s\n", path, path)
	for _, d := range diffs {
		for _, line := range splitDiffLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				out.WriteString("+" + line + "\n")
				summary.AddedLines++
			case diffmatchpatch.DiffDelete:
				out.WriteString("-" + line + "\n")
				summary.RemovedLines++
			case diffmatchpatch.DiffEqual:
				out.WriteString(" " + line + "\n")
			}
		}
	}
	summary.Unified = out.String()
	return summary
}

func splitDiffLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Colorize renders the unified diff with terminal colors. The color package
// disables itself when stdout is not a TTY.
func (s ChangeSummary) Colorize() string {
	if s.Unified == "" {
		return ""
	}
	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	var out strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(s.Unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			out.WriteString(header.Sprint(line))
		case strings.HasPrefix(line, "+"):
			out.WriteString(add.Sprint(line))
		case strings.HasPrefix(line, "-"):
			out.WriteString(del.Sprint(line))
		default:
			out.WriteString(line)
		}
		out.WriteString("\n")
	}
	return out.String()
}
