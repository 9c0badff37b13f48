package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"

	"thumbcode/internal/orchestrator"
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func errorBadge(msg string) string {
	return red("error: ") + msg
}

// statusBadge renders a task status with its conventional color.
func statusBadge(status orchestrator.TaskStatus) string {
	switch status {
	case orchestrator.StatusPending:
		return gray(string(status))
	case orchestrator.StatusInProgress:
		return yellow(string(status))
	case orchestrator.StatusCompleted:
		return green(string(status))
	case orchestrator.StatusFailed:
		return red(string(status))
	case orchestrator.StatusCancelled:
		return gray(string(status))
	}
	return string(status)
}

var userCodeBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("12")).
	Padding(1, 4).
	Bold(true)

// renderUserCode draws the device-flow user code in a box the user can read
// across the room.
func renderUserCode(userCode, verificationURI string) string {
	body := fmt.Sprintf("%s\n\n%s", userCode, gray(verificationURI))
	return userCodeBox.Render(body)
}
