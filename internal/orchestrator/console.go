package orchestrator

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	messageStyle = lipgloss.NewStyle().Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

// console writes build progress for a human reader.
type console struct {
	w io.Writer
}

func (c console) printf(style lipgloss.Style, format string, args ...any) {
	if c.w == nil {
		return
	}
	_, _ = fmt.Fprintln(c.w, style.Render(fmt.Sprintf(format, args...)))
}

func (c console) workingDirectory(dir string) {
	c.printf(commandStyle, "[Compiling in %s]", dir)
}

func (c console) message(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	c.printf(messageStyle, "%s", msg)
}

func (c console) command(line string) {
	c.printf(commandStyle, "$ %s", line)
}

func (c console) output(out string) {
	if c.w == nil || out == "" {
		return
	}
	_, _ = fmt.Fprintln(c.w, out)
}

func (c console) failure(format string, args ...any) {
	c.printf(failStyle, format, args...)
}

func (c console) summary(r *Report) {
	switch r.Outcome {
	case OutcomeSuccess:
		c.printf(okStyle, "[Done in %.1fs]", r.Duration().Seconds())
	case OutcomeFailed:
		c.printf(failStyle, "[Finished with %d failed step(s) in %.1fs]", r.FailedSteps(), r.Duration().Seconds())
	default:
		c.printf(failStyle, "[Aborted: %v]", r.Err)
	}
}
