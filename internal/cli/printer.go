package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// printer writes human output. Colors follow fatih/color, which honors
// NO_COLOR and disables itself when stdout is not a terminal.
type printer struct {
	out io.Writer
	err io.Writer
}

// Success prints a green message with a checkmark prefix.
func (p printer) Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprintln(p.out, msg)
}

// Warning prints a yellow message to stderr.
func (p printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.err, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints an emphasized progress line.
func (p printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

func (p printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Error prints a titled error with suggestions to stderr and returns an
// error for cobra carrying the exit code.
func (p printer) Error(code int, title, explanation string, suggestions ...string) error {
	red.Fprintf(p.err, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(p.err, "\n%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(p.err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(p.err, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(p.err, "  %d. %s\n", i+1, s)
		}
	}
	return &ExitError{Code: code, Msg: title}
}
