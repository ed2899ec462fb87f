package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const defaultWidth = 40

var (
	infoPrefix  = color.New(color.FgGreen).Sprint("[INFO]")
	errorPrefix = color.New(color.FgRed, color.Bold).Sprint("[ERROR]")
)

func printInfo(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s %s\n", infoPrefix, fmt.Sprintf(format, args...))
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorPrefix, err)
}

// divider returns a line of dashes as wide as the terminal, or defaultWidth
// when stdout is not a terminal.
func divider() string {
	width := defaultWidth
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	return strings.Repeat("-", width)
}
