package main

import (
	"fmt"
	"io"

	"github.com/mlld-lang/mlld-go/internal/errors"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
)

func colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + colorReset
}

// FormatError prints an evaluator error for the terminal, grounded on
// the teacher's cli/errors.go FormatError: typed errors get their
// Kind/Location surfaced, everything else falls back to a plain
// "Error: " line.
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}
	if typed, ok := err.(errors.Typed); ok {
		fmt.Fprintf(w, "%s%s\n", colorize("Error: ", colorRed, useColor), typed.Error())
		return
	}
	fmt.Fprintf(w, "%s%s\n", colorize("Error: ", colorRed, useColor), err.Error())
}
