// Package logging gates progress and diagnostic output on a process-wide
// verbosity mode.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
)

type Flag int

const (
	Nil Flag = iota
	Progress
	Debug
)

// Mode is set once by the driver; it is read by every package that reports
// progress, so it is not threaded through each call.
var Mode Flag = Nil

var logger = log.New(os.Stderr, "", log.Ltime)

// SetOutput redirects all messages to w.
func SetOutput(w io.Writer) { logger.SetOutput(w) }

// Enabled reports whether messages at level f are printed.
func Enabled(f Flag) bool { return f != Nil && Mode >= f }

// Printf prints a message if the current Mode includes level f.
func Printf(f Flag, format string, args ...any) {
	if Enabled(f) {
		logger.Printf(format, args...)
	}
}

// MemString returns a string containing statistics on the current memory
// usage of the process.
func MemString() string {
	ms := runtime.MemStats{}
	runtime.ReadMemStats(&ms)
	return fmt.Sprintf(
		"Alloc - %d MB; Sys - %d MB Integrated - %d MB",
		ms.Alloc>>20, ms.Sys>>20, ms.TotalAlloc>>20,
	)
}
