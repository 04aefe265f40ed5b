// Package monitoring carries process-wide logging and run metrics.
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// WriterLogger returns a Logf-compatible function writing to w with the
// given prefix, or a no-op when w is nil.
func WriterLogger(w io.Writer, prefix string) func(format string, v ...any) {
	if w == nil {
		return func(string, ...any) {}
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds).Printf
}
