package oracles

import (
	"io"
	"log"
)

var (
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three logging streams for the oracles package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger("[oracles] ", ops)
	diagLogger = newLogger("[oracles] ", diag)
	traceLogger = newLogger("[oracles] ", trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// opsf logs actionable problems: map lookup failures, unusable inputs.
func opsf(format string, args ...any) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

// diagf logs preprocessing and finalization summaries.
func diagf(format string, args ...any) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

// tracef logs per-message oracle state.
func tracef(format string, args ...any) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
