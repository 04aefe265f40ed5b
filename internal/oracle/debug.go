package oracle

import (
	"io"
	"log"
)

var (
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three logging streams for the oracle package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger("[oracle] ", ops)
	diagLogger = newLogger("[oracle] ", diag)
	traceLogger = newLogger("[oracle] ", trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// opsf logs actionable problems: bad selections, decode failures.
func opsf(format string, args ...any) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

// diagf logs per-run summaries: active oracles, abort cause, counts.
func diagf(format string, args ...any) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

// tracef logs per-message dispatch telemetry.
func tracef(format string, args ...any) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
