package ingest

import (
	"fmt"
	"strings"
)

// ErrorLogCap bounds how many record-level errors are kept for display.
const ErrorLogCap = 50

// ErrorLog collects per-record ingestion errors without ever failing the
// run. Entries carry a 1-based line/row number; once the cap is reached new
// entries are counted but dropped.
type ErrorLog struct {
	entries []string
	dropped int
}

func NewErrorLog() *ErrorLog {
	return &ErrorLog{}
}

func (l *ErrorLog) Addf(line int, format string, args ...any) {
	if len(l.entries) >= ErrorLogCap {
		l.dropped++
		return
	}
	l.entries = append(l.entries, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

func (l *ErrorLog) Warnf(format string, args ...any) {
	if len(l.entries) >= ErrorLogCap {
		l.dropped++
		return
	}
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *ErrorLog) Entries() []string {
	return append([]string(nil), l.entries...)
}

func (l *ErrorLog) Len() int {
	return len(l.entries)
}

func (l *ErrorLog) Dropped() int {
	return l.dropped
}

// SchemaError aborts ingestion of a file before any row is processed.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}
