package registry

import (
	"fmt"
	"os"
	"path/filepath"
)

// errorLogBasename is used when the configured error-log path is a directory.
const errorLogBasename = "scrap.logs"

// FailureLedger records identifiers whose processing exhausted all retries.
// The file is append-only across runs; identifiers may repeat between runs.
type FailureLedger struct {
	path string
}

// NewFailureLedger returns a ledger backed by the given file path.
func NewFailureLedger(path string) *FailureLedger {
	return &FailureLedger{path: path}
}

// Append writes one identifier on its own line.
func (l *FailureLedger) Append(cmp string) error {
	return appendLine(l.path, cmp)
}

// Path returns the ledger file location.
func (l *FailureLedger) Path() string { return l.path }

// ErrorLog appends one diagnostic line per failed attempt. It is written for
// operators and never read back by the program.
type ErrorLog struct {
	path  string
	clock Clock
}

// NewErrorLog returns an error log backed by path. When path is a directory
// a fixed filename is used inside it.
func NewErrorLog(path string, clock Clock) *ErrorLog {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ErrorLog{path: path, clock: clock}
}

// Append records a timestamped failure line for the identifier.
func (e *ErrorLog) Append(cmp, reason string) error {
	path := e.path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, errorLogBasename)
	}
	line := fmt.Sprintf("%s CMP %s: %s", e.clock.Now().Format("2006-01-02 15:04:05"), cmp, reason)
	return appendLine(path, line)
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}
