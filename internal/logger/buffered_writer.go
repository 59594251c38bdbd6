package logger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
)

// DefaultBufferSize is the buffer size for log file writes
const DefaultBufferSize = 32 * 1024

// LogFilePermissions is the permission mode for newly created log files
const LogFilePermissions = 0o600

// ErrWriterClosed is returned when writing to a closed BufferedFileWriter
var ErrWriterClosed = errors.New("log writer is closed")

// BufferedFileWriter wraps a file with buffered I/O and is safe for
// concurrent use. Data reaches the file on Flush and Close only.
type BufferedFileWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// NewBufferedFileWriter opens filePath in append mode behind a buffer.
func NewBufferedFileWriter(filePath string) (*BufferedFileWriter, error) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from user config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}

	return &BufferedFileWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, DefaultBufferSize),
	}, nil
}

// Write implements io.Writer
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrWriterClosed
	}
	return w.writer.Write(p)
}

// Flush writes buffered data to the file
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	return w.writer.Flush()
}

// Close flushes, syncs and closes the underlying file. Calling Close more
// than once is safe.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := w.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	return errors.Join(errs...)
}
