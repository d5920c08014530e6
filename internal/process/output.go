package process

import (
	"bytes"
	"log/slog"
	"sync"
)

// maxPending caps a line that never ends; it is logged in pieces.
const maxPending = 4096

// logWriter turns one output stream of a child into debug records, one per
// line.
type logWriter struct {
	logger *slog.Logger
	name   string
	stream string

	mu  sync.Mutex
	buf []byte
}

func newLogWriter(logger *slog.Logger, name, stream string) *logWriter {
	return &logWriter{logger: logger, name: name, stream: stream}
}

func (w *logWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) >= maxPending {
		w.emit(w.buf)
		w.buf = nil
	}
	return len(b), nil
}

// flush logs a trailing line that had no newline.
func (w *logWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *logWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	w.logger.Debug(string(line), "name", w.name, "stream", w.stream)
}
