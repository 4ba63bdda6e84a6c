package ui

import (
	"sync"
	"time"
)

// LineWriter is an io.Writer that splits subprocess output into
// timestamped lines and forwards them to the console. Lines arriving
// before a consumer attaches are buffered, so no early subprocess
// output is lost.
type LineWriter struct {
	mu         sync.Mutex
	buffer     []byte
	pending    []string
	send       func(line string)
	timeFormat string
}

// NewLineWriter creates a line writer with no consumer attached yet.
func NewLineWriter() *LineWriter {
	return &LineWriter{
		timeFormat: "15:04:05",
	}
}

// Attach sets the consumer and flushes any buffered lines to it.
func (w *LineWriter) Attach(send func(line string)) {
	w.mu.Lock()
	w.send = send
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	for _, line := range pending {
		send(line)
	}
}

// Write implements io.Writer
func (w *LineWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Append to buffer
	w.buffer = append(w.buffer, p...)

	// Process complete lines
	for {
		newlineIdx := -1
		for i, b := range w.buffer {
			if b == '\n' {
				newlineIdx = i
				break
			}
		}
		if newlineIdx == -1 {
			break
		}

		line := string(w.buffer[:newlineIdx])
		w.buffer = w.buffer[newlineIdx+1:]

		// Strip trailing carriage return (Windows line endings)
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		w.emit(line)
	}

	return len(p), nil
}

// Flush emits any incomplete trailing line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buffer) > 0 {
		w.emit(string(w.buffer))
		w.buffer = nil
	}
}

// emit forwards one line, timestamped. Caller holds the lock.
func (w *LineWriter) emit(line string) {
	formatted := "[" + time.Now().Format(w.timeFormat) + "] " + line
	if w.send != nil {
		w.send(formatted)
	} else {
		w.pending = append(w.pending, formatted)
	}
}
