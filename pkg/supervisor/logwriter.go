package supervisor

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/socialgouv/companion-launcher/pkg/logger"
)

const (
	streamStdout = "stdout"
	streamStderr = "stderr"
)

// logWriter is an io.Writer that forwards companion output to the logger one line at a time.
// Partial lines are buffered until a newline arrives or Flush is called.
type logWriter struct {
	logger logger.Logger
	stream string

	mu     sync.Mutex
	buffer []byte
}

func newLogWriter(l logger.Logger, stream string) *logWriter {
	return &logWriter{
		logger: l.WithField(logger.FieldStream, stream),
		stream: stream,
	}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer = append(w.buffer, p...)
	for _, line := range w.completeLines() {
		if line != "" {
			w.logLine(line)
		}
	}

	return len(p), nil
}

// completeLines removes every newline-terminated line from the buffer
func (w *logWriter) completeLines() []string {
	var lines []string
	start := 0
	for i, b := range w.buffer {
		if b == '\n' {
			lines = append(lines, strings.TrimSuffix(string(w.buffer[start:i]), "\r"))
			start = i + 1
		}
	}
	if start > 0 {
		w.buffer = w.buffer[start:]
	}
	return lines
}

// logLine logs structured JSON lines with their own level and message, anything else as text
func (w *logWriter) logLine(line string) {
	var entry map[string]interface{}
	if strings.HasPrefix(line, "{") && json.Unmarshal([]byte(line), &entry) == nil {
		w.logStructured(entry)
		return
	}

	if w.stream == streamStderr {
		w.logger.Warn(line)
	} else {
		w.logger.Info(line)
	}
}

func (w *logWriter) logStructured(entry map[string]interface{}) {
	fields := make(map[string]interface{}, len(entry))
	for k, v := range entry {
		if k == "msg" || k == "message" || k == "level" {
			continue
		}
		fields["companion."+k] = v
	}
	entryLogger := w.logger.WithFields(fields)

	message, _ := entry["msg"].(string)
	if message == "" {
		message, _ = entry["message"].(string)
	}

	switch jsonLevel(entry["level"]) {
	case "debug", "trace":
		entryLogger.Debug(message)
	case "warn", "warning":
		entryLogger.Warn(message)
	case "error", "fatal":
		entryLogger.Error(message)
	default:
		entryLogger.Info(message)
	}
}

// jsonLevel normalises string levels and pino's numeric levels
func jsonLevel(v interface{}) string {
	switch level := v.(type) {
	case string:
		return strings.ToLower(level)
	case float64:
		switch {
		case level <= 10:
			return "trace"
		case level <= 20:
			return "debug"
		case level <= 30:
			return "info"
		case level <= 40:
			return "warn"
		case level <= 50:
			return "error"
		default:
			return "fatal"
		}
	}
	return "info"
}

// Flush logs whatever partial line is still buffered
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buffer) > 0 {
		w.logger.WithField("incomplete", true).Info(string(w.buffer))
		w.buffer = nil
	}
}
