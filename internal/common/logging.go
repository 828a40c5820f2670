// Package common provides shared utilities for the portal.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const (
	logTimeFormat      = "2006-01-02T15:04:05Z07:00"
	defaultLogFile     = "logs/webtools-portal.log"
	defaultLogMaxBytes = 500 * 1024
	defaultLogBackups  = 20
)

// Logger wraps arbor.ILogger so packages depend on one logging type.
type Logger struct {
	arbor.ILogger
}

// discardWriter drops everything. A silent logger still needs one writer,
// otherwise arbor falls back to the globally registered writers.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// lineWriter renders arbor's JSON events as single text lines on out:
// "LEVEL message key=value ...", keys sorted.
type lineWriter struct {
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}
	if _, err := io.WriteString(w.out, formatLine(evt)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

func formatLine(evt models.LogEvent) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(evt.Level.String()))
	b.WriteByte(' ')
	b.WriteString(evt.Message)

	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, evt.Fields[k])
	}
	if evt.CorrelationID != "" {
		fmt.Fprintf(&b, " correlation_id=%s", evt.CorrelationID)
	}
	if evt.Error != "" {
		fmt.Fprintf(&b, " error=%s", evt.Error)
	}
	b.WriteByte('\n')
	return b.String()
}

// fileOutputFormat maps logging.format to the file writer's encoding.
// "json" keeps structured events; anything else is logfmt.
func fileOutputFormat(format string) models.OutputFormat {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return models.OutputFormatJSON
	}
	return models.OutputFormatLogfmt
}

// NewLoggerFromConfig builds the portal logger. Outputs may name "console"
// (stderr) and "file" (rotating, encoded per logging.format); a memory
// writer is always attached. Unknown outputs are ignored.
func NewLoggerFromConfig(cfg config.LoggingConfig) *Logger {
	level := cfg.Level
	if level == "" {
		level = "info"
	}

	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	l := arbor.NewLogger()
	for _, out := range outputs {
		switch strings.ToLower(strings.TrimSpace(out)) {
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: logTimeFormat,
			})
		case "file":
			l = l.WithFileWriter(fileWriterConfig(cfg))
		}
	}

	l = l.WithMemoryWriter(models.WriterConfiguration{
		Type: models.LogWriterTypeMemory,
	}).WithLevelFromString(level)

	return &Logger{ILogger: l}
}

func fileWriterConfig(cfg config.LoggingConfig) models.WriterConfiguration {
	path := cfg.FilePath
	if path == "" {
		path = defaultLogFile
	}
	maxBytes := int64(cfg.MaxSizeMB) * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = defaultLogMaxBytes
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = defaultLogBackups
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   path,
		MaxSize:    maxBytes,
		MaxBackups: backups,
		TimeFormat: logTimeFormat,
		OutputType: fileOutputFormat(cfg.Format),
	}
}

// NewLoggerWithOutput creates a logger writing text lines to w.
// The terminal UI uses it to keep log lines off the alternate screen.
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	arbor.RegisterWriter(arbor.WRITER_CONSOLE, &lineWriter{out: w, level: log.TraceLevel})

	l := arbor.NewLogger().
		WithMemoryWriter(models.WriterConfiguration{
			Type: models.LogWriterTypeMemory,
		}).
		WithLevelFromString(level)

	return &Logger{ILogger: l}
}

// NewSilentLogger creates a logger that discards all output.
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})}
}

// WithCorrelationId returns a child logger tagging every event with id.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
