package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor/models"

	"github.com/bobmcallan/webtools-portal/internal/config"
)

func TestNewLogger_ReturnsNonNil(t *testing.T) {
	logger := NewLoggerFromConfig(config.LoggingConfig{Level: "info", Outputs: []string{"console"}})
	if logger == nil {
		t.Fatal("NewLoggerFromConfig returned nil")
	}
}

func TestNewLogger_FluentAPI(t *testing.T) {
	logger := NewLoggerFromConfig(config.LoggingConfig{Level: "error", Outputs: []string{"console"}})
	logger.Info().Str("key", "value").Msg("test message")
	logger.Warn().Int("count", 42).Msg("warning")
	logger.Error().Err(nil).Msg("error message")
	logger.Debug().Bool("ok", true).Msg("debug")
}

func TestNewLoggerWithOutput_WritesToProvidedWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)
	logger.Info().Str("tag", "video").Msg("tag selected")

	if !strings.Contains(buf.String(), "tag selected") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestNewSilentLogger_DiscardsOutput(t *testing.T) {
	var buf bytes.Buffer
	_ = NewLoggerWithOutput("info", &buf)
	buf.Reset()

	silent := NewSilentLogger()
	silent.Info().Str("key", "value").Msg("should be discarded")
	silent.Error().Msg("should be discarded")

	if buf.Len() != 0 {
		t.Errorf("silent logger leaked output: %q", buf.String())
	}
}

func TestWithCorrelationId_ReturnsNewLogger(t *testing.T) {
	logger := NewSilentLogger()
	scoped := logger.WithCorrelationId("abc-123")
	if scoped == nil || scoped == logger {
		t.Fatal("expected a distinct scoped logger")
	}
	scoped.Info().Msg("scoped message")
}

func TestFileOutputFormat(t *testing.T) {
	cases := map[string]models.OutputFormat{
		"json":   models.OutputFormatJSON,
		" JSON ": models.OutputFormatJSON,
		"text":   models.OutputFormatLogfmt,
		"logfmt": models.OutputFormatLogfmt,
		"":       models.OutputFormatLogfmt,
	}
	for in, want := range cases {
		if got := fileOutputFormat(in); got != want {
			t.Errorf("fileOutputFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileWriterConfig_UsesFormatAndDefaults(t *testing.T) {
	wc := fileWriterConfig(config.LoggingConfig{Format: "json"})

	if wc.OutputType != models.OutputFormatJSON {
		t.Errorf("expected json output, got %q", wc.OutputType)
	}
	if wc.FileName != defaultLogFile {
		t.Errorf("expected default file %s, got %s", defaultLogFile, wc.FileName)
	}
	if wc.MaxSize != defaultLogMaxBytes || wc.MaxBackups != defaultLogBackups {
		t.Errorf("expected default rotation, got %d bytes / %d backups", wc.MaxSize, wc.MaxBackups)
	}

	wc = fileWriterConfig(config.LoggingConfig{FilePath: "/tmp/x.log", MaxSizeMB: 2, MaxBackups: 3})
	if wc.FileName != "/tmp/x.log" || wc.MaxSize != 2*1024*1024 || wc.MaxBackups != 3 {
		t.Errorf("unexpected file writer config: %+v", wc)
	}
}

func TestFormatLine_SortsFields(t *testing.T) {
	line := formatLine(models.LogEvent{
		Level:         log.WarnLevel,
		Message:       "load more failed",
		Fields:        map[string]interface{}{"token": "2", "tag": "video"},
		CorrelationID: "req-1",
		Error:         "refused",
	})

	want := "WARN load more failed tag=video token=2 correlation_id=req-1 error=refused\n"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}
