package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger_ValidLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.level, "text")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			logger := GetLogger()
			if logger == nil {
				t.Fatal("GetLogger() returned nil")
			}

			level, _ := ParseLevel(tt.level)
			if level != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, level, tt.want)
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger("invalid", "text")
	if err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestInitLogger_InvalidFormat(t *testing.T) {
	err := InitLogger("info", "xml")
	if err == nil {
		t.Error("expected error for invalid log format, got nil")
	}
}

func TestInitLoggerWithWriter(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := InitLoggerWithWriter(&buf, "info", ""); err != nil {
			t.Fatal(err)
		}
		GetLogger().Debug("hidden")
		GetLogger().Info("entity spawned", "script", "fan")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Error("debug message should be filtered at info level")
		}
		if !strings.Contains(out, "msg=\"entity spawned\"") || !strings.Contains(out, "script=fan") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := InitLoggerWithWriter(&buf, "debug", "json"); err != nil {
			t.Fatal(err)
		}
		GetLogger().Debug("tick", "n", 3)

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
		}
		if rec["msg"] != "tick" || rec["n"] != float64(3) {
			t.Errorf("record = %v", rec)
		}
	})
}

func TestGetLogger_BeforeInit(t *testing.T) {
	// globalLoggerをリセット
	globalLogger = nil

	logger := GetLogger()
	if logger == nil {
		t.Error("GetLogger() should return default logger when not initialized")
	}

	// デフォルトロガーが返されることを確認
	if logger != slog.Default() {
		t.Error("GetLogger() should return slog.Default() when not initialized")
	}
}

func TestGetLogger_AfterInit(t *testing.T) {
	err := InitLogger("info", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger := GetLogger()
	if logger == nil {
		t.Error("GetLogger() returned nil after initialization")
	}

	if logger != globalLogger {
		t.Error("GetLogger() should return the initialized logger")
	}
}
