package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"xyzzy", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestInitLogger_ServiceAttributeAndDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "info", Format: "json", Service: "paymentd", Output: &buf})

	if logger.Handler() != slog.Default().Handler() {
		t.Error("InitLogger did not set the default logger")
	}

	logger.Info("payment attempt", "gateway", "cash")
	entry := decodeLine(t, &buf)
	if entry["service"] != "paymentd" {
		t.Errorf("service = %v, want paymentd", entry["service"])
	}
	if entry["gateway"] != "cash" {
		t.Errorf("gateway = %v, want cash", entry["gateway"])
	}
	if _, ok := entry["source"]; ok {
		t.Error("source recorded at info level")
	}
}

func TestInitLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if !bytes.Contains(buf.Bytes(), []byte("kept")) {
		t.Errorf("warn line missing: %q", buf.String())
	}
}

func TestInitLogger_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(LogConfig{Level: "debug", Format: "json", Output: &buf}).Debug("trace")

	if _, ok := decodeLine(t, &buf)["source"]; !ok {
		t.Error("source missing at debug level")
	}
}

func TestInitLogger_RedactsSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	logger.Info("iveri request",
		"card_number", "4111111111111111",
		"CVV", "123",
		"integration_key", "k-secret",
		"card_last4", "1111",
	)

	entry := decodeLine(t, &buf)
	for _, key := range []string{"card_number", "CVV", "integration_key"} {
		if entry[key] != redacted {
			t.Errorf("%s = %v, want %s", key, entry[key], redacted)
		}
	}
	if entry["card_last4"] != "1111" {
		t.Errorf("card_last4 = %v, want 1111", entry["card_last4"])
	}
}
