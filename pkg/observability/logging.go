package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string // debug, info, warn, error
	Format  string // json, text
	Service string
	// Output defaults to os.Stdout.
	Output io.Writer
}

const redacted = "[REDACTED]"

// sensitiveKeys never reach the log sink. Adapters log processor bodies and
// request details, which can carry card data and gateway credentials.
var sensitiveKeys = map[string]struct{}{
	"authorization":    {},
	"card_number":      {},
	"pan":              {},
	"cvv":              {},
	"cardsecuritycode": {},
	"expiry_date":      {},
	"integration_key":  {},
	"lite_secret":      {},
	"password":         {},
	"token":            {},
}

// InitLogger builds the process logger, installs it as the slog default and
// returns it. Debug level also records the call site.
func InitLogger(cfg LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: redactAttr,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	slog.SetDefault(logger)
	return logger
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		if strings.EqualFold(level, "warning") {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return l
}
