package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Config selects the level, rendering and destination of the service log.
type Config struct {
	Level  string
	Format string
	// Output is "stdout", "stderr" (or empty) or a file path to append to.
	Output string
}

// DefaultConfig logs INFO and above as JSON to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:  string(InfoLevel),
		Format: string(FormatJSON),
		Output: "stderr",
	}
}

// NewLogger builds a logger from cfg; a nil cfg means DefaultConfig.
// Unknown formats are rejected rather than silently rendered as JSON.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	format := Format(strings.ToLower(strings.TrimSpace(cfg.Format)))
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatText:
	default:
		return nil, fmt.Errorf("logging: unknown format %q (want json or text)", cfg.Format)
	}

	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return NewWithFormat(ParseLevel(cfg.Level), format, output), nil
}

// ParseLevel maps a case-insensitive level name onto LogLevel. WARNING is an
// alias for WARN; anything unknown is INFO.
func ParseLevel(level string) LogLevel {
	l := LogLevel(strings.ToUpper(strings.TrimSpace(level)))
	if l == "WARNING" {
		return WarnLevel
	}
	if _, ok := levelRank[l]; ok {
		return l
	}
	return InfoLevel
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", output, err)
	}
	return f, nil
}
