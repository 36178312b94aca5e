package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process: human-readable output on
// stderr plus JSON lines appended to logFile when it is not empty. The
// returned closer releases the file.
func Setup(level, logFile string) (zerolog.Logger, io.Closer, error) {
	return SetupWithWriter(level, logFile, os.Stderr)
}

// SetupWithWriter is Setup with the console output sent to console.
func SetupWithWriter(level, logFile string, console io.Writer) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level %q", level)
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: "2006-01-02 15:04:05"}
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		writer = zerolog.MultiLevelWriter(writer, f)
		closer = f
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
