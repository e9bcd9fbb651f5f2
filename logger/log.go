package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
)

var Logger *slog.Logger

const FilePermission = 0644

func init() {
	// Default logger so packages can log before SetupLogger runs (e.g. in tests).
	SetupLogger(os.Stdout, false)
}

// SetupLogger installs the package logger on the given writer. Verbose
// enables debug-level output.
func SetupLogger(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	Logger = slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// SetupLogWriter returns the writer SetupLogger should use. When logPath is
// empty the writer is stdout; otherwise logs are teed to stdout and the
// file, and the returned file must be closed by the caller.
func SetupLogWriter(logPath string) (io.Writer, *os.File, error) {
	if logPath == "" {
		return os.Stdout, nil, nil
	}

	if dir := filepath.Dir(logPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FilePermission)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return io.MultiWriter(os.Stdout, logFile), logFile, nil
}
