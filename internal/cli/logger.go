package cli

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// newLogger builds the desk's console logger. Diagnostics go to stderr so
// the conversation on stdout stays clean.
func newLogger(output io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(output, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	})
	return slog.New(handler)
}
