package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Services receive it by injection
// so tests can pass a silent logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
