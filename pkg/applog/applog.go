// Package applog sets up the process-wide slog logger once at startup,
// mirroring the shape of the teacher's utils.InitLogger()/GetLogger() pair
// referenced throughout its services and handlers (terminal_service.go,
// router.go), rendered with lmittmann/tint instead of slog's plain text
// handler for a colorized console the way the teacher's own dependency
// graph calls for.
package applog

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

var (
	mu      sync.Mutex
	current *slog.Logger
)

// Init builds the process logger at the given level ("debug", "info",
// "warn", "error"; unrecognized values fall back to "info") and installs it
// as both the package-level logger and slog's default, so library code that
// calls slog.Info directly also goes through the same handler.
func Init(level string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLevel(level),
		TimeFormat: time.Kitchen,
	}))
	current = logger
	slog.SetDefault(logger)
	return logger
}

// Get returns the process logger, initializing it at info level if Init
// hasn't run yet.
func Get() *slog.Logger {
	mu.Lock()
	logger := current
	mu.Unlock()
	if logger == nil {
		return Init("info")
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
