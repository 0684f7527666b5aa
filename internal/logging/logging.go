package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default slog logger. The level comes from LOG_LEVEL and
// defaults to errors only. When LOG_FILE is set, output goes to that file
// instead of w; the returned closer releases it.
func Init(w io.Writer) (io.Closer, error) {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))

	var closer io.Closer = nopCloser{}
	if path, ok := os.LookupEnv("LOG_FILE"); ok && path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}

	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
	return closer, nil
}

// ParseLevel maps the LOG_LEVEL spellings onto slog levels.
func ParseLevel(l string) slog.Level {
	switch l {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError // production only shows errors
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
