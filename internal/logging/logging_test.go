package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"dev", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"prod", slog.LevelError},
		{"", slog.LevelError},
		{"nonsense", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInit_WritesToGivenWriter(t *testing.T) {
	req := require.New(t)
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FILE", "")

	var buf bytes.Buffer
	closer, err := Init(&buf)
	req.NoError(err)
	defer closer.Close()

	slog.Info("hello", "room", "default")
	slog.Debug("hidden")

	req.Contains(buf.String(), "msg=hello")
	req.Contains(buf.String(), "room=default")
	req.NotContains(buf.String(), "hidden")
}

func TestInit_LogFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "chat.log")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", path)

	var buf bytes.Buffer
	closer, err := Init(&buf)
	req.NoError(err)

	slog.Debug("to file")
	req.NoError(closer.Close())

	data, err := os.ReadFile(path)
	req.NoError(err)
	req.Contains(string(data), "to file")
	req.Empty(buf.String())
}
