package app

import (
	"log/slog"
	"os"

	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

// NewLogger returns the JSON logger shared by the portal binaries. LOG_LEVEL=debug enables debug output.
func NewLogger() logx.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	base := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	return logx.NewSlogAdapter(base)
}
