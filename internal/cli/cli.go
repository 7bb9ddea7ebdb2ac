// Package cli holds the plumbing shared by the tool binaries: logger
// setup and the mapping from error categories to exit codes.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/config"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/session"
)

// Exit codes shared by all tools. Per-item non-fatal failures never
// change the exit code.
const (
	ExitOK           = 0
	ExitActionFailed = 1
	ExitConfig       = 2
	ExitAuth         = 3
	ExitInterrupted  = 130
)

// InitLogger routes diagnostics to stderr so formatted results on
// stdout stay machine-readable.
func InitLogger() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, config.ErrInvalid):
		return ExitConfig
	case errors.Is(err, session.ErrAuthentication):
		return ExitAuth
	default:
		return ExitActionFailed
	}
}
