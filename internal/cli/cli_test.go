package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/config"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/session"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitOK},
		{name: "configuration", err: config.Invalid(errors.New("no token")), want: ExitConfig},
		{name: "authentication", err: fmt.Errorf("%w: 401", session.ErrAuthentication), want: ExitAuth},
		{name: "connectivity", err: fmt.Errorf("%w: refused", session.ErrConnectivity), want: ExitActionFailed},
		{name: "interrupt", err: context.Canceled, want: ExitInterrupted},
		{name: "wrapped interrupt", err: fmt.Errorf("action: %w", context.Canceled), want: ExitInterrupted},
		{name: "action failure", err: errors.New("user not found"), want: ExitActionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
