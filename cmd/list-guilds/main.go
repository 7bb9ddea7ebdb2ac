package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/cli"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/config"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/guilds"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/report"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/session"
)

func main() {
	cli.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}

type flags struct {
	token         string
	format        string
	includeCounts bool
	includeOwner  bool
}

func newCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "list-guilds",
		Short:        "List all Discord guilds (servers) a bot is in",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVar(&f.token, "token", "", "Bot token. If omitted, prompts.")
	cmd.Flags().StringVar(&f.format, "format", "text", "Output format: text, json or csv.")
	cmd.Flags().BoolVar(&f.includeCounts, "include-counts", false, "Include member counts (approximate).")
	cmd.Flags().BoolVar(&f.includeOwner, "include-owner", false, "Include the owner's user ID (one extra lookup per guild).")

	return cmd
}

func run(ctx context.Context, out io.Writer, f flags) error {
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return config.Invalid(err)
	}

	token, err := config.ResolveToken(f.token, os.Stdin)
	if err != nil {
		return err
	}

	discord, err := session.New(token, discordgo.IntentsGuilds)
	if err != nil {
		return err
	}

	opts := guilds.Options{
		IncludeCounts: f.includeCounts,
		IncludeOwner:  f.includeOwner,
	}

	var result *report.Result
	err = session.Run(ctx, discord, func(ctx context.Context) error {
		slog.Info("Logged in", "user", discord.State.User.String(), "id", discord.State.User.ID)
		res, err := guilds.New(discord, opts).Execute(ctx)
		result = res
		return err
	})
	if err != nil {
		return err
	}

	return result.Render(out, format)
}
