package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/cli"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/config"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/purge"
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
	token  string
	userID string
	sleep  float64
	format string
}

func newCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "purge-dms",
		Short:        "Delete this bot's messages in the DM channel with a specific user",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVar(&f.token, "token", "", "Bot token. If omitted, prompts.")
	cmd.Flags().StringVar(&f.userID, "user-id", "", "Target user ID (prompts if omitted).")
	cmd.Flags().Float64Var(&f.sleep, "sleep", 0.3, "Delay (seconds) between deletions to avoid rate limits.")
	cmd.Flags().StringVar(&f.format, "format", "text", "Output format: text, json or csv.")

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

	userID, err := config.ResolveID("Target user ID", f.userID, os.Stdin)
	if err != nil {
		return err
	}

	opts := purge.Options{
		UserID: userID,
		Sleep:  time.Duration(f.sleep * float64(time.Second)),
	}
	if err := opts.Validate(); err != nil {
		return config.Invalid(err)
	}

	discord, err := session.New(token, discordgo.IntentsGuildMessages|discordgo.IntentsDirectMessages)
	if err != nil {
		return err
	}

	var result *report.Result
	err = session.Run(ctx, discord, func(ctx context.Context) error {
		slog.Info("Logged in", "user", discord.State.User.String(), "id", discord.State.User.ID)
		res, err := purge.New(discord, discord.State.User.ID, opts).Execute(ctx)
		result = res
		return err
	})
	if err != nil {
		return err
	}

	return result.Render(out, format)
}
