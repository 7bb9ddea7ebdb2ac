package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/cli"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/config"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/invites"
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
	token          string
	guildID        string
	format         string
	includeRevoked bool
	create         bool
	onlyIfNone     bool
	channelID      string
	maxAge         int
	maxUses        int
	temporary      bool
	unique         bool
	reason         string
}

func newCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:          "list-invites",
		Short:        "List active invite links for a Discord guild, optionally create one",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVar(&f.token, "token", "", "Bot token. If omitted, prompts.")
	cmd.Flags().StringVar(&f.guildID, "guild-id", "", "Target guild (server) ID (prompts if omitted).")
	cmd.Flags().StringVar(&f.format, "format", "text", "Output format: text, json or csv.")
	cmd.Flags().BoolVar(&f.includeRevoked, "include-revoked", false, "Also show invites marked as revoked (API seldom returns these).")
	cmd.Flags().BoolVar(&f.create, "create", false, "Create a new invite.")
	cmd.Flags().BoolVar(&f.onlyIfNone, "only-if-none", false, "With --create, only create if no active invites exist.")
	cmd.Flags().StringVar(&f.channelID, "channel-id", "", "Channel ID to create the invite in. If omitted, tries the system channel or first text channel.")
	cmd.Flags().IntVar(&f.maxAge, "max-age", 0, "Invite lifetime in seconds (0 = never expires).")
	cmd.Flags().IntVar(&f.maxUses, "max-uses", 0, "Max uses (0 = unlimited).")
	cmd.Flags().BoolVar(&f.temporary, "temporary", false, "Grant temporary membership (kicks on disconnect unless a role is added).")
	cmd.Flags().BoolVar(&f.unique, "unique", false, "Always create a unique invite code even if one with similar settings exists.")
	cmd.Flags().StringVar(&f.reason, "reason", "", "Audit log reason for creating the invite.")

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

	guildID, err := config.ResolveID("Guild ID", f.guildID, os.Stdin)
	if err != nil {
		return err
	}

	if f.channelID != "" && !config.ValidSnowflake(f.channelID) {
		return config.Invalid(fmt.Errorf("--channel-id must be a numeric ID, got %q", f.channelID))
	}

	opts := invites.Options{
		GuildID:        guildID,
		IncludeRevoked: f.includeRevoked,
		Create:         f.create,
		OnlyIfNone:     f.onlyIfNone,
		ChannelID:      f.channelID,
		MaxAge:         f.maxAge,
		MaxUses:        f.maxUses,
		Temporary:      f.temporary,
		Unique:         f.unique,
		Reason:         f.reason,
	}
	if err := opts.Validate(); err != nil {
		return config.Invalid(err)
	}

	discord, err := session.New(token, discordgo.IntentsGuilds)
	if err != nil {
		return err
	}

	var result *report.Result
	err = session.Run(ctx, discord, func(ctx context.Context) error {
		slog.Info("Logged in", "user", discord.State.User.String(), "id", discord.State.User.ID)
		res, err := invites.New(discord, opts).Execute(ctx)
		result = res
		return err
	})
	if err != nil {
		return err
	}

	return result.Render(out, format)
}
