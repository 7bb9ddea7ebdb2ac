// Package invites lists the active invites of a guild and optionally
// creates a new one.
package invites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/report"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/session"
)

const inviteBaseURL = "https://discord.gg/"

// Session defines the Discord API operations the invite executor needs.
type Session interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildInvites(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Invite, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelInviteCreate(channelID string, i discordgo.Invite, options ...discordgo.RequestOption) (*discordgo.Invite, error)
}

type Options struct {
	GuildID string

	// IncludeRevoked keeps invites the API marks revoked in the listing.
	IncludeRevoked bool

	// Create makes a new invite; OnlyIfNone restricts creation to the
	// case where the filtered listing is empty.
	Create     bool
	OnlyIfNone bool

	// ChannelID pins the channel to create the invite in. When empty the
	// guild's system channel or its first text channel is used.
	ChannelID string

	MaxAge    int
	MaxUses   int
	Temporary bool
	Unique    bool

	// Reason is recorded in the guild's audit log on creation.
	Reason string
}

func (o Options) Validate() error {
	var errs []error
	if o.GuildID == "" {
		errs = append(errs, errors.New("target guild ID is required"))
	}
	if o.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("--max-age must not be negative, got %d", o.MaxAge))
	}
	if o.MaxUses < 0 {
		errs = append(errs, fmt.Errorf("--max-uses must not be negative, got %d", o.MaxUses))
	}
	if o.OnlyIfNone && !o.Create {
		errs = append(errs, errors.New("--only-if-none requires --create"))
	}
	return errors.Join(errs...)
}

// Record is the read-only projection of one invite.
type Record struct {
	Code          string `json:"code"`
	URL           string `json:"url"`
	ChannelID     string `json:"channel_id,omitempty"`
	ChannelName   string `json:"channel_name,omitempty"`
	InviterID     string `json:"inviter_id,omitempty"`
	InviterName   string `json:"inviter_name,omitempty"`
	Uses          int    `json:"uses"`
	MaxUses       int    `json:"max_uses"`
	Temporary     bool   `json:"temporary"`
	Revoked       bool   `json:"revoked"`
	MaxAgeSeconds int    `json:"max_age_seconds"`
	CreatedAt     string `json:"created_at,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

type output struct {
	CreatedInvite *Record  `json:"created_invite"`
	Invites       []Record `json:"invites"`
}

type Executor struct {
	session Session
	opts    Options
}

func New(s Session, opts Options) *Executor {
	return &Executor{session: s, opts: opts}
}

// Execute fetches the guild's invites, optionally creates one, and
// returns the filtered, sorted listing.
func (e *Executor) Execute(ctx context.Context) (*report.Result, error) {
	guild, err := e.session.Guild(e.opts.GuildID)
	if err != nil {
		return nil, fmt.Errorf("bot is not in guild %s or cannot access it", e.opts.GuildID)
	}

	result := &report.Result{
		Columns: []string{
			"url", "code", "channel_id", "channel_name",
			"inviter_id", "inviter_name",
			"uses", "max_uses", "temporary", "revoked",
			"max_age_seconds", "created_at", "expires_at",
		},
		EmptyMessage: "No active invites found.",
		Line:         textLine,
	}

	records := e.listInvites(result)

	var created *Record
	if e.opts.Create && (!e.opts.OnlyIfNone || len(records) == 0) {
		created = e.createInvite(guild, result)
		if created != nil {
			records = append(records, *created)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ChannelName != records[j].ChannelName {
			return records[i].ChannelName < records[j].ChannelName
		}
		return records[i].Code < records[j].Code
	})

	for _, rec := range records {
		result.Rows = append(result.Rows, rowFromRecord(rec))
	}
	result.JSONValue = output{CreatedInvite: created, Invites: records}
	return result, nil
}

// listInvites returns the filtered invite records. A Forbidden response
// degrades to an empty listing, anything else is a non-fatal failure.
func (e *Executor) listInvites(result *report.Result) []Record {
	invites, err := e.session.GuildInvites(e.opts.GuildID)
	if err != nil {
		if !session.IsStatus(err, http.StatusForbidden) {
			slog.Error("Failed to fetch invites", "guild_id", e.opts.GuildID, "error", err)
			result.Failures = append(result.Failures, fmt.Sprintf("could not fetch invites: %v", err))
		}
		return nil
	}

	records := make([]Record, 0, len(invites))
	for _, inv := range invites {
		if inv.Revoked && !e.opts.IncludeRevoked {
			continue
		}
		records = append(records, newRecord(inv))
	}
	return records
}

func (e *Executor) createInvite(guild *discordgo.Guild, result *report.Result) *Record {
	channel, err := e.chooseChannel(guild)
	if err != nil {
		slog.Error("Failed to resolve invite channel", "guild_id", guild.ID, "error", err)
		result.Failures = append(result.Failures, fmt.Sprintf("could not resolve a channel to create an invite in: %v", err))
		return nil
	}

	var reqOpts []discordgo.RequestOption
	if e.opts.Reason != "" {
		reqOpts = append(reqOpts, discordgo.WithAuditLogReason(e.opts.Reason))
	}

	inv, err := e.session.ChannelInviteCreate(channel.ID, discordgo.Invite{
		MaxAge:    e.opts.MaxAge,
		MaxUses:   e.opts.MaxUses,
		Temporary: e.opts.Temporary,
		Unique:    e.opts.Unique,
	}, reqOpts...)
	if err != nil {
		if session.IsStatus(err, http.StatusForbidden) {
			result.Failures = append(result.Failures, fmt.Sprintf(
				"forbidden creating invite in #%s (bot needs Create Invite on that channel)", channel.Name))
		} else {
			result.Failures = append(result.Failures, fmt.Sprintf("could not create invite: %v", err))
		}
		slog.Error("Failed to create invite", "channel_id", channel.ID, "error", err)
		return nil
	}

	if inv.Channel == nil {
		inv.Channel = channel
	}
	rec := newRecord(inv)
	result.Notes = append(result.Notes, "Created invite: "+rec.URL)
	return &rec
}

// chooseChannel picks where a new invite lands: the pinned channel if
// given, otherwise the system channel, otherwise the first text channel
// by position.
func (e *Executor) chooseChannel(guild *discordgo.Guild) (*discordgo.Channel, error) {
	if e.opts.ChannelID != "" {
		channel, err := e.session.Channel(e.opts.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", e.opts.ChannelID, err)
		}
		return channel, nil
	}

	channels, err := e.session.GuildChannels(guild.ID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	if guild.SystemChannelID != "" {
		for _, ch := range channels {
			if ch.ID == guild.SystemChannelID {
				return ch, nil
			}
		}
	}

	var text []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			text = append(text, ch)
		}
	}
	sort.Slice(text, func(i, j int) bool {
		if text[i].Position != text[j].Position {
			return text[i].Position < text[j].Position
		}
		return text[i].ID < text[j].ID
	})
	if len(text) > 0 {
		return text[0], nil
	}

	return nil, errors.New("no text channel found")
}

func newRecord(inv *discordgo.Invite) Record {
	rec := Record{
		Code:          inv.Code,
		URL:           inviteBaseURL + inv.Code,
		Uses:          inv.Uses,
		MaxUses:       inv.MaxUses,
		Temporary:     inv.Temporary,
		Revoked:       inv.Revoked,
		MaxAgeSeconds: inv.MaxAge,
	}
	if inv.Channel != nil {
		rec.ChannelID = inv.Channel.ID
		rec.ChannelName = inv.Channel.Name
	}
	if inv.Inviter != nil {
		rec.InviterID = inv.Inviter.ID
		rec.InviterName = inv.Inviter.Username
	}
	if !inv.CreatedAt.IsZero() {
		rec.CreatedAt = inv.CreatedAt.UTC().Format(time.RFC3339)
		if inv.MaxAge > 0 {
			rec.ExpiresAt = inv.CreatedAt.UTC().Add(time.Duration(inv.MaxAge) * time.Second).Format(time.RFC3339)
		}
	}
	return rec
}

func rowFromRecord(rec Record) report.Row {
	return report.Row{
		"url":             rec.URL,
		"code":            rec.Code,
		"channel_id":      rec.ChannelID,
		"channel_name":    rec.ChannelName,
		"inviter_id":      rec.InviterID,
		"inviter_name":    rec.InviterName,
		"uses":            rec.Uses,
		"max_uses":        rec.MaxUses,
		"temporary":       rec.Temporary,
		"revoked":         rec.Revoked,
		"max_age_seconds": rec.MaxAgeSeconds,
		"created_at":      rec.CreatedAt,
		"expires_at":      rec.ExpiresAt,
	}
}

func textLine(r report.Row) string {
	maxUses := "∞"
	if n, ok := r["max_uses"].(int); ok && n > 0 {
		maxUses = fmt.Sprint(n)
	}
	line := fmt.Sprintf(" • %s  channel=%v uses=%v/%s", r["url"], r["channel_name"], r["uses"], maxUses)
	if expires, ok := r["expires_at"].(string); ok && expires != "" {
		line += " expires_at=" + expires
	}
	return line
}
