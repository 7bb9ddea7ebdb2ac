// Package guilds lists the guilds the authenticated bot belongs to.
package guilds

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/report"
)

// Discord caps the guild listing at 200 per request.
const pageSize = 200

// Session defines the Discord API operations the guild executor needs.
type Session interface {
	UserGuilds(limit int, beforeID, afterID string, withCounts bool, options ...discordgo.RequestOption) ([]*discordgo.UserGuild, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
}

type Options struct {
	// IncludeCounts adds the approximate member count per guild.
	IncludeCounts bool

	// IncludeOwner adds the owner's user ID, one extra lookup per guild.
	IncludeOwner bool
}

// Record is the read-only projection of one guild membership.
type Record struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
}

type Executor struct {
	session Session
	opts    Options
}

func New(s Session, opts Options) *Executor {
	return &Executor{session: s, opts: opts}
}

// Execute pages through the bot's guilds and returns them sorted by
// name. A failed owner lookup leaves the field empty instead of
// aborting the listing.
func (e *Executor) Execute(ctx context.Context) (*report.Result, error) {
	result := &report.Result{
		Columns:      e.columns(),
		EmptyMessage: "No guilds found.",
		Line:         e.textLine,
	}

	var records []Record
	afterID := ""
	for {
		page, err := e.session.UserGuilds(pageSize, "", afterID, e.opts.IncludeCounts)
		if err != nil {
			return nil, fmt.Errorf("list guilds: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, g := range page {
			rec := Record{ID: g.ID, Name: g.Name}
			if e.opts.IncludeCounts {
				rec.MemberCount = g.ApproximateMemberCount
			}
			records = append(records, rec)
		}
		afterID = page[len(page)-1].ID
		if len(page) < pageSize {
			break
		}
	}

	if e.opts.IncludeOwner {
		for i := range records {
			guild, err := e.session.Guild(records[i].ID)
			if err != nil {
				slog.Error("Failed to look up guild owner", "guild_id", records[i].ID, "error", err)
				result.Failures = append(result.Failures,
					fmt.Sprintf("guild %s: owner lookup failed: %v", records[i].ID, err))
				continue
			}
			records[i].OwnerID = guild.OwnerID
		}
	}

	sort.Slice(records, func(i, j int) bool {
		ni, nj := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
		if ni != nj {
			return ni < nj
		}
		return records[i].ID < records[j].ID
	})

	for _, rec := range records {
		row := report.Row{"id": rec.ID, "name": rec.Name}
		if e.opts.IncludeOwner {
			row["owner_id"] = rec.OwnerID
		}
		if e.opts.IncludeCounts {
			row["member_count"] = rec.MemberCount
		}
		result.Rows = append(result.Rows, row)
	}
	if records == nil {
		records = []Record{}
	}
	result.JSONValue = records
	return result, nil
}

func (e *Executor) columns() []string {
	cols := []string{"id", "name"}
	if e.opts.IncludeOwner {
		cols = append(cols, "owner_id")
	}
	if e.opts.IncludeCounts {
		cols = append(cols, "member_count")
	}
	return cols
}

func (e *Executor) textLine(r report.Row) string {
	line := fmt.Sprintf(" • %v (id=%v)", r["name"], r["id"])
	if owner, ok := r["owner_id"].(string); ok && owner != "" {
		line += fmt.Sprintf("  owner_id=%s", owner)
	}
	if count, ok := r["member_count"].(int); ok && count > 0 {
		line += fmt.Sprintf("  member_count=%d", count)
	}
	return line
}
