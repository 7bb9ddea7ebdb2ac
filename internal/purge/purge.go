// Package purge deletes the bot's own messages in the DM channel with a
// target user.
package purge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/NanashiTheNameless/DiscordBotTools/internal/report"
	"github.com/NanashiTheNameless/DiscordBotTools/internal/session"
)

// Discord caps message listing at 100 per request.
const pageSize = 100

// Session defines the Discord API operations the purge executor needs.
// The interface allows testing with a mocked session.
type Session interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

type Options struct {
	// UserID is the user whose DM channel is purged.
	UserID string

	// Sleep is the pause between deletions to stay under rate limits.
	Sleep time.Duration
}

func (o Options) Validate() error {
	var errs []error
	if o.UserID == "" {
		errs = append(errs, errors.New("target user ID is required"))
	}
	if o.Sleep < 0 {
		errs = append(errs, fmt.Errorf("--sleep must not be negative, got %v", o.Sleep))
	}
	return errors.Join(errs...)
}

type Executor struct {
	session Session
	botID   string
	opts    Options
	limiter *rate.Limiter
}

// New builds the executor. botID is the authenticated bot's user ID;
// only messages it authored are ever deleted.
func New(s Session, botID string, opts Options) *Executor {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Sleep > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Sleep), 1)
	}
	return &Executor{session: s, botID: botID, opts: opts, limiter: limiter}
}

// Execute resolves the DM channel and deletes the bot's messages in it,
// oldest first. Per-message deletion failures are counted and skipped.
func (e *Executor) Execute(ctx context.Context) (*report.Result, error) {
	user, err := e.session.User(e.opts.UserID)
	if err != nil {
		if session.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("target user %s not found", e.opts.UserID)
		}
		return nil, fmt.Errorf("fetch user %s: %w", e.opts.UserID, err)
	}

	channel, err := e.session.UserChannelCreate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("could not create or fetch DM channel with %s: %w", user.Username, err)
	}

	slog.Info("Fetching DM history", "user", user.Username, "channel_id", channel.ID)

	result := &report.Result{
		Columns: []string{"deleted", "failed"},
	}

	deleted, failed := 0, 0
	afterID := "0"
	for {
		messages, err := e.session.ChannelMessages(channel.ID, pageSize, "", afterID, "")
		if err != nil {
			return nil, fmt.Errorf("fetch messages in channel %s: %w", channel.ID, err)
		}
		if len(messages) == 0 {
			break
		}

		// Pages come back newest first; the cursor advances past the
		// newest message while deletions walk the page oldest first.
		afterID = messages[0].ID
		for i := len(messages) - 1; i >= 0; i-- {
			msg := messages[i]
			if msg.Author == nil || msg.Author.ID != e.botID {
				continue
			}
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			if err := e.session.ChannelMessageDelete(channel.ID, msg.ID); err != nil {
				failed++
				slog.Error("Failed to delete message", "message_id", msg.ID, "error", err)
				result.Failures = append(result.Failures, deleteFailure(msg.ID, err))
				continue
			}
			deleted++
		}

		if len(messages) < pageSize {
			break
		}
	}

	result.Rows = []report.Row{{"deleted": deleted, "failed": failed}}
	result.JSONValue = stats{Deleted: deleted, Failed: failed}
	result.Line = func(r report.Row) string {
		return fmt.Sprintf("Done. Deleted %d messages. Failed to delete %d messages.", r["deleted"], r["failed"])
	}
	return result, nil
}

type stats struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

func deleteFailure(messageID string, err error) string {
	switch {
	case session.IsStatus(err, http.StatusForbidden):
		return fmt.Sprintf("skipped message %s: forbidden", messageID)
	case session.IsStatus(err, http.StatusNotFound):
		return fmt.Sprintf("skipped message %s: already deleted", messageID)
	default:
		return fmt.Sprintf("skipped message %s: %v", messageID, err)
	}
}
