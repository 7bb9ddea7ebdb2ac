// Package session drives one authenticated Discord session through its
// whole lifetime: open the gateway connection, wait for the ready event,
// run exactly one action, close the connection on every path.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// New creates an unopened Discord session for the given bot token with
// the intents a tool needs.
func New(token string, intents discordgo.Intent) (*discordgo.Session, error) {
	discord, err := discordgo.New("Bot " + token)
	if err != nil {
		slog.Error("Failed to create discord session", "error", err)
		return nil, err
	}

	discord.Identify.Intents = intents

	return discord, nil
}

// Gateway is the slice of *discordgo.Session the lifecycle needs.
type Gateway interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
}

// Run opens gw, blocks until the gateway signals ready or ctx is
// canceled, invokes action at most once, and closes gw before returning.
// Close runs on every path, including open failures and action errors;
// the action's error is surfaced only after the session is closed.
func Run(ctx context.Context, gw Gateway, action func(ctx context.Context) error) error {
	ready := make(chan struct{})
	var once sync.Once
	remove := gw.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		// Ready can fire again after a gateway reconnect; the action
		// must still run only once.
		once.Do(func() { close(ready) })
	})
	defer remove()

	if err := gw.Open(); err != nil {
		// The handshake may have left a partially opened connection.
		if cerr := gw.Close(); cerr != nil {
			slog.Debug("Close after failed open", "error", cerr)
		}
		return Classify(err)
	}

	var actErr error
	select {
	case <-ready:
		actErr = action(ctx)
	case <-ctx.Done():
		actErr = ctx.Err()
	}

	if err := gw.Close(); err != nil {
		slog.Error("Failed to close discord session", "error", err)
		if actErr == nil {
			actErr = err
		}
	}

	return actErr
}
