package purge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	botID    = "100"
	targetID = "200"
	dmID     = "300"
)

// Mock Discord session
type mockSession struct {
	userFunc          func(id string) (*discordgo.User, error)
	channelCreateFunc func(recipientID string) (*discordgo.Channel, error)
	deleteFunc        func(channelID, messageID string) error

	history    []*discordgo.Message // ascending by ID
	deletedIDs []string
}

func (m *mockSession) User(id string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	if m.userFunc != nil {
		return m.userFunc(id)
	}
	return &discordgo.User{ID: id, Username: "target"}, nil
}

func (m *mockSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.channelCreateFunc != nil {
		return m.channelCreateFunc(recipientID)
	}
	return &discordgo.Channel{ID: dmID, Type: discordgo.ChannelTypeDM}, nil
}

// ChannelMessages mimics the Discord API: with an after cursor it returns
// the oldest messages past the cursor, newest first within the page.
func (m *mockSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	after, _ := strconv.Atoi(afterID)

	var page []*discordgo.Message
	for _, msg := range m.history {
		id, _ := strconv.Atoi(msg.ID)
		if id > after {
			page = append(page, msg)
		}
		if len(page) == limit {
			break
		}
	}
	sort.Slice(page, func(i, j int) bool {
		a, _ := strconv.Atoi(page[i].ID)
		b, _ := strconv.Atoi(page[j].ID)
		return a > b
	})
	return page, nil
}

func (m *mockSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	if m.deleteFunc != nil {
		if err := m.deleteFunc(channelID, messageID); err != nil {
			return err
		}
	}
	m.deletedIDs = append(m.deletedIDs, messageID)
	return nil
}

func message(id int, authorID string) *discordgo.Message {
	return &discordgo.Message{
		ID:     strconv.Itoa(id),
		Author: &discordgo.User{ID: authorID},
	}
}

func restError(status int) error {
	return &discordgo.RESTError{
		Response: &http.Response{
			StatusCode: status,
			Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		},
	}
}

func TestExecute_DeletesOnlyBotMessages(t *testing.T) {
	session := &mockSession{
		history: []*discordgo.Message{
			message(1, botID),
			message(2, targetID),
			message(3, botID),
			message(4, targetID),
			message(5, botID),
		},
	}

	result, err := New(session, botID, Options{UserID: targetID}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	wantOrder := []string{"1", "3", "5"}
	if len(session.deletedIDs) != len(wantOrder) {
		t.Fatalf("deleted %d messages, want %d: %v", len(session.deletedIDs), len(wantOrder), session.deletedIDs)
	}
	for i, id := range wantOrder {
		if session.deletedIDs[i] != id {
			t.Errorf("deletion %d = message %s, want %s (oldest first)", i, session.deletedIDs[i], id)
		}
	}

	row := result.Rows[0]
	if row["deleted"] != 3 || row["failed"] != 0 {
		t.Errorf("reported deleted=%v failed=%v, want 3/0", row["deleted"], row["failed"])
	}
}

func TestExecute_Pagination(t *testing.T) {
	session := &mockSession{}
	for i := 1; i <= 250; i++ {
		session.history = append(session.history, message(i, botID))
	}

	result, err := New(session, botID, Options{UserID: targetID}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(session.deletedIDs) != 250 {
		t.Fatalf("deleted %d messages, want 250", len(session.deletedIDs))
	}
	if session.deletedIDs[0] != "1" || session.deletedIDs[249] != "250" {
		t.Errorf("deletion order not oldest first: first=%s last=%s", session.deletedIDs[0], session.deletedIDs[249])
	}
	if result.Rows[0]["deleted"] != 250 {
		t.Errorf("reported deleted=%v, want 250", result.Rows[0]["deleted"])
	}
}

func TestExecute_DeleteFailureIsNonFatal(t *testing.T) {
	session := &mockSession{
		history: []*discordgo.Message{
			message(1, botID),
			message(2, botID),
			message(3, botID),
		},
		deleteFunc: func(channelID, messageID string) error {
			if messageID == "2" {
				return restError(http.StatusNotFound)
			}
			return nil
		},
	}

	result, err := New(session, botID, Options{UserID: targetID}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	row := result.Rows[0]
	if row["deleted"] != 2 || row["failed"] != 1 {
		t.Errorf("reported deleted=%v failed=%v, want 2/1", row["deleted"], row["failed"])
	}
	if len(result.Failures) != 1 {
		t.Fatalf("recorded %d failures, want 1", len(result.Failures))
	}
	if want := "skipped message 2: already deleted"; result.Failures[0] != want {
		t.Errorf("failure = %q, want %q", result.Failures[0], want)
	}
}

func TestExecute_UserNotFound(t *testing.T) {
	session := &mockSession{
		userFunc: func(id string) (*discordgo.User, error) {
			return nil, restError(http.StatusNotFound)
		},
	}

	_, err := New(session, botID, Options{UserID: targetID}).Execute(context.Background())
	if err == nil {
		t.Fatal("Execute succeeded, want error")
	}
	if len(session.deletedIDs) != 0 {
		t.Errorf("deleted %d messages despite missing user", len(session.deletedIDs))
	}
}

func TestExecute_DMChannelError(t *testing.T) {
	session := &mockSession{
		channelCreateFunc: func(recipientID string) (*discordgo.Channel, error) {
			return nil, restError(http.StatusForbidden)
		},
	}

	_, err := New(session, botID, Options{UserID: targetID}).Execute(context.Background())
	if err == nil {
		t.Fatal("Execute succeeded, want error")
	}
}

func TestExecute_Canceled(t *testing.T) {
	session := &mockSession{
		history: []*discordgo.Message{message(1, botID)},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(session, botID, Options{UserID: targetID}).Execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute error = %v, want context.Canceled", err)
	}
	if len(session.deletedIDs) != 0 {
		t.Errorf("deleted %d messages despite cancellation", len(session.deletedIDs))
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "valid", opts: Options{UserID: targetID, Sleep: 300 * time.Millisecond}},
		{name: "zero sleep", opts: Options{UserID: targetID}},
		{name: "missing user", opts: Options{}, wantErr: true},
		{name: "negative sleep", opts: Options{UserID: targetID, Sleep: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate succeeded, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate returned error: %v", err)
			}
		})
	}
}
