package slackbot

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-bot/scribe/internal/commands"
)

type fakeRegistry struct {
	known   map[string]bool
	lastReq *commands.Request
	lastCmd string
	reply   string
}

func (f *fakeRegistry) Known(name string) bool { return f.known[name] }

func (f *fakeRegistry) Dispatch(ctx context.Context, name string, req *commands.Request) string {
	f.lastCmd = name
	f.lastReq = req
	return f.reply
}

type fakeReplier struct {
	channel string
	text    string
}

func (f *fakeReplier) Send(channel, text string) error {
	f.channel = channel
	f.text = text
	return nil
}

func newTestHandler(reply string, moderators ...string) (*Handler, *fakeRegistry, *fakeReplier) {
	reg := &fakeRegistry{known: map[string]bool{"sprint": true, "goal": true}, reply: reply}
	rep := &fakeReplier{}
	h := NewHandler(reg, rep, moderators, zerolog.New(os.Stderr))
	return h, reg, rep
}

func TestHandleEvent_SlashCommand(t *testing.T) {
	h, reg, rep := newTestHandler("joined")

	h.HandleEvent(context.Background(), socketmode.Event{
		Type: socketmode.EventTypeSlashCommand,
		Data: slack.SlashCommand{
			Command:   "/sprint",
			Text:      "join 500",
			TeamID:    "T1",
			ChannelID: "C1",
			UserID:    "U1",
		},
	})

	require.NotNil(t, reg.lastReq)
	assert.Equal(t, "sprint", reg.lastCmd)
	assert.Equal(t, []string{"join", "500"}, reg.lastReq.Args)
	assert.Equal(t, "T1", reg.lastReq.Guild)
	assert.False(t, reg.lastReq.Privileged)

	assert.Equal(t, "C1", rep.channel)
	assert.Contains(t, rep.text, "<@U1>")
	assert.Contains(t, rep.text, "joined")
}

func TestHandleEvent_UnknownCommandIgnored(t *testing.T) {
	h, reg, rep := newTestHandler("reply")

	h.HandleEvent(context.Background(), socketmode.Event{
		Type: socketmode.EventTypeSlashCommand,
		Data: slack.SlashCommand{Command: "/weather", Text: "", TeamID: "T1", ChannelID: "C1", UserID: "U1"},
	})

	assert.Nil(t, reg.lastReq)
	assert.Empty(t, rep.channel)
}

func TestHandleEvent_ModeratorIsPrivileged(t *testing.T) {
	h, reg, _ := newTestHandler("done", "UMOD")

	h.HandleEvent(context.Background(), socketmode.Event{
		Type: socketmode.EventTypeSlashCommand,
		Data: slack.SlashCommand{Command: "/sprint", Text: "cancel", TeamID: "T1", ChannelID: "C1", UserID: "UMOD"},
	})

	require.NotNil(t, reg.lastReq)
	assert.True(t, reg.lastReq.Privileged)
}

func TestHandleEvent_EmptyReplyNotPosted(t *testing.T) {
	h, _, rep := newTestHandler("")

	h.HandleEvent(context.Background(), socketmode.Event{
		Type: socketmode.EventTypeSlashCommand,
		Data: slack.SlashCommand{Command: "/sprint", Text: "end", TeamID: "T1", ChannelID: "C1", UserID: "U1"},
	})

	assert.Empty(t, rep.channel)
}

func TestStripMention(t *testing.T) {
	assert.Equal(t, "sprint join 500", stripMention("<@U42> sprint join 500"))
	assert.Equal(t, "goal", stripMention("  goal  "))
	assert.Equal(t, "", stripMention("<@U42>"))
}
