package slackbot

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/scribe-bot/scribe/internal/commands"
)

// Dispatcher routes a named command invocation to a reply. Satisfied by
// *commands.Registry.
type Dispatcher interface {
	Known(name string) bool
	Dispatch(ctx context.Context, name string, req *commands.Request) string
}

// Replier posts replies back to the channel an invocation came from.
type Replier interface {
	Send(channel, text string) error
}

// Handler turns Socket Mode events into command invocations.
type Handler struct {
	socket     *socketmode.Client
	registry   Dispatcher
	replier    Replier
	moderators map[string]bool
	logger     zerolog.Logger
}

// NewHandler creates a Handler. moderators lists user IDs whose invocations
// run privileged.
func NewHandler(registry Dispatcher, replier Replier, moderators []string, logger zerolog.Logger) *Handler {
	mods := make(map[string]bool, len(moderators))
	for _, id := range moderators {
		mods[id] = true
	}
	return &Handler{
		registry:   registry,
		replier:    replier,
		moderators: mods,
		logger:     logger.With().Str("component", "slack.handler").Logger(),
	}
}

// HandleEvent routes Socket Mode events.
func (h *Handler) HandleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeSlashCommand:
		h.handleSlashCommand(ctx, evt)
	case socketmode.EventTypeEventsAPI:
		h.handleEventsAPI(ctx, evt)
	default:
		h.logger.Debug().Str("type", string(evt.Type)).Msg("unhandled event type")
	}
}

func (h *Handler) handleSlashCommand(ctx context.Context, evt socketmode.Event) {
	// Slack requires an ack within 3 seconds; the real reply is posted to
	// the channel afterwards.
	if h.socket != nil && evt.Request != nil {
		h.socket.Ack(*evt.Request)
	}

	cmd, ok := evt.Data.(slack.SlashCommand)
	if !ok {
		h.logger.Warn().Msg("failed to cast slash command data")
		return
	}

	name := strings.TrimPrefix(cmd.Command, "/")
	h.invoke(ctx, name, strings.Fields(cmd.Text), cmd.TeamID, cmd.ChannelID, cmd.UserID)
}

func (h *Handler) handleEventsAPI(ctx context.Context, evt socketmode.Event) {
	if h.socket != nil && evt.Request != nil {
		h.socket.Ack(*evt.Request)
	}

	apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		h.logger.Warn().Str("type", string(evt.Type)).Msg("failed to cast events_api data")
		return
	}
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}

	// An app mention like "@scribe sprint join 500" is the slash command
	// with the mention token in front.
	if ev, ok := apiEvent.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
		fields := strings.Fields(stripMention(ev.Text))
		if len(fields) == 0 {
			return
		}
		h.invoke(ctx, fields[0], fields[1:], apiEvent.TeamID, ev.Channel, ev.User)
	}
}

func (h *Handler) invoke(ctx context.Context, name string, args []string, guild, channel, user string) {
	if !h.registry.Known(name) {
		h.logger.Debug().Str("command", name).Msg("unknown command")
		return
	}

	h.logger.Info().Str("command", name).Str("guild", guild).
		Str("channel", channel).Str("user", user).Msg("command received")

	reply := h.registry.Dispatch(ctx, name, &commands.Request{
		Guild:      guild,
		Channel:    channel,
		User:       user,
		Args:       args,
		Privileged: h.moderators[user],
	})
	if reply == "" {
		return
	}
	if err := h.replier.Send(channel, mention(user)+" "+reply); err != nil {
		h.logger.Error().Err(err).Str("channel", channel).Msg("failed to post reply")
	}
}

func mention(user string) string {
	return "<@" + user + ">"
}

// stripMention drops the leading "<@U...>" token from an app mention.
func stripMention(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "<@") {
		if end := strings.Index(text, ">"); end != -1 {
			text = text[end+1:]
		}
	}
	return strings.TrimSpace(text)
}
