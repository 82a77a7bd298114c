// Package slackbot is the Slack transport: a Socket Mode event loop that
// turns slash commands and app mentions into command invocations, and a
// Messenger the engines use to post into channels.
package slackbot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// BotAPI abstracts the Slack API client for testing.
type BotAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	AuthTest() (*slack.AuthTestResponse, error)
}

// App is the Slack bot application using Socket Mode.
type App struct {
	api     BotAPI
	socket  *socketmode.Client
	logger  zerolog.Logger
	handler *Handler
}

// NewApp creates the Slack app and opens a Socket Mode client. The event
// handler is attached separately with SetHandler, after the command
// registry and engines have been wired to the connection's Messenger.
func NewApp(botToken, appToken string, logger zerolog.Logger) (*App, error) {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	return &App{
		api:    api,
		socket: socketmode.New(api),
		logger: logger.With().Str("component", "slack").Logger(),
	}, nil
}

// SetHandler attaches the event handler. Must be called before Run.
func (a *App) SetHandler(h *Handler) {
	h.socket = a.socket
	a.handler = h
}

// Run starts the Socket Mode event loop. Blocks until the context is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("starting Slack Socket Mode connection")

	go func() {
		for evt := range a.socket.Events {
			a.handler.HandleEvent(ctx, evt)
		}
	}()

	go func() {
		<-ctx.Done()
		a.logger.Info().Msg("shutting down Slack Socket Mode")
	}()

	if err := a.socket.RunContext(ctx); err != nil {
		return fmt.Errorf("socket mode error: %w", err)
	}
	return nil
}

// Messenger posts plain-text messages. It satisfies the Notifier interfaces
// of the sprint and reminder engines.
type Messenger struct {
	api    BotAPI
	logger zerolog.Logger
}

// NewMessenger creates a Messenger over a Slack API client.
func NewMessenger(api BotAPI, logger zerolog.Logger) *Messenger {
	return &Messenger{
		api:    api,
		logger: logger.With().Str("component", "slack.messenger").Logger(),
	}
}

// Send posts text to a channel.
func (m *Messenger) Send(channel, text string) error {
	_, _, err := m.api.PostMessage(channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting to %s: %w", channel, err)
	}
	return nil
}

// API exposes the underlying client, for building the Messenger after the
// App owns the connection.
func (a *App) API() BotAPI {
	return a.api
}
