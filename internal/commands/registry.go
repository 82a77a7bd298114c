// Package commands routes parsed chat invocations to the engines. Every
// command is a small struct composed from the pieces it needs; the registry
// owns the cross-cutting concerns: the per-guild disabled check, metrics and
// the user-error/internal-error split in replies.
package commands

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/store"
)

// Request is one command invocation.
type Request struct {
	Guild   string
	Channel string
	User    string
	Args    []string
	// Privileged is set for moderators, who may end or cancel sprints
	// they did not create.
	Privileged bool
}

// Command is a named bot command. Execute returns the reply text; user
// mistakes come back as a reply plus a user-level error, internal failures
// as an empty reply plus the cause.
type Command interface {
	Name() string
	Execute(ctx context.Context, req *Request) (string, error)
}

// Registry dispatches invocations by command name.
type Registry struct {
	store    *store.Store
	metrics  *metrics.Metrics
	lang     *lang.Store
	logger   zerolog.Logger
	commands map[string]Command
}

// NewRegistry creates an empty Registry.
func NewRegistry(s *store.Store, m *metrics.Metrics, l *lang.Store, logger zerolog.Logger) *Registry {
	return &Registry{
		store:    s,
		metrics:  m,
		lang:     l,
		logger:   logger.With().Str("component", "commands").Logger(),
		commands: make(map[string]Command),
	}
}

// Register adds a command. Later registrations with the same name win.
func (r *Registry) Register(cmds ...Command) {
	for _, c := range cmds {
		r.commands[c.Name()] = c
	}
}

// Known reports whether a command name is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Dispatch runs a command and returns the reply to post. Internal failures
// are logged under a correlation code and the user gets the code instead of
// the error.
func (r *Registry) Dispatch(ctx context.Context, name string, req *Request) string {
	cmd, ok := r.commands[name]
	if !ok {
		return ""
	}

	disabled, err := r.store.GetGuildSetting(req.Guild, "disabled:"+name)
	if err != nil {
		r.logger.Error().Err(err).Str("command", name).Msg("failed to read disabled setting")
	}
	if disabled == "1" {
		r.metrics.RecordCommand(name, "disabled")
		return r.lang.Get("err:disabled", req.Guild)
	}

	reply, err := cmd.Execute(ctx, req)
	switch {
	case err == nil:
		r.metrics.RecordCommand(name, "ok")
	case errors.IsUserError(err):
		r.metrics.RecordCommand(name, "user_error")
	default:
		code := errors.CorrelationCode()
		r.logger.Error().Err(err).Str("command", name).Str("code", code).
			Str("guild", req.Guild).Str("user", req.User).Msg("command failed")
		r.metrics.RecordCommand(name, "error")
		return r.lang.Getf("err:unexpected", req.Guild, code)
	}
	return reply
}
