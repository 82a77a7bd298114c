package commands

import (
	"context"
	"fmt"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/store"
)

// ResetCommand wipes a user's own statistics:
//
//	reset pb | wc | xp | projects | all
type ResetCommand struct {
	Store *store.Store
	Lang  *lang.Store
}

func (c *ResetCommand) Name() string { return "reset" }

func (c *ResetCommand) Execute(ctx context.Context, req *Request) (string, error) {
	if len(req.Args) == 0 {
		return c.Lang.Get("reset:usage", req.Guild), errors.ErrInvalidInput
	}

	switch req.Args[0] {
	case "pb":
		if err := c.Store.DeleteUserRecord(req.User, req.Guild, store.RecordWPM); err != nil {
			return "", fmt.Errorf("resetting pb: %w", err)
		}
		return c.Lang.Get("reset:pb", req.Guild), nil
	case "wc":
		if err := c.Store.SetUserStat(req.User, req.Guild, store.StatTotalWordsWritten, 0); err != nil {
			return "", fmt.Errorf("resetting word count: %w", err)
		}
		return c.Lang.Get("reset:wc", req.Guild), nil
	case "xp":
		if err := c.Store.SetXP(req.User, req.Guild, 0); err != nil {
			return "", fmt.Errorf("resetting xp: %w", err)
		}
		return c.Lang.Get("reset:xp", req.Guild), nil
	case "projects":
		if err := c.Store.DeleteProjects(req.User); err != nil {
			return "", fmt.Errorf("deleting projects: %w", err)
		}
		return c.Lang.Get("reset:projects", req.Guild), nil
	case "all":
		if err := c.resetAll(req); err != nil {
			return "", err
		}
		return c.Lang.Get("reset:done", req.Guild), nil
	default:
		return c.Lang.Get("reset:usage", req.Guild), errors.ErrInvalidInput
	}
}

func (c *ResetCommand) resetAll(req *Request) error {
	if err := c.Store.DeleteUserRecord(req.User, req.Guild, store.RecordWPM); err != nil {
		return fmt.Errorf("resetting pb: %w", err)
	}
	for _, stat := range []string{
		store.StatTotalWordsWritten,
		store.StatSprintsStarted,
		store.StatSprintsCompleted,
		store.StatChallengesCompleted,
	} {
		if err := c.Store.SetUserStat(req.User, req.Guild, stat, 0); err != nil {
			return fmt.Errorf("resetting %s: %w", stat, err)
		}
	}
	if err := c.Store.SetXP(req.User, req.Guild, 0); err != nil {
		return fmt.Errorf("resetting xp: %w", err)
	}
	if err := c.Store.DeleteProjects(req.User); err != nil {
		return fmt.Errorf("deleting projects: %w", err)
	}
	return nil
}
