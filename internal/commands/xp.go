package commands

import (
	"context"
	"fmt"

	"github.com/scribe-bot/scribe/internal/accounting"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/store"
)

// XPCommand shows the user's level and progress toward the next one.
type XPCommand struct {
	Store *store.Store
	Lang  *lang.Store
}

func (c *XPCommand) Name() string { return "xp" }

func (c *XPCommand) Execute(ctx context.Context, req *Request) (string, error) {
	xp, err := c.Store.GetXP(req.User, req.Guild)
	if err != nil {
		return "", fmt.Errorf("loading xp: %w", err)
	}
	if xp == 0 {
		return c.Lang.Get("xp:none", req.Guild), nil
	}

	level := accounting.Level(xp)
	toNext := accounting.NextLevelXP(xp) - xp
	return c.Lang.Getf("xp:level", req.Guild, level, xp, toNext), nil
}
