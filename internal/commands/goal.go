package commands

import (
	"context"
	"strconv"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/goal"
	"github.com/scribe-bot/scribe/internal/lang"
)

// GoalCommand manages recurring word-count goals:
//
//	goal                         all goals
//	goal set <type> <words>
//	goal cancel <type>
//	goal check <type>
//	goal time <type>
//	goal history <type>
type GoalCommand struct {
	Manager *goal.Manager
	Lang    *lang.Store
}

func (c *GoalCommand) Name() string { return "goal" }

func (c *GoalCommand) Execute(ctx context.Context, req *Request) (string, error) {
	args := req.Args
	if len(args) == 0 {
		return c.Manager.CheckAll(req.Guild, req.User)
	}

	switch args[0] {
	case "set":
		if len(args) < 3 {
			return c.Lang.Get("goal:invalidtype", req.Guild), errors.ErrInvalidInput
		}
		amount, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return c.Lang.Get("goal:invalidtype", req.Guild), errors.ErrInvalidInput
		}
		return c.Manager.Set(req.Guild, req.User, args[1], amount)
	case "cancel", "delete":
		if len(args) < 2 {
			return c.Lang.Get("goal:invalidtype", req.Guild), errors.ErrInvalidInput
		}
		return c.Manager.Cancel(req.Guild, req.User, args[1])
	case "check":
		if len(args) < 2 {
			return c.Manager.CheckAll(req.Guild, req.User)
		}
		return c.Manager.Check(req.Guild, req.User, args[1])
	case "time":
		if len(args) < 2 {
			return c.Lang.Get("goal:invalidtype", req.Guild), errors.ErrInvalidInput
		}
		return c.Manager.TimeLeft(req.Guild, req.User, args[1])
	case "history":
		if len(args) < 2 {
			return c.Lang.Get("goal:invalidtype", req.Guild), errors.ErrInvalidInput
		}
		return c.Manager.History(req.Guild, req.User, args[1])
	default:
		return c.Lang.Get("goal:invalidtype", req.Guild), errors.ErrInvalidInput
	}
}
