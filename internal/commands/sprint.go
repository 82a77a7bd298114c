package commands

import (
	"context"
	"strconv"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/sprint"
)

// SprintCommand exposes the sprint manager:
//
//	sprint [for <mins>] [in <mins> | at <minute>]
//	sprint join [count] [project]
//	sprint join-nwc | sprint same
//	sprint wc <total> [confirm]   sprint wrote <delta> [confirm]
//	sprint project <shortname>
//	sprint leave | end | cancel | time | status | pb | notify | forget
type SprintCommand struct {
	Manager *sprint.Manager
	Lang    *lang.Store
}

func (c *SprintCommand) Name() string { return "sprint" }

func (c *SprintCommand) Execute(ctx context.Context, req *Request) (string, error) {
	args := req.Args
	if len(args) == 0 {
		return c.create(req, nil)
	}

	switch args[0] {
	case "join":
		return c.join(req, args[1:])
	case "join-nwc", "nwc":
		return c.Manager.JoinNoWC(req.Guild, req.User)
	case "same":
		return c.Manager.JoinSame(req.Guild, req.User)
	case "wc", "declare":
		return c.declare(req, args[1:], false)
	case "wrote":
		return c.declare(req, args[1:], true)
	case "project":
		if len(args) < 2 {
			return c.Lang.Getf("project:err:noexists", req.Guild, ""), errors.ErrInvalidInput
		}
		return c.Manager.SetProject(req.Guild, req.User, args[1])
	case "leave":
		return c.Manager.Leave(req.Guild, req.User)
	case "end":
		return c.Manager.ForceEnd(req.Guild, req.User, req.Privileged)
	case "cancel":
		return c.Manager.Cancel(req.Guild, req.User, req.Privileged)
	case "time":
		return c.Manager.Time(req.Guild)
	case "status":
		return c.Manager.Status(req.Guild, req.User)
	case "pb":
		return c.Manager.PersonalBest(req.Guild, req.User)
	case "notify":
		return c.Manager.Notify(req.Guild, req.User)
	case "forget":
		return c.Manager.Forget(req.Guild, req.User)
	default:
		return c.create(req, args)
	}
}

// create parses the scheduling forms: bare, "<mins>", "for <mins>",
// "in <mins>", "at <minute>" and combinations.
func (c *SprintCommand) create(req *Request, args []string) (string, error) {
	length, in, at := 0, -1, -1

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "for":
			i++
			v, ok := intArg(args, i)
			if !ok {
				return c.Lang.Get("sprint:err:usage", req.Guild), errors.ErrInvalidInput
			}
			length = v
		case "in":
			i++
			v, ok := intArg(args, i)
			if !ok {
				return c.Lang.Get("sprint:err:usage", req.Guild), errors.ErrInvalidInput
			}
			in = v
		case "at":
			i++
			v, ok := intArg(args, i)
			if !ok {
				return c.Lang.Get("sprint:err:at", req.Guild), errors.ErrInvalidInput
			}
			at = v
		default:
			// A bare leading number is the length.
			if v, err := strconv.Atoi(args[i]); err == nil && length == 0 {
				length = v
				continue
			}
			return c.Lang.Get("sprint:err:usage", req.Guild), errors.ErrInvalidInput
		}
	}

	return c.Manager.Create(req.Guild, req.Channel, req.User, length, in, at)
}

func (c *SprintCommand) join(req *Request, args []string) (string, error) {
	var initial int64
	var project string

	if len(args) > 0 {
		if v, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			initial = v
			args = args[1:]
		}
	}
	if len(args) > 0 {
		project = args[0]
	}
	return c.Manager.Join(req.Guild, req.User, initial, project)
}

func (c *SprintCommand) declare(req *Request, args []string, delta bool) (string, error) {
	if len(args) == 0 {
		return c.Lang.Get("sprint:err:amount", req.Guild), errors.ErrInvalidInput
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount < 0 {
		return c.Lang.Get("sprint:err:amount", req.Guild), errors.ErrInvalidInput
	}
	confirmed := len(args) > 1 && args[1] == "confirm"

	if delta {
		return c.Manager.DeclareWrote(req.Guild, req.User, amount, confirmed)
	}
	return c.Manager.DeclareTotal(req.Guild, req.User, amount, confirmed)
}

func intArg(args []string, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	v, err := strconv.Atoi(args[i])
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
