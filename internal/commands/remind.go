package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/reminder"
)

// RemindCommand schedules message deliveries:
//
//	remind in <mins> <message>
//	remind at <HH:MM> <message>
//	remind every <hour|day|week> at <HH:MM> <message>
//	remind list
//	remind delete
type RemindCommand struct {
	Engine *reminder.Engine
	Lang   *lang.Store
}

func (c *RemindCommand) Name() string { return "remind" }

func (c *RemindCommand) Execute(ctx context.Context, req *Request) (string, error) {
	args := req.Args
	if len(args) == 0 {
		return c.Engine.List(req.Guild, req.User)
	}

	switch args[0] {
	case "list":
		return c.Engine.List(req.Guild, req.User)
	case "delete":
		return c.Engine.DeleteAll(req.Guild, req.User)
	case "in":
		if len(args) < 3 {
			return c.formatErr(req)
		}
		minutes, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return c.formatErr(req)
		}
		return c.Engine.CreateIn(req.Guild, req.Channel, req.User, minutes, strings.Join(args[2:], " "), 0)
	case "at":
		if len(args) < 3 {
			return c.formatErr(req)
		}
		hour, minute, ok := parseClock(args[1])
		if !ok {
			return c.formatErr(req)
		}
		return c.Engine.CreateAt(req.Guild, req.Channel, req.User, hour, minute, strings.Join(args[2:], " "), 0)
	case "every":
		return c.every(req, args[1:])
	default:
		return c.formatErr(req)
	}
}

func (c *RemindCommand) every(req *Request, args []string) (string, error) {
	if len(args) < 2 {
		return c.formatErr(req)
	}

	var interval int64
	switch args[0] {
	case "hour":
		interval = reminder.IntervalHour
	case "day":
		interval = reminder.IntervalDay
	case "week":
		interval = reminder.IntervalWeek
	default:
		return c.Lang.Get("remind:err:interval", req.Guild), errors.ErrInvalidInput
	}
	args = args[1:]

	// Optional "at HH:MM" anchor; otherwise the first fire is one interval
	// from now.
	if args[0] == "at" {
		if len(args) < 3 {
			return c.formatErr(req)
		}
		hour, minute, ok := parseClock(args[1])
		if !ok {
			return c.formatErr(req)
		}
		return c.Engine.CreateAt(req.Guild, req.Channel, req.User, hour, minute, strings.Join(args[2:], " "), interval)
	}
	return c.Engine.CreateIn(req.Guild, req.Channel, req.User, interval/60, strings.Join(args, " "), interval)
}

func (c *RemindCommand) formatErr(req *Request) (string, error) {
	return c.Lang.Get("remind:err:format", req.Guild), errors.ErrInvalidInput
}

func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
