package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/scribe-bot/scribe/internal/accounting"
	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/store"
)

// WroteCommand records words written outside a sprint:
//
//	wrote <count> [project shortname]
type WroteCommand struct {
	Store   *store.Store
	Applier *accounting.Applier
	Lang    *lang.Store
}

func (c *WroteCommand) Name() string { return "wrote" }

func (c *WroteCommand) Execute(ctx context.Context, req *Request) (string, error) {
	if len(req.Args) == 0 {
		return c.Lang.Get("sprint:err:amount", req.Guild), errors.ErrInvalidInput
	}
	amount, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil || amount <= 0 {
		return c.Lang.Get("sprint:err:amount", req.Guild), errors.ErrInvalidInput
	}

	if err := c.Applier.AddWords(req.User, req.Guild, amount); err != nil {
		return "", fmt.Errorf("recording words: %w", err)
	}
	total, err := c.Store.GetUserStat(req.User, req.Guild, store.StatTotalWordsWritten)
	if err != nil {
		return "", fmt.Errorf("loading total: %w", err)
	}

	if len(req.Args) > 1 {
		shortname := req.Args[1]
		project, err := c.Store.GetProject(req.User, shortname)
		if err != nil {
			return "", fmt.Errorf("loading project: %w", err)
		}
		if project == nil {
			return c.Lang.Getf("project:err:noexists", req.Guild, shortname), errors.ErrNotFound
		}
		if err := c.Store.AddProjectWords(project.ID, amount); err != nil {
			return "", fmt.Errorf("adding project words: %w", err)
		}
		return c.Lang.Getf("wrote:addedtoproject", req.Guild, amount, project.Name, project.Words+amount, total), nil
	}

	return c.Lang.Getf("wrote:added", req.Guild, amount, total), nil
}
