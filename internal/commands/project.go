package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/scribe-bot/scribe/internal/accounting"
	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/store"
)

// ProjectCommand manages writing projects:
//
//	project list
//	project create <shortname> <title...>
//	project delete <shortname>
//	project finish <shortname>   project publish <shortname>
type ProjectCommand struct {
	Store *store.Store
	Lang  *lang.Store
}

func (c *ProjectCommand) Name() string { return "project" }

func (c *ProjectCommand) Execute(ctx context.Context, req *Request) (string, error) {
	args := req.Args
	if len(args) == 0 || args[0] == "list" {
		return c.list(req)
	}

	switch args[0] {
	case "create":
		if len(args) < 3 {
			return c.Lang.Get("project:err:usage", req.Guild), errors.ErrInvalidInput
		}
		return c.create(req, args[1], strings.Join(args[2:], " "))
	case "delete":
		if len(args) < 2 {
			return c.Lang.Get("project:err:usage", req.Guild), errors.ErrInvalidInput
		}
		return c.delete(req, args[1])
	case "finish":
		if len(args) < 2 {
			return c.Lang.Get("project:err:usage", req.Guild), errors.ErrInvalidInput
		}
		return c.setStatus(req, args[1], store.ProjectStatusFinished)
	case "publish":
		if len(args) < 2 {
			return c.Lang.Get("project:err:usage", req.Guild), errors.ErrInvalidInput
		}
		return c.setStatus(req, args[1], store.ProjectStatusPublished)
	default:
		return c.Lang.Get("project:err:usage", req.Guild), errors.ErrInvalidInput
	}
}

func (c *ProjectCommand) list(req *Request) (string, error) {
	projects, err := c.Store.UserProjects(req.User)
	if err != nil {
		return "", fmt.Errorf("loading projects: %w", err)
	}
	if len(projects) == 0 {
		return c.Lang.Get("project:none", req.Guild), nil
	}

	var b strings.Builder
	b.WriteString(c.Lang.Get("project:list", req.Guild))
	for _, p := range projects {
		status := p.Status
		if status == "" {
			status = "in progress"
		}
		b.WriteString("\n")
		b.WriteString(c.Lang.Getf("project:list:row", req.Guild, p.Shortname, p.Name, p.Words, status))
	}
	return b.String(), nil
}

func (c *ProjectCommand) create(req *Request, shortname, title string) (string, error) {
	existing, err := c.Store.GetProject(req.User, shortname)
	if err != nil {
		return "", fmt.Errorf("loading project: %w", err)
	}
	if existing != nil {
		return c.Lang.Getf("project:err:exists", req.Guild, shortname), errors.ErrInvalidInput
	}

	if err := c.Store.CreateProject(&store.Project{
		UserID:    req.User,
		Shortname: shortname,
		Name:      title,
	}); err != nil {
		return "", fmt.Errorf("creating project: %w", err)
	}
	return c.Lang.Getf("project:created", req.Guild, title, shortname), nil
}

func (c *ProjectCommand) delete(req *Request, shortname string) (string, error) {
	project, err := c.Store.GetProject(req.User, shortname)
	if err != nil {
		return "", fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return c.Lang.Getf("project:err:noexists", req.Guild, shortname), errors.ErrNotFound
	}
	if err := c.Store.DeleteProject(req.User, shortname); err != nil {
		return "", fmt.Errorf("deleting project: %w", err)
	}
	return c.Lang.Getf("project:deleted", req.Guild, project.Name), nil
}

func (c *ProjectCommand) setStatus(req *Request, shortname, status string) (string, error) {
	project, err := c.Store.GetProject(req.User, shortname)
	if err != nil {
		return "", fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return c.Lang.Getf("project:err:noexists", req.Guild, shortname), errors.ErrNotFound
	}

	first, err := c.Store.UpdateProjectStatus(project.ID, status)
	if err != nil {
		return "", fmt.Errorf("updating project status: %w", err)
	}

	// The first time a project reaches a completed status its word count
	// earns XP; flipping between finished and published later does not.
	if first {
		xp := accounting.ProjectXP(project.Words)
		if err := c.Store.AddXP(req.User, req.Guild, xp); err != nil {
			return "", fmt.Errorf("granting xp: %w", err)
		}
		return c.Lang.Getf("project:completed", req.Guild, project.Name, xp), nil
	}
	return c.Lang.Getf("project:status", req.Guild, project.Name, status), nil
}
