package commands

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/scribe-bot/scribe/internal/accounting"
	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/store"
)

// Challenge generation bounds.
const (
	challengeMinWPM  = 5
	challengeMaxWPM  = 30
	challengeMinTime = 5
	challengeMaxTime = 60
)

// difficultyWPM maps the named difficulties to a WPM range.
var difficultyWPM = map[string][2]int{
	"easy":     {3, 5},
	"normal":   {10, 15},
	"hard":     {20, 30},
	"hardcore": {35, 45},
	"insane":   {50, 60},
}

// ChallengeCommand hands out personal writing challenges:
//
//	challenge [difficulty] [<mins>m]
//	challenge complete
//	challenge cancel
type ChallengeCommand struct {
	Store *store.Store
	Lang  *lang.Store
	Now   func() time.Time
	// Intn is the random source, overridable in tests.
	Intn func(n int) int
}

func (c *ChallengeCommand) Name() string { return "challenge" }

func (c *ChallengeCommand) Execute(ctx context.Context, req *Request) (string, error) {
	if len(req.Args) > 0 {
		switch req.Args[0] {
		case "complete", "done":
			return c.complete(req)
		case "cancel":
			return c.cancel(req)
		}
	}
	return c.start(req)
}

func (c *ChallengeCommand) start(req *Request) (string, error) {
	existing, err := c.Store.CurrentChallenge(req.User, req.Guild)
	if err != nil {
		return "", fmt.Errorf("loading challenge: %w", err)
	}
	if existing != nil {
		return c.Lang.Getf("challenge:accepted", req.Guild, existing.Challenge), nil
	}

	wpm := c.randRange(challengeMinWPM, challengeMaxWPM)
	minutes := c.randRange(challengeMinTime, challengeMaxTime)

	for _, arg := range req.Args {
		if bounds, ok := difficultyWPM[arg]; ok {
			wpm = c.randRange(bounds[0], bounds[1])
			continue
		}
		// A "15m" suffix pins the length.
		if len(arg) > 1 && arg[len(arg)-1] == 'm' {
			if v, err := strconv.Atoi(arg[:len(arg)-1]); err == nil && v >= challengeMinTime && v <= challengeMaxTime {
				minutes = v
			}
		}
	}

	goal := wpm * minutes
	xp := accounting.ChallengeXP(wpm)
	text := c.Lang.Getf("challenge:challenge", req.Guild, goal, minutes, wpm)

	if err := c.Store.SetChallenge(&store.Challenge{
		UserID:    req.User,
		Guild:     req.Guild,
		Challenge: text,
		XP:        xp,
	}); err != nil {
		return "", fmt.Errorf("saving challenge: %w", err)
	}
	return c.Lang.Getf("challenge:accepted", req.Guild, text), nil
}

func (c *ChallengeCommand) complete(req *Request) (string, error) {
	challenge, err := c.Store.CurrentChallenge(req.User, req.Guild)
	if err != nil {
		return "", fmt.Errorf("loading challenge: %w", err)
	}
	if challenge == nil {
		return c.Lang.Get("challenge:noactive", req.Guild), errors.ErrNotFound
	}

	if err := c.Store.CompleteChallenge(challenge.ID, c.now().Unix()); err != nil {
		return "", fmt.Errorf("completing challenge: %w", err)
	}
	if err := c.Store.AddXP(req.User, req.Guild, challenge.XP); err != nil {
		return "", fmt.Errorf("granting xp: %w", err)
	}
	if err := c.Store.AddUserStat(req.User, req.Guild, store.StatChallengesCompleted, 1); err != nil {
		return "", fmt.Errorf("bumping stat: %w", err)
	}
	return c.Lang.Getf("challenge:completed", req.Guild, challenge.Challenge, challenge.XP), nil
}

func (c *ChallengeCommand) cancel(req *Request) (string, error) {
	challenge, err := c.Store.CurrentChallenge(req.User, req.Guild)
	if err != nil {
		return "", fmt.Errorf("loading challenge: %w", err)
	}
	if challenge == nil {
		return c.Lang.Get("challenge:noactive", req.Guild), errors.ErrNotFound
	}
	if err := c.Store.DeleteChallenge(challenge.ID); err != nil {
		return "", fmt.Errorf("deleting challenge: %w", err)
	}
	return c.Lang.Get("challenge:cancelled", req.Guild), nil
}

func (c *ChallengeCommand) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// randRange returns a value in [min, max].
func (c *ChallengeCommand) randRange(min, max int) int {
	intn := c.Intn
	if intn == nil {
		intn = rand.Intn
	}
	return min + intn(max-min+1)
}
