// Package sprint implements timed group writing sessions. A guild has at
// most one active sprint; participants join with a starting word count,
// declare totals as they write, and the final standings are computed from
// declarations against a frozen end reference so late declarers are not
// penalized.
package sprint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribe-bot/scribe/internal/accounting"
	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/store"
	"github.com/scribe-bot/scribe/internal/tzcache"
)

// Task types handled by the sprint manager.
const (
	TaskStart    = "sprint:start"
	TaskEnd      = "sprint:end"
	TaskComplete = "sprint:complete"
)

// TaskObject is the object name used for sprint tasks in the queue.
const TaskObject = "sprint"

// completionGrace is how long after the end announcement a sprint waits for
// final declarations before it is completed with whatever counts exist.
const completionGrace = 5 * time.Minute

// Notifier posts a message to a channel. Delivery failures are logged and
// never fail the operation that triggered them.
type Notifier interface {
	Send(channel, text string) error
}

// Options are the sprint bounds, normally taken from config.
type Options struct {
	DefaultLength int // minutes
	MaxLength     int
	DefaultDelay  int // minutes before an unscheduled sprint starts
	MaxDelay      int
	WPMCeiling    int
}

// Manager owns all sprint state transitions. Operations for the same guild
// are serialized on a per-guild lock so concurrent commands cannot race the
// single-active-sprint invariant.
type Manager struct {
	store    *store.Store
	metrics  *metrics.Metrics
	lang     *lang.Store
	applier  *accounting.Applier
	notifier Notifier
	logger   zerolog.Logger
	opts     Options
	now      func() time.Time

	mu     sync.Mutex
	guilds map[string]*sync.Mutex
}

// New creates a Manager.
func New(s *store.Store, m *metrics.Metrics, l *lang.Store, applier *accounting.Applier, notifier Notifier, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    s,
		metrics:  m,
		lang:     l,
		applier:  applier,
		notifier: notifier,
		logger:   logger.With().Str("component", "sprint").Logger(),
		opts:     opts,
		now:      time.Now,
		guilds:   make(map[string]*sync.Mutex),
	}
}

func (m *Manager) guildLock(guild string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.guilds[guild]
	if !ok {
		l = &sync.Mutex{}
		m.guilds[guild] = l
	}
	return l
}

// Create schedules a new sprint and joins the creator to it. length is in
// minutes and is clamped to the configured bounds. in is a delay in minutes
// before the start; at is a minute past the hour in the creator's timezone.
// Pass a negative value for whichever of in/at is not given; when neither is,
// the default delay applies.
func (m *Manager) Create(guild, channel, user string, length, in, at int) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	if in >= 0 && at >= 0 {
		return m.lang.Get("sprint:err:exclusive", guild), errors.ErrInvalidInput
	}

	if length <= 0 {
		length = m.opts.DefaultLength
	}
	if length > m.opts.MaxLength {
		length = m.opts.MaxLength
	}

	var delay int
	switch {
	case at >= 0:
		if at > 60 {
			return m.lang.Get("sprint:err:at", guild), errors.ErrInvalidInput
		}
		minute, ok := m.localMinute(user)
		if !ok {
			return m.lang.Get("err:notimezone", guild), errors.ErrInvalidInput
		}
		delay = (60 + at - minute) % 60
	case in >= 0:
		if in > m.opts.MaxDelay {
			return m.lang.Getf("sprint:err:maxdelay", guild, m.opts.MaxDelay), errors.ErrInvalidInput
		}
		delay = in
	default:
		delay = m.opts.DefaultDelay
	}

	existing, err := m.store.CurrentSprint(guild)
	if err != nil {
		return "", fmt.Errorf("checking current sprint: %w", err)
	}
	if existing != nil {
		// A finished sprint where everyone has declared just never got its
		// completion task yet. Settle it here rather than blocking the new
		// sprint until the next dispatcher tick.
		if existing.End <= m.now().Unix() {
			if err := m.tryComplete(existing); err != nil {
				return "", err
			}
			existing, err = m.store.CurrentSprint(guild)
			if err != nil {
				return "", fmt.Errorf("checking current sprint: %w", err)
			}
		}
		if existing != nil {
			return m.lang.Get("sprint:err:alreadyexists", guild), errors.ErrSprintExists
		}
	}

	now := m.now().Unix()
	start := now + int64(delay)*60
	end := start + int64(length)*60

	sp := &store.Sprint{
		Guild:        guild,
		Channel:      channel,
		Start:        start,
		End:          end,
		EndReference: end,
		Length:       int64(length),
		CreatedBy:    user,
		Created:      now,
	}
	if err := m.store.CreateSprint(sp); err != nil {
		return "", fmt.Errorf("creating sprint: %w", err)
	}

	if err := m.store.AddSprintUser(&store.SprintUser{
		SprintID:   sp.ID,
		UserID:     user,
		TimeJoined: start,
	}); err != nil {
		return "", fmt.Errorf("joining creator: %w", err)
	}

	if err := m.store.AddUserStat(user, guild, store.StatSprintsStarted, 1); err != nil {
		m.logger.Error().Err(err).Str("user", user).Msg("failed to bump sprints_started")
	}
	m.metrics.SprintsStarted.Inc()
	m.metrics.SprintsActive.Inc()

	if delay == 0 {
		if _, err := m.store.ScheduleTask(TaskEnd, end, TaskObject, sp.ID); err != nil {
			return "", fmt.Errorf("scheduling end task: %w", err)
		}
		return m.lang.Getf("sprint:begin", guild, length, m.notifyMentions(guild)), nil
	}

	if _, err := m.store.ScheduleTask(TaskStart, start, TaskObject, sp.ID); err != nil {
		return "", fmt.Errorf("scheduling start task: %w", err)
	}
	return m.lang.Getf("sprint:scheduled", guild, delay, length), nil
}

// Join adds the user to the active sprint with the given starting count, or
// updates their starting count if they already joined. projectShortname is
// optional.
func (m *Manager) Join(guild, user string, initial int64, projectShortname string) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	return m.join(sp, guild, user, initial, store.SprintTypeWordCount, projectShortname)
}

// JoinNoWC adds the user without word counting. They appear in the roster
// but never in the standings.
func (m *Manager) JoinNoWC(guild, user string) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	return m.join(sp, guild, user, 0, store.SprintTypeNoWordCount, "")
}

// JoinSame joins the way the user joined their previous sprint in this
// guild: final total as the starting count, same project, and same
// counting mode.
func (m *Manager) JoinSame(guild, user string) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}

	var initial, projectID int64
	sprintType := store.SprintTypeWordCount
	prev, err := m.store.MostRecentSprintUser(guild, user, sp.ID)
	if err != nil {
		return "", fmt.Errorf("loading previous sprint: %w", err)
	}
	if prev != nil {
		sprintType = prev.SprintType
		projectID = prev.ProjectID
		if prev.EndingDeclared {
			initial = prev.EndingWC
		} else {
			initial = prev.CurrentWC
		}
	}

	reply, err := m.join(sp, guild, user, initial, sprintType, "")
	if err != nil {
		return reply, err
	}
	if projectID != 0 {
		if err := m.store.SetSprintUserProject(sp.ID, user, projectID); err != nil {
			return "", fmt.Errorf("setting sprint project: %w", err)
		}
	}
	return reply, nil
}

func (m *Manager) join(sp *store.Sprint, guild, user string, initial int64, sprintType, projectShortname string) (string, error) {
	existing, err := m.store.GetSprintUser(sp.ID, user)
	if err != nil {
		return "", fmt.Errorf("loading participant: %w", err)
	}

	if existing != nil {
		if err := m.store.UpdateSprintUserCounts(sp.ID, user, initial, initial, sprintType); err != nil {
			return "", fmt.Errorf("updating participant: %w", err)
		}
	} else {
		joined := m.now().Unix()
		if joined < sp.Start {
			joined = sp.Start
		}
		if err := m.store.AddSprintUser(&store.SprintUser{
			SprintID:   sp.ID,
			UserID:     user,
			StartingWC: initial,
			CurrentWC:  initial,
			SprintType: sprintType,
			TimeJoined: joined,
		}); err != nil {
			return "", fmt.Errorf("adding participant: %w", err)
		}
	}

	var reply string
	switch {
	case sprintType == store.SprintTypeNoWordCount:
		reply = m.lang.Get("sprint:join:nowc", guild)
	case existing != nil:
		reply = m.lang.Getf("sprint:join:update", guild, initial)
	default:
		reply = m.lang.Getf("sprint:join", guild, initial)
	}

	if projectShortname != "" {
		project, err := m.store.GetProject(user, projectShortname)
		if err != nil {
			return "", fmt.Errorf("loading project: %w", err)
		}
		if project == nil {
			return m.lang.Getf("project:err:noexists", guild, projectShortname), errors.ErrNotFound
		}
		if err := m.store.SetSprintUserProject(sp.ID, user, project.ID); err != nil {
			return "", fmt.Errorf("setting sprint project: %w", err)
		}
		reply += " " + m.lang.Getf("sprint:joinproject", guild, project.Name)
	}

	return reply, nil
}

// SetProject points an already-joined user's sprint words at one of their
// projects.
func (m *Manager) SetProject(guild, user, shortname string) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	su, msg, err := m.participant(sp, guild, user)
	if err != nil {
		return msg, err
	}

	project, err := m.store.GetProject(user, shortname)
	if err != nil {
		return "", fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return m.lang.Getf("project:err:noexists", guild, shortname), errors.ErrNotFound
	}
	if err := m.store.SetSprintUserProject(sp.ID, su.UserID, project.ID); err != nil {
		return "", fmt.Errorf("setting sprint project: %w", err)
	}
	return m.lang.Getf("sprint:joinproject", guild, project.Name), nil
}

// Leave removes the user from the sprint. If nobody is left the sprint is
// cancelled and the creator's started count is taken back.
func (m *Manager) Leave(guild, user string) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	if _, msg, err := m.participant(sp, guild, user); err != nil {
		return msg, err
	}

	if err := m.store.DeleteSprintUser(sp.ID, user); err != nil {
		return "", fmt.Errorf("removing participant: %w", err)
	}

	remaining, err := m.store.SprintUsers(sp.ID)
	if err != nil {
		return "", fmt.Errorf("loading roster: %w", err)
	}
	if len(remaining) > 0 {
		return m.lang.Get("sprint:leave", guild), nil
	}

	if err := m.cancelSprint(sp); err != nil {
		return "", err
	}
	if err := m.store.AddUserStat(sp.CreatedBy, guild, store.StatSprintsStarted, -1); err != nil {
		m.logger.Error().Err(err).Str("user", sp.CreatedBy).Msg("failed to take back sprints_started")
	}
	return m.lang.Get("sprint:leave:cancelled", guild), nil
}

// DeclareTotal records the user's total word count. confirmed must be true
// to accept a declaration whose pace exceeds the WPM ceiling.
func (m *Manager) DeclareTotal(guild, user string, total int64, confirmed bool) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()
	return m.declare(guild, user, total, confirmed)
}

// DeclareWrote records a delta on top of the user's current count.
func (m *Manager) DeclareWrote(guild, user string, delta int64, confirmed bool) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	su, msg, err := m.participant(sp, guild, user)
	if err != nil {
		return msg, err
	}
	return m.declare(guild, user, su.CurrentWC+delta, confirmed)
}

func (m *Manager) declare(guild, user string, total int64, confirmed bool) (string, error) {
	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}

	now := m.now().Unix()
	if now < sp.Start {
		return m.lang.Get("sprint:err:notstarted", guild), errors.ErrSprintNotStarted
	}

	su, msg, err := m.participant(sp, guild, user)
	if err != nil {
		return msg, err
	}
	if su.SprintType == store.SprintTypeNoWordCount {
		return m.lang.Get("sprint:err:nonwordcount", guild), errors.ErrNonWordCount
	}
	if total < su.StartingWC {
		return m.lang.Getf("sprint:err:wclessthanstart", guild, su.StartingWC), errors.ErrWordCountBelowStart
	}

	written := total - su.StartingWC

	// Pace check. While the sprint runs the elapsed time is live; once it
	// has ended every declarer is measured against the frozen reference.
	seconds := sp.EndReference - su.TimeJoined
	if now < sp.End {
		seconds = now - su.TimeJoined
	}
	wpm := accounting.CalculateWPM(written, seconds)
	ceiling := m.wpmCeiling(user)
	if ceiling > 0 && wpm > float64(ceiling) && !confirmed {
		return m.lang.Getf("sprint:wpm:redeclare", guild, written, wpm),
			&errors.WPMConfirmError{Written: int(written), WPM: wpm, Ceiling: ceiling}
	}

	if now >= sp.End {
		if err := m.store.DeclareEndingWC(sp.ID, user, total); err != nil {
			return "", fmt.Errorf("storing final count: %w", err)
		}
		if err := m.tryComplete(sp); err != nil {
			return "", err
		}
	} else {
		if err := m.store.DeclareCurrentWC(sp.ID, user, total); err != nil {
			return "", fmt.Errorf("storing count: %w", err)
		}
	}
	return m.lang.Getf("sprint:declared", guild, total, written), nil
}

// Cancel abandons the sprint without results. Only the creator or a
// privileged caller may cancel.
func (m *Manager) Cancel(guild, user string, privileged bool) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	if sp.CreatedBy != user && !privileged {
		return m.lang.Get("sprint:err:cannotcancel", guild), errors.ErrPermission
	}

	users, err := m.store.SprintUsers(sp.ID)
	if err != nil {
		return "", fmt.Errorf("loading roster: %w", err)
	}
	if err := m.cancelSprint(sp); err != nil {
		return "", err
	}
	return m.lang.Getf("sprint:cancelled", guild, mentions(users)), nil
}

// ForceEnd ends the sprint now instead of at its scheduled time. Only the
// creator or a privileged caller may end early.
func (m *Manager) ForceEnd(guild, user string, privileged bool) (string, error) {
	lock := m.guildLock(guild)
	lock.Lock()
	defer lock.Unlock()

	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	if sp.CreatedBy != user && !privileged {
		return m.lang.Get("sprint:err:cannotend", guild), errors.ErrPermission
	}

	now := m.now().Unix()
	if now < sp.Start {
		return m.lang.Get("sprint:err:notstarted", guild), errors.ErrSprintNotStarted
	}
	if err := m.store.CancelTasks(TaskObject, sp.ID); err != nil {
		return "", fmt.Errorf("cancelling tasks: %w", err)
	}
	if err := m.store.UpdateSprintEnd(sp.ID, now); err != nil {
		return "", fmt.Errorf("moving sprint end: %w", err)
	}
	if err := m.store.UpdateSprintEndReference(sp.ID, now); err != nil {
		return "", fmt.Errorf("moving end reference: %w", err)
	}
	sp.End = now
	sp.EndReference = now

	if err := m.endSprint(sp); err != nil {
		return "", err
	}
	return "", nil
}

// Time reports where the sprint is in its lifecycle.
func (m *Manager) Time(guild string) (string, error) {
	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}

	now := m.now().Unix()
	switch {
	case now < sp.Start:
		left := sp.Start - now
		return m.lang.Getf("sprint:startsin", guild, left/60, left%60), nil
	case now < sp.End:
		left := sp.End - now
		return m.lang.Getf("sprint:timeleft", guild, left/60, left%60), nil
	default:
		return m.lang.Get("sprint:waitingforwc", guild), nil
	}
}

// Status reports the calling user's own progress in the sprint.
func (m *Manager) Status(guild, user string) (string, error) {
	sp, msg, err := m.activeSprint(guild)
	if err != nil {
		return msg, err
	}
	su, msg, err := m.participant(sp, guild, user)
	if err != nil {
		return msg, err
	}
	if su.SprintType == store.SprintTypeNoWordCount {
		return m.lang.Get("sprint:join:nowc", guild), nil
	}

	now := m.now().Unix()
	if now < sp.Start {
		return m.lang.Get("sprint:err:notstarted", guild), errors.ErrSprintNotStarted
	}

	written := su.Written()
	elapsed := now - su.TimeJoined
	if now >= sp.End {
		elapsed = sp.EndReference - su.TimeJoined
	}
	left := sp.End - now
	if left < 0 {
		left = 0
	}
	wpm := accounting.CalculateWPM(written, elapsed)
	return m.lang.Getf("sprint:status", guild, su.CurrentWC, written, wpm,
		float64(elapsed)/60, float64(left)/60), nil
}

// PersonalBest reports the user's best sprint pace in this guild.
func (m *Manager) PersonalBest(guild, user string) (string, error) {
	pb, ok, err := m.store.GetUserRecord(user, guild, store.RecordWPM)
	if err != nil {
		return "", fmt.Errorf("loading personal best: %w", err)
	}
	if !ok {
		return m.lang.Get("sprint:pb:none", guild), nil
	}
	return m.lang.Getf("sprint:pb", guild, int64(pb)), nil
}

// Notify opts the user in to start pings for this guild's sprints.
func (m *Manager) Notify(guild, user string) (string, error) {
	if err := m.store.SetUserGuildSetting(user, guild, store.SettingSprintNotify, "1"); err != nil {
		return "", fmt.Errorf("saving notify setting: %w", err)
	}
	return m.lang.Get("sprint:notified", guild), nil
}

// Forget opts the user out of start pings.
func (m *Manager) Forget(guild, user string) (string, error) {
	if err := m.store.SetUserGuildSetting(user, guild, store.SettingSprintNotify, "0"); err != nil {
		return "", fmt.Errorf("saving notify setting: %w", err)
	}
	return m.lang.Get("sprint:forgot", guild), nil
}

func (m *Manager) activeSprint(guild string) (*store.Sprint, string, error) {
	sp, err := m.store.CurrentSprint(guild)
	if err != nil {
		return nil, "", fmt.Errorf("loading sprint: %w", err)
	}
	if sp == nil {
		return nil, m.lang.Get("sprint:err:noexists", guild), errors.ErrNoSprint
	}
	return sp, "", nil
}

func (m *Manager) participant(sp *store.Sprint, guild, user string) (*store.SprintUser, string, error) {
	su, err := m.store.GetSprintUser(sp.ID, user)
	if err != nil {
		return nil, "", fmt.Errorf("loading participant: %w", err)
	}
	if su == nil {
		return nil, m.lang.Get("sprint:err:notjoined", guild), errors.ErrNotSprinting
	}
	return su, "", nil
}

func (m *Manager) cancelSprint(sp *store.Sprint) error {
	if err := m.store.CancelTasks(TaskObject, sp.ID); err != nil {
		return fmt.Errorf("cancelling tasks: %w", err)
	}
	if err := m.store.DeleteSprint(sp.ID); err != nil {
		return fmt.Errorf("deleting sprint: %w", err)
	}
	m.metrics.SprintsActive.Dec()
	return nil
}

// wpmCeiling is the user's maxwpm setting when set, else the configured
// default.
func (m *Manager) wpmCeiling(user string) int {
	raw, err := m.store.GetUserSetting(user, store.SettingMaxWPM)
	if err != nil || raw == "" {
		return m.opts.WPMCeiling
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return m.opts.WPMCeiling
	}
	return v
}

// localMinute is the current minute past the hour in the user's timezone.
// ok is false when the user has no usable timezone setting.
func (m *Manager) localMinute(user string) (minute int, ok bool) {
	tz, err := m.store.GetUserSetting(user, store.SettingTimezone)
	if err != nil || tz == "" {
		return 0, false
	}
	loc, err := tzcache.Location(tz)
	if err != nil {
		return 0, false
	}
	return m.now().In(loc).Minute(), true
}

func (m *Manager) notifyMentions(guild string) string {
	users, err := m.store.SprintNotifyUsers(guild)
	if err != nil {
		m.logger.Error().Err(err).Str("guild", guild).Msg("failed to load notify list")
		return ""
	}
	parts := make([]string, 0, len(users))
	for _, u := range users {
		parts = append(parts, mention(u))
	}
	return strings.Join(parts, " ")
}

func (m *Manager) send(channel, text string) {
	if m.notifier == nil || text == "" {
		return
	}
	if err := m.notifier.Send(channel, text); err != nil {
		m.logger.Error().Err(err).Str("channel", channel).Msg("failed to post sprint message")
	}
}

func mention(user string) string {
	return "<@" + user + ">"
}

func mentions(users []*store.SprintUser) string {
	parts := make([]string, 0, len(users))
	for _, u := range users {
		parts = append(parts, mention(u.UserID))
	}
	return strings.Join(parts, " ")
}

// standing is one leaderboard row.
type standing struct {
	user    string
	written int64
	wpm     float64
	newPB   bool
}

func sortStandings(rows []standing) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].written > rows[j].written
	})
}
