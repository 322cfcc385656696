package main

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// daySet is a set of weekdays stored as a bitmask, bit 0 = Sunday.
type daySet int

var dayNames = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func (s daySet) has(d time.Weekday) bool       { return s&(1<<d) != 0 }
func (s daySet) with(d time.Weekday) daySet    { return s | 1<<d }
func (s daySet) without(d time.Weekday) daySet { return s &^ (1 << d) }
func (s daySet) minus(o daySet) daySet         { return s &^ o }

// names lists the days in s, Sunday first. Never nil.
func (s daySet) names() []string {
	out := []string{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.has(d) {
			out = append(out, dayNames[d])
		}
	}
	return out
}

// daySetFromNames parses day names ("mon", "tue", ...). Duplicates are ignored.
func daySetFromNames(names []string) (daySet, error) {
	var s daySet
	for _, n := range names {
		found := false
		for d, name := range dayNames {
			if n == name {
				s = s.with(time.Weekday(d))
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown day %q, expected one of sun, mon, tue, wed, thu, fri, sat", n)
		}
	}
	return s, nil
}

// lockSession is the state of the lock-days picker. Days that were locked when
// the session opened stay selected and cannot be toggled off; only newly
// selected days are saved.
type lockSession struct {
	locked   daySet
	selected daySet
}

func newLockSession(locked daySet) *lockSession {
	return &lockSession{locked: locked, selected: locked}
}

// toggle flips d unless it is already locked.
func (s *lockSession) toggle(d time.Weekday) {
	if s.locked.has(d) {
		return
	}
	if s.selected.has(d) {
		s.selected = s.selected.without(d)
	} else {
		s.selected = s.selected.with(d)
	}
}

// pending is what saving the session would add to the locked set.
func (s *lockSession) pending() daySet { return s.selected.minus(s.locked) }

// diffDaySets returns the days to unlock and to lock to move from prev to next.
func diffDaySets(prev, next daySet) (toUnlock, toLock daySet) {
	return prev.minus(next), next.minus(prev)
}

/* ─── Locked days ────────────────────────────────────────────────────── */

type daysRequest struct {
	Days []string `json:"days"`
}

// currentLockedDays returns the stored locked set, or the empty set for a user
// without a schedule row.
func (h *Handler) currentLockedDays(c *gin.Context, userID int) (daySet, error) {
	s, err := queryOne[athleteSchedule](h.db, c,
		"SELECT * FROM athlete_schedules WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return daySet(s.LockedDays), err
}

// getSchedule returns the locked days.
// GET /api/schedule.
func (h *Handler) getSchedule(c *gin.Context) {
	userID := c.GetInt("user_id")

	locked, err := h.currentLockedDays(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"locked_days": locked.names()})
}

// lockDays adds newly selected days to the locked set. Days that are already
// locked are ignored, and a request with nothing new writes nothing.
// POST /api/schedule/lock-days. Body: { "days": ["mon", "thu"] }.
func (h *Handler) lockDays(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body daysRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	requested, err := daySetFromNames(body.Days)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	locked, err := h.currentLockedDays(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch schedule")
		return
	}
	session := newLockSession(locked)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if requested.has(d) {
			session.toggle(d)
		}
	}
	pending := session.pending()
	if pending == 0 {
		c.JSON(http.StatusOK, gin.H{"changed": false, "locked_days": locked.names(), "added": []string{}})
		return
	}

	// OR-ing keeps a concurrent lock from being lost.
	s, err := queryOne[athleteSchedule](h.db, c,
		`INSERT INTO athlete_schedules (user_id, locked_days) VALUES (@userID, @pending)
		 ON CONFLICT (user_id) DO UPDATE SET
			locked_days = athlete_schedules.locked_days | EXCLUDED.locked_days,
			updated_at  = now()
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "pending": int(pending)})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to lock days")
		return
	}

	c.JSON(http.StatusOK, gin.H{"changed": true, "locked_days": daySet(s.LockedDays).names(), "added": pending.names()})
}

// setLockedDays replaces the locked set. The unlock and lock lists computed
// from the stored set are applied together in one transaction.
// PUT /api/schedule/locked-days. Body: { "days": ["sat", "sun"] }.
func (h *Handler) setLockedDays(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body daysRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	next, err := daySetFromNames(body.Days)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	var (
		stored           athleteSchedule
		toUnlock, toLock daySet
	)
	err = pgx.BeginFunc(c, h.db, func(tx pgx.Tx) error {
		args := pgx.NamedArgs{"userID": userID}
		if _, err := tx.Exec(c,
			"INSERT INTO athlete_schedules (user_id) VALUES (@userID) ON CONFLICT (user_id) DO NOTHING", args); err != nil {
			return err
		}
		prev, err := queryOne[athleteSchedule](tx, c,
			"SELECT * FROM athlete_schedules WHERE user_id = @userID FOR UPDATE", args)
		if err != nil {
			return err
		}
		toUnlock, toLock = diffDaySets(daySet(prev.LockedDays), next)
		if toUnlock == 0 && toLock == 0 {
			stored = prev
			return nil
		}
		stored, err = queryOne[athleteSchedule](tx, c,
			`UPDATE athlete_schedules
			 SET locked_days = (locked_days & ~@toUnlock) | @toLock, updated_at = now()
			 WHERE user_id = @userID
			 RETURNING *`,
			pgx.NamedArgs{"userID": userID, "toUnlock": int(toUnlock), "toLock": int(toLock)})
		return err
	})
	storeOpDuration.WithLabelValues(opSetLockedDays).Observe(time.Since(start).Seconds())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update locked days")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"locked_days": daySet(stored.LockedDays).names(),
		"unlocked":    toUnlock.names(),
		"locked":      toLock.names(),
	})
}

/* ─── Task schedules ─────────────────────────────────────────────────── */

var taskKeyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

const maxReminderOffsetMinutes = 24 * 60

func (t taskSchedule) response() taskScheduleResponse {
	return taskScheduleResponse{
		TaskKey:               t.TaskKey,
		Days:                  daySet(t.Days).names(),
		ReminderOffsetMinutes: t.ReminderOffsetMinutes,
	}
}

// listTaskSchedules returns every task schedule for the user, ordered by key.
// GET /api/schedule/tasks.
func (h *Handler) listTaskSchedules(c *gin.Context) {
	userID := c.GetInt("user_id")

	rows, err := queryMany[taskSchedule](h.db, c,
		"SELECT * FROM task_schedules WHERE user_id = @userID ORDER BY task_key",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch task schedules")
		return
	}

	out := make([]taskScheduleResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.response())
	}

	c.JSON(http.StatusOK, out)
}

// upsertTaskSchedule sets the days and reminder offset for one task.
// PUT /api/schedule/tasks/:key. Body: { "days": ["mon"], "reminder_offset_minutes"?: 30 }.
func (h *Handler) upsertTaskSchedule(c *gin.Context) {
	userID := c.GetInt("user_id")
	key := c.Param("key")

	if !taskKeyPattern.MatchString(key) {
		apiError(c, http.StatusBadRequest, "task key must be 1-64 lowercase letters, digits or underscores")
		return
	}
	var body struct {
		Days                  []string `json:"days"`
		ReminderOffsetMinutes *int     `json:"reminder_offset_minutes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	days, err := daySetFromNames(body.Days)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	if r := body.ReminderOffsetMinutes; r != nil && (*r < 0 || *r > maxReminderOffsetMinutes) {
		apiError(c, http.StatusBadRequest, "reminder_offset_minutes must be between 0 and 1440")
		return
	}

	t, err := queryOne[taskSchedule](h.db, c,
		`INSERT INTO task_schedules (user_id, task_key, days, reminder_offset_minutes)
		 VALUES (@userID, @key, @days, @offset)
		 ON CONFLICT (user_id, task_key) DO UPDATE SET
			days                    = EXCLUDED.days,
			reminder_offset_minutes = EXCLUDED.reminder_offset_minutes,
			updated_at              = now()
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "key": key, "days": int(days), "offset": body.ReminderOffsetMinutes})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save task schedule")
		return
	}

	c.JSON(http.StatusOK, t.response())
}

// deleteTaskSchedule removes one task schedule.
// DELETE /api/schedule/tasks/:key. Returns 204 on success, 404 if not found.
func (h *Handler) deleteTaskSchedule(c *gin.Context) {
	userID := c.GetInt("user_id")
	key := c.Param("key")

	result, err := h.db.Exec(c,
		"DELETE FROM task_schedules WHERE user_id = @userID AND task_key = @key",
		pgx.NamedArgs{"userID": userID, "key": key})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete task schedule")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "task schedule not found")
		return
	}

	c.Status(http.StatusNoContent)
}
