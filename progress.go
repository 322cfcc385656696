package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// emptyStreakRecord is what a module reports before its first activity.
func emptyStreakRecord(userID int, module string) streakRecord {
	return streakRecord{UserID: userID, Module: module, EarnedBadges: []string{}}
}

// recordActivityTx appends one activity and rewrites the module's streak record
// from the full log. A per-user advisory lock serializes concurrent recordings
// so badge evaluation always sees the latest earned list.
// Returns errAlreadyRecorded when the same activity already exists that day.
func recordActivityTx(ctx context.Context, tx pgx.Tx, entry activityEntry, today time.Time) (streakRecord, []string, error) {
	args := pgx.NamedArgs{"userID": entry.UserID, "module": entry.Module}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(@userID)", args); err != nil {
		return streakRecord{}, nil, err
	}

	result, err := tx.Exec(ctx,
		`INSERT INTO activity_log (id, user_id, module, kind, ref, activity_date)
		 VALUES (@id, @userID, @module, @kind, @ref, @date)
		 ON CONFLICT (user_id, module, kind, ref, activity_date) DO NOTHING`,
		pgx.NamedArgs{
			"id":     entry.ID,
			"userID": entry.UserID,
			"module": entry.Module,
			"kind":   entry.Kind,
			"ref":    entry.Ref,
			"date":   entry.ActivityDate.String(),
		})
	if err != nil {
		return streakRecord{}, nil, err
	}
	if result.RowsAffected() == 0 {
		return streakRecord{}, nil, errAlreadyRecorded
	}

	existing, err := queryOne[streakRecord](tx, ctx,
		"SELECT * FROM user_streaks WHERE user_id = @userID AND module = @module FOR UPDATE", args)
	if errors.Is(err, pgx.ErrNoRows) {
		existing = emptyStreakRecord(entry.UserID, entry.Module)
	} else if err != nil {
		return streakRecord{}, nil, err
	}

	entries, err := queryMany[activityEntry](tx, ctx,
		"SELECT * FROM activity_log WHERE user_id = @userID AND module = @module ORDER BY activity_date", args)
	if err != nil {
		return streakRecord{}, nil, err
	}

	progress := deriveProgress(entries, today)
	unlocked := evaluateBadges(entry.Module, progress, existing.EarnedBadges)
	earned := append(append([]string{}, existing.EarnedBadges...), unlocked...)

	var lastActive *string
	if !progress.LastActive.IsZero() {
		s := progress.LastActive.Format("2006-01-02")
		lastActive = &s
	}

	rec, err := queryOne[streakRecord](tx, ctx,
		`INSERT INTO user_streaks
			(user_id, module, current_streak, longest_streak, total_days, total_workouts, earned_badges, last_activity_date, updated_at)
		 VALUES (@userID, @module, @current, @longest, @totalDays, @totalWorkouts, @earned, @lastActive, now())
		 ON CONFLICT (user_id, module) DO UPDATE SET
			current_streak     = EXCLUDED.current_streak,
			longest_streak     = EXCLUDED.longest_streak,
			total_days         = EXCLUDED.total_days,
			total_workouts     = EXCLUDED.total_workouts,
			earned_badges      = EXCLUDED.earned_badges,
			last_activity_date = EXCLUDED.last_activity_date,
			updated_at         = now()
		 RETURNING *`,
		pgx.NamedArgs{
			"userID":        entry.UserID,
			"module":        entry.Module,
			"current":       progress.CurrentStreak,
			"longest":       progress.LongestStreak,
			"totalDays":     progress.ActiveDays,
			"totalWorkouts": progress.Workouts,
			"earned":        earned,
			"lastActive":    lastActive,
		})
	if err != nil {
		return streakRecord{}, nil, err
	}
	return rec, unlocked, nil
}

// recordActivity logs a qualifying action and returns the recomputed progress.
// POST /api/progress/:module/activity. Body: { "kind": "section_completed", "ref"?: "macros", "date"?: "YYYY-MM-DD" }.
// Recording the same activity twice is not an error: the second call returns
// 200 with already_recorded=true and the unchanged record.
func (h *Handler) recordActivity(c *gin.Context) {
	userID := c.GetInt("user_id")
	module := c.Param("module")

	var body struct {
		Kind string `json:"kind"`
		Ref  string `json:"ref"`
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateActivity(module, body.Kind, body.Ref); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errInvalidModule) {
			status = http.StatusNotFound
		}
		apiError(c, status, err.Error())
		return
	}

	today := time.Now().UTC()
	date := today
	if body.Date != "" {
		d, err := parseDateParam(body.Date)
		if err != nil {
			apiError(c, http.StatusBadRequest, err.Error())
			return
		}
		if dayNumber(d) > dayNumber(today) {
			apiError(c, http.StatusBadRequest, "date must not be in the future")
			return
		}
		date = d
	}

	entry := activityEntry{
		ID:           uuid.New(),
		UserID:       userID,
		Module:       module,
		Kind:         body.Kind,
		Ref:          body.Ref,
		ActivityDate: DateOnly{time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)},
	}

	start := time.Now()
	var (
		rec      streakRecord
		unlocked []string
	)
	err := pgx.BeginFunc(c, h.db, func(tx pgx.Tx) error {
		var err error
		rec, unlocked, err = recordActivityTx(c, tx, entry, today)
		return err
	})
	storeOpDuration.WithLabelValues(opRecordActivity).Observe(time.Since(start).Seconds())

	if errors.Is(err, errAlreadyRecorded) {
		rec, err = h.streakRecordFor(c, userID, module, today)
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to fetch progress")
			return
		}
		c.JSON(http.StatusOK, gin.H{"already_recorded": true, "progress": rec, "new_badges": []string{}})
		return
	}
	if err != nil {
		log.Printf("[recordActivity] user %d module %s: %v", userID, module, err)
		apiError(c, http.StatusInternalServerError, "failed to record activity")
		return
	}

	rec.refresh(today)
	if len(unlocked) > 0 {
		badgesUnlockedTotal.WithLabelValues(module).Add(float64(len(unlocked)))
		for _, id := range unlocked {
			h.hub.publish(userID, eventBadgeUnlocked, gin.H{"module": module, "badge": id})
		}
	}

	c.JSON(http.StatusCreated, gin.H{"already_recorded": false, "progress": rec, "new_badges": unlocked})
}

// streakRecordFor returns the stored record for one module, or an empty one
// when the user has no activity there yet.
func (h *Handler) streakRecordFor(ctx context.Context, userID int, module string, today time.Time) (streakRecord, error) {
	rec, err := queryOne[streakRecord](h.db, ctx,
		"SELECT * FROM user_streaks WHERE user_id = @userID AND module = @module",
		pgx.NamedArgs{"userID": userID, "module": module})
	if errors.Is(err, pgx.ErrNoRows) {
		return emptyStreakRecord(userID, module), nil
	}
	if err != nil {
		return streakRecord{}, err
	}
	rec.refresh(today)
	return rec, nil
}

// progressFor returns one record per module in display order, filling modules
// without activity with empty records.
func (h *Handler) progressFor(ctx context.Context, userID int, today time.Time) ([]streakRecord, error) {
	stored, err := queryMany[streakRecord](h.db, ctx,
		"SELECT * FROM user_streaks WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		return nil, err
	}
	byModule := make(map[string]streakRecord, len(stored))
	for _, r := range stored {
		byModule[r.Module] = r
	}

	out := make([]streakRecord, 0, len(moduleOrder))
	for _, m := range moduleOrder {
		r, ok := byModule[m]
		if !ok {
			r = emptyStreakRecord(userID, m)
		}
		r.refresh(today)
		out = append(out, r)
	}
	return out, nil
}

// getProgress returns the streak record for one module.
// GET /api/progress/:module.
func (h *Handler) getProgress(c *gin.Context) {
	userID := c.GetInt("user_id")
	module := c.Param("module")

	if _, ok := catalogs[module]; !ok {
		apiError(c, http.StatusNotFound, errInvalidModule.Error())
		return
	}

	rec, err := h.streakRecordFor(c, userID, module, time.Now().UTC())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress")
		return
	}

	c.JSON(http.StatusOK, rec)
}

// listProgress returns the records for every module.
// GET /api/progress.
func (h *Handler) listProgress(c *gin.Context) {
	userID := c.GetInt("user_id")

	recs, err := h.progressFor(c, userID, time.Now().UTC())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress")
		return
	}

	c.JSON(http.StatusOK, recs)
}

// getAthleteProgressForCoach returns another user's records.
// GET /api/coach/athletes/:id/progress (coach or admin role).
func (h *Handler) getAthleteProgressForCoach(c *gin.Context) {
	athleteID, err := strconv.Atoi(c.Param("id"))
	if err != nil || athleteID <= 0 {
		apiError(c, http.StatusBadRequest, "invalid athlete id")
		return
	}

	recs, err := h.progressFor(c, athleteID, time.Now().UTC())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{"athlete_id": athleteID, "progress": recs})
}
