package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

func (d DateOnly) String() string { return d.Time.Format("2006-01-02") }

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. Password is hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	Password  string     `json:"-" db:"password"`
	Role      string     `json:"role" db:"role"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// athleteProfile maps to athlete_profiles: the biometrics the target calculator
// needs. Every biometric is nullable; a partial profile yields default targets.
type athleteProfile struct {
	UserID        int        `json:"user_id"        db:"user_id"`
	Sex           *string    `json:"sex"            db:"sex"`
	DateOfBirth   *DateOnly  `json:"date_of_birth"  db:"date_of_birth"`
	HeightCM      *float64   `json:"height_cm"      db:"height_cm"`
	WeightLBS     *float64   `json:"weight_lbs"     db:"weight_lbs"`
	ActivityLevel *string    `json:"activity_level" db:"activity_level"`
	Units         string     `json:"units"          db:"units"`
	UpdatedAt     *time.Time `json:"updated_at"     db:"updated_at"`

	// Computed from the profile with maintain/training; not stored.
	Targets *nutritionTargets `json:"targets,omitempty" db:"-"`
}

// bodyGoal maps to athlete_body_goals. At most one row per user is active.
type bodyGoal struct {
	ID               int        `json:"id"                  db:"id"`
	UserID           int        `json:"user_id"             db:"user_id"`
	GoalType         string     `json:"goal_type"           db:"goal_type"`
	TargetWeightLBS  *float64   `json:"target_weight_lbs"   db:"target_weight_lbs"`
	TargetBodyFatPct *float64   `json:"target_body_fat_pct" db:"target_body_fat_pct"`
	WeeklyChangeLBS  *float64   `json:"weekly_change_lbs"   db:"weekly_change_lbs"`
	IsActive         bool       `json:"is_active"           db:"is_active"`
	CreatedAt        *time.Time `json:"created_at"          db:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"          db:"updated_at"`
}

// athleteEvent maps to athlete_events, one row per (user, date).
type athleteEvent struct {
	ID        int        `json:"id"         db:"id"`
	UserID    int        `json:"user_id"    db:"user_id"`
	EventDate DateOnly   `json:"event_date" db:"event_date"`
	DayType   string     `json:"day_type"   db:"day_type"`
	Intensity *int       `json:"intensity"  db:"intensity"`
	Notes     *string    `json:"notes"      db:"notes"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// activityEntry maps to activity_log, the append-only source of truth for
// streaks and badges.
type activityEntry struct {
	ID           uuid.UUID  `json:"id"            db:"id"`
	UserID       int        `json:"user_id"       db:"user_id"`
	Module       string     `json:"module"        db:"module"`
	Kind         string     `json:"kind"          db:"kind"`
	Ref          string     `json:"ref"           db:"ref"`
	ActivityDate DateOnly   `json:"activity_date" db:"activity_date"`
	CreatedAt    *time.Time `json:"created_at"    db:"created_at"`
}

// streakRecord maps to user_streaks. It is always recomputed from
// activity_log, never incremented in place.
type streakRecord struct {
	UserID           int        `json:"user_id"            db:"user_id"`
	Module           string     `json:"module"             db:"module"`
	CurrentStreak    int        `json:"current_streak"     db:"current_streak"`
	LongestStreak    int        `json:"longest_streak"     db:"longest_streak"`
	TotalDays        int        `json:"total_days"         db:"total_days"`
	TotalWorkouts    int        `json:"total_workouts"     db:"total_workouts"`
	EarnedBadges     []string   `json:"earned_badges"      db:"earned_badges"`
	LastActivityDate *DateOnly  `json:"last_activity_date" db:"last_activity_date"`
	UpdatedAt        *time.Time `json:"updated_at"         db:"updated_at"`
}

// trainingSession maps to training_sessions. Loads are heuristic scores.
type trainingSession struct {
	ID          int        `json:"id"           db:"id"`
	UserID      int        `json:"user_id"      db:"user_id"`
	SessionDate DateOnly   `json:"session_date" db:"session_date"`
	Name        string     `json:"name"         db:"name"`
	CNSLoad     float64    `json:"cns_load"     db:"cns_load"`
	Compression float64    `json:"compression"  db:"compression"`
	Elastic     float64    `json:"elastic"      db:"elastic"`
	Glide       float64    `json:"glide"        db:"glide"`
	CreatedAt   *time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"   db:"updated_at"`
}

// dailyLoad is one day's load totals, scanned from a GROUP BY over
// training_sessions.
type dailyLoad struct {
	Date        DateOnly `json:"date"        db:"date"`
	CNSLoad     float64  `json:"cns_load"    db:"cns_load"`
	Compression float64  `json:"compression" db:"compression"`
	Elastic     float64  `json:"elastic"     db:"elastic"`
	Glide       float64  `json:"glide"       db:"glide"`
	Sessions    int      `json:"sessions"    db:"sessions"`
}

// athleteSchedule maps to athlete_schedules. LockedDays is a daySet bitmask.
type athleteSchedule struct {
	UserID     int        `db:"user_id"`
	LockedDays int        `db:"locked_days"`
	UpdatedAt  *time.Time `db:"updated_at"`
}

// taskSchedule maps to task_schedules. Days is a daySet bitmask.
type taskSchedule struct {
	UserID                int        `db:"user_id"`
	TaskKey               string     `db:"task_key"`
	Days                  int        `db:"days"`
	ReminderOffsetMinutes *int       `db:"reminder_offset_minutes"`
	UpdatedAt             *time.Time `db:"updated_at"`
}

// taskScheduleResponse is the JSON shape of a task schedule, with day names.
type taskScheduleResponse struct {
	TaskKey               string   `json:"task_key"`
	Days                  []string `json:"days"`
	ReminderOffsetMinutes *int     `json:"reminder_offset_minutes"`
}

// calendarEvent maps to calendar_events.
type calendarEvent struct {
	ID        int        `json:"id"         db:"id"`
	UserID    int        `json:"user_id"    db:"user_id"`
	EventDate DateOnly   `json:"event_date" db:"event_date"`
	Title     string     `json:"title"      db:"title"`
	EventType string     `json:"event_type" db:"event_type"`
	StartTime *string    `json:"start_time" db:"start_time"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// weeklyWellnessGoal maps to weekly_wellness_goals; unique per (user, week).
type weeklyWellnessGoal struct {
	ID        int        `json:"id"         db:"id"`
	UserID    int        `json:"user_id"    db:"user_id"`
	WeekStart DateOnly   `json:"week_start" db:"week_start"`
	Goal      string     `json:"goal"       db:"goal"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// userPreferences maps to user_preferences, the server-side home of settings
// that would otherwise live in browser storage.
type userPreferences struct {
	UserID              int        `json:"user_id"               db:"user_id"`
	DailySummaryEnabled bool       `json:"daily_summary_enabled" db:"daily_summary_enabled"`
	DailySummaryTime    string     `json:"daily_summary_time"    db:"daily_summary_time"`
	Timezone            string     `json:"timezone"              db:"timezone"`
	UpdatedAt           *time.Time `json:"updated_at"            db:"updated_at"`
}

/* ─── Request bodies ─────────────────────────────────────────────────── */

// patchProfileRequest is the request body for PATCH /api/profile.
// All fields are pointers: only non-nil fields get written to the database.
type patchProfileRequest struct {
	Sex           *string  `json:"sex"`
	DateOfBirth   *string  `json:"date_of_birth"` // YYYY-MM-DD string, stored as date
	HeightCM      *float64 `json:"height_cm"`
	WeightLBS     *float64 `json:"weight_lbs"`
	ActivityLevel *string  `json:"activity_level"`
	Units         *string  `json:"units"`
}

// createGoalRequest is the request body for POST /api/goals.
type createGoalRequest struct {
	GoalType         string   `json:"goal_type"`
	TargetWeightLBS  *float64 `json:"target_weight_lbs"`
	TargetBodyFatPct *float64 `json:"target_body_fat_pct"`
	WeeklyChangeLBS  *float64 `json:"weekly_change_lbs"`
}

// trainingSessionRequest is the request body for creating a session and for
// POST /api/load/advisory (the planned session).
type trainingSessionRequest struct {
	SessionDate string  `json:"session_date"`
	Name        string  `json:"name"`
	CNSLoad     float64 `json:"cns_load"`
	Compression float64 `json:"compression"`
	Elastic     float64 `json:"elastic"`
	Glide       float64 `json:"glide"`
}
