package main

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

var validSexes = map[string]bool{"male": true, "female": true}

var validUnits = map[string]bool{"imperial": true, "metric": true}

// getProfile returns the biometrics for the authenticated user.
// Targets (maintain, training day) are populated when every biometric is present.
// GET /api/profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := queryOne[athleteProfile](h.db, c,
		"SELECT * FROM athlete_profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "profile not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch profile")
		}
		return
	}

	p.Targets = computeTargets(&p, goalMaintain, dayTraining, time.Now().UTC())

	c.JSON(http.StatusOK, p)
}

// validate rejects values that would make the profile unusable by the target
// calculator. An invalid value is a 400, not a silent null later.
func (b patchProfileRequest) validate(today time.Time) string {
	if b.Sex != nil && !validSexes[*b.Sex] {
		return "sex must be one of: male, female"
	}
	if b.ActivityLevel != nil {
		if _, ok := activityMultipliers[*b.ActivityLevel]; !ok {
			return "activity_level must be one of: sedentary, light, moderate, active, very_active"
		}
	}
	if b.DateOfBirth != nil {
		dob, err := parseDateParam(*b.DateOfBirth)
		if err != nil {
			return "invalid date_of_birth, expected YYYY-MM-DD"
		}
		if age := ageOn(dob, today); age < minAge || age > maxAge {
			return "date_of_birth must give an age between 13 and 100"
		}
	}
	if b.HeightCM != nil && (*b.HeightCM <= 0 || *b.HeightCM > 300) {
		return "height_cm must be between 0 and 300"
	}
	if b.WeightLBS != nil && (*b.WeightLBS <= 0 || *b.WeightLBS > 1500) {
		return "weight_lbs must be between 0 and 1500"
	}
	if b.Units != nil && !validUnits[*b.Units] {
		return "units must be one of: imperial, metric"
	}
	return ""
}

// patchProfile updates only the provided biometric fields.
// PATCH /api/profile. The row is created on first write, so a new user can
// PATCH without a prior GET.
func (h *Handler) patchProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	now := time.Now().UTC()
	if msg := body.validate(now); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	// Build SET clause dynamically: only update fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}

	if body.Sex != nil {
		setClauses = append(setClauses, "sex = @sex")
		args["sex"] = *body.Sex
	}
	if body.DateOfBirth != nil {
		setClauses = append(setClauses, "date_of_birth = @dateOfBirth")
		args["dateOfBirth"] = *body.DateOfBirth
	}
	if body.HeightCM != nil {
		setClauses = append(setClauses, "height_cm = @heightCM")
		args["heightCM"] = *body.HeightCM
	}
	if body.WeightLBS != nil {
		setClauses = append(setClauses, "weight_lbs = @weightLBS")
		args["weightLBS"] = *body.WeightLBS
	}
	if body.ActivityLevel != nil {
		setClauses = append(setClauses, "activity_level = @activityLevel")
		args["activityLevel"] = *body.ActivityLevel
	}
	if body.Units != nil {
		setClauses = append(setClauses, "units = @units")
		args["units"] = *body.Units
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}
	setClauses = append(setClauses, "updated_at = now()")

	// Ensure the row exists so the UPDATE below always has a target.
	if _, err := h.db.Exec(c,
		"INSERT INTO athlete_profiles (user_id) VALUES (@userID) ON CONFLICT (user_id) DO NOTHING",
		pgx.NamedArgs{"userID": userID}); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	query := "UPDATE athlete_profiles SET " +
		strings.Join(setClauses, ", ") +
		" WHERE user_id = @userID RETURNING *"

	p, err := queryOne[athleteProfile](h.db, c, query, args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	p.Targets = computeTargets(&p, goalMaintain, dayTraining, now)

	c.JSON(http.StatusOK, p)
}

// targetsResponse is the body of GET /api/targets.
type targetsResponse struct {
	Date      string           `json:"date"`
	GoalType  string           `json:"goal_type"`
	DayType   string           `json:"day_type"`
	Targets   nutritionTargets `json:"targets"`
	IsDefault bool             `json:"is_default"`
}

// getTargets computes the day's calorie and macro targets from the profile,
// the active goal and the day's event, loaded concurrently.
// GET /api/targets?date=YYYY-MM-DD (date defaults to today, UTC).
// Missing biometrics never fail the request: the defaults come back instead.
func (h *Handler) getTargets(c *gin.Context) {
	userID := c.GetInt("user_id")

	now := time.Now().UTC()
	date := c.DefaultQuery("date", now.Format("2006-01-02"))
	if _, err := parseDateParam(date); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	var (
		profile *athleteProfile
		goal    *bodyGoal
		event   *athleteEvent
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		p, err := queryOne[athleteProfile](h.db, ctx,
			"SELECT * FROM athlete_profiles WHERE user_id = @userID",
			pgx.NamedArgs{"userID": userID})
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		profile = &p
		return nil
	})
	g.Go(func() (err error) {
		goal, err = h.activeGoal(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		event, err = h.eventFor(ctx, userID, date)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("[getTargets] user %d date %s: %v", userID, date, err)
		apiError(c, http.StatusInternalServerError, "failed to load targets")
		return
	}

	resp := targetsResponse{Date: date, GoalType: goalMaintain, DayType: dayTraining}
	if goal != nil {
		resp.GoalType = goal.GoalType
	}
	if event != nil {
		resp.DayType = event.DayType
	}

	if t := computeTargets(profile, resp.GoalType, resp.DayType, now); t != nil {
		resp.Targets = *t
	} else {
		resp.Targets = defaultTargets()
		resp.IsDefault = true
	}

	c.JSON(http.StatusOK, resp)
}
