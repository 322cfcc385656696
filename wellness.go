package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

const maxWellnessGoalLen = 500

// getWeeklyWellnessGoal returns this week's goal, or null when none is set.
// GET /api/wellness/weekly-goal.
func (h *Handler) getWeeklyWellnessGoal(c *gin.Context) {
	userID := c.GetInt("user_id")
	weekStart := currentMonday().Format("2006-01-02")

	g, err := queryOne[weeklyWellnessGoal](h.db, c,
		"SELECT * FROM weekly_wellness_goals WHERE user_id = @userID AND week_start = @weekStart",
		pgx.NamedArgs{"userID": userID, "weekStart": weekStart})
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusOK, gin.H{"week_start": weekStart, "goal": nil})
		return
	}
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch weekly goal")
		return
	}

	c.JSON(http.StatusOK, gin.H{"week_start": weekStart, "goal": g})
}

// createWeeklyWellnessGoal sets this week's goal. A goal can be set once per
// week; a second attempt (including a concurrent one) is reported as
// already_set rather than an error.
// POST /api/wellness/weekly-goal. Body: { "goal": "..." }.
func (h *Handler) createWeeklyWellnessGoal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Goal string `json:"goal"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Goal = strings.TrimSpace(body.Goal)
	if body.Goal == "" {
		apiError(c, http.StatusBadRequest, "goal is required")
		return
	}
	if len(body.Goal) > maxWellnessGoalLen {
		apiError(c, http.StatusBadRequest, "goal must be at most 500 characters")
		return
	}
	weekStart := currentMonday().Format("2006-01-02")

	g, err := queryOne[weeklyWellnessGoal](h.db, c,
		`INSERT INTO weekly_wellness_goals (user_id, week_start, goal)
		 VALUES (@userID, @weekStart, @goal)
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "weekStart": weekStart, "goal": body.Goal})
	if isUniqueViolation(err) {
		c.JSON(http.StatusOK, gin.H{"already_set": true, "week_start": weekStart})
		return
	}
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save weekly goal")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"already_set": false, "week_start": weekStart, "goal": g})
}
