package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// activeGoal returns the user's active body goal, or nil when none is set.
// Reads go through the accessor cache; createGoal invalidates it.
func (h *Handler) activeGoal(ctx context.Context, userID int) (*bodyGoal, error) {
	keyFor := func(gen int64) string { return activeGoalKey(userID, gen) }
	g, err := cachedLoad(ctx, h.cache, userID, keyFor, func() (bodyGoal, error) {
		g, err := queryOne[bodyGoal](h.db, ctx,
			"SELECT * FROM athlete_body_goals WHERE user_id = @userID AND is_active",
			pgx.NamedArgs{"userID": userID})
		if errors.Is(err, pgx.ErrNoRows) {
			return g, errNotFound
		}
		return g, err
	})
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// getActiveGoal returns the active goal, or null when the user has none.
// GET /api/goals/active.
func (h *Handler) getActiveGoal(c *gin.Context) {
	userID := c.GetInt("user_id")

	g, err := h.activeGoal(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch active goal")
		return
	}

	c.JSON(http.StatusOK, g)
}

// listGoals returns the goal history, newest first.
// GET /api/goals.
func (h *Handler) listGoals(c *gin.Context) {
	userID := c.GetInt("user_id")

	goals, err := queryMany[bodyGoal](h.db, c,
		"SELECT * FROM athlete_body_goals WHERE user_id = @userID ORDER BY created_at DESC, id DESC",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch goals")
		return
	}
	if goals == nil {
		goals = []bodyGoal{}
	}

	c.JSON(http.StatusOK, goals)
}

// execQuerier is the part of pgx.Tx that createGoalTx needs.
type execQuerier interface {
	querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// createGoalTx deactivates the current goal and inserts the new one. The
// per-user advisory lock makes concurrent creates queue instead of racing on
// the one-active-goal index.
func createGoalTx(ctx context.Context, tx execQuerier, userID int, body createGoalRequest) (bodyGoal, error) {
	args := pgx.NamedArgs{"userID": userID}
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(@userID)", args); err != nil {
		return bodyGoal{}, err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE athlete_body_goals SET is_active = false, updated_at = now() WHERE user_id = @userID AND is_active",
		args); err != nil {
		return bodyGoal{}, err
	}
	return queryOne[bodyGoal](tx, ctx,
		`INSERT INTO athlete_body_goals (user_id, goal_type, target_weight_lbs, target_body_fat_pct, weekly_change_lbs)
		 VALUES (@userID, @goalType, @targetWeightLBS, @targetBodyFatPct, @weeklyChangeLBS)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID":           userID,
			"goalType":         body.GoalType,
			"targetWeightLBS":  body.TargetWeightLBS,
			"targetBodyFatPct": body.TargetBodyFatPct,
			"weeklyChangeLBS":  body.WeeklyChangeLBS,
		})
}

// createGoal makes a new goal the active one. The previous active goal is
// deactivated in the same transaction, so readers never see zero or two.
// POST /api/goals.
func (h *Handler) createGoal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createGoalRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := goalCalorieDelta[body.GoalType]; !ok {
		apiError(c, http.StatusBadRequest, "goal_type must be one of: cut, lean_cut, maintain, lean_gain, gain")
		return
	}
	if body.TargetWeightLBS != nil && *body.TargetWeightLBS <= 0 {
		apiError(c, http.StatusBadRequest, "target_weight_lbs must be positive")
		return
	}
	if body.TargetBodyFatPct != nil && (*body.TargetBodyFatPct <= 0 || *body.TargetBodyFatPct >= 100) {
		apiError(c, http.StatusBadRequest, "target_body_fat_pct must be between 0 and 100")
		return
	}

	start := time.Now()
	var created bodyGoal
	err := pgx.BeginFunc(c, h.db, func(tx pgx.Tx) error {
		var err error
		created, err = createGoalTx(c, tx, userID, body)
		return err
	})
	storeOpDuration.WithLabelValues(opCreateGoal).Observe(time.Since(start).Seconds())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create goal")
		return
	}
	invalidate(c, h.cache, userID)

	c.JSON(http.StatusCreated, created)
}
