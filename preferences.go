package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// defaultPreferences is returned for a user who has never saved any.
// Keep in sync with the column defaults on user_preferences.
func defaultPreferences(userID int) userPreferences {
	return userPreferences{UserID: userID, DailySummaryTime: "07:00", Timezone: "UTC"}
}

type patchPreferencesRequest struct {
	DailySummaryEnabled *bool   `json:"daily_summary_enabled"`
	DailySummaryTime    *string `json:"daily_summary_time"` // HH:MM, 24h
	Timezone            *string `json:"timezone"`           // IANA name
}

func (b patchPreferencesRequest) validate() string {
	if b.DailySummaryTime != nil {
		if _, err := time.Parse("15:04", *b.DailySummaryTime); err != nil {
			return "daily_summary_time must be HH:MM"
		}
	}
	if b.Timezone != nil {
		if *b.Timezone == "" {
			return "timezone must not be empty"
		}
		if _, err := time.LoadLocation(*b.Timezone); err != nil {
			return "unknown timezone"
		}
	}
	return ""
}

// getPreferences returns the stored preferences, or the defaults.
// GET /api/preferences.
func (h *Handler) getPreferences(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := queryOne[userPreferences](h.db, c,
		"SELECT * FROM user_preferences WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusOK, defaultPreferences(userID))
		return
	}
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch preferences")
		return
	}

	c.JSON(http.StatusOK, p)
}

// patchPreferences updates only the provided fields, creating the row on first write.
// PATCH /api/preferences.
func (h *Handler) patchPreferences(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchPreferencesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}

	if body.DailySummaryEnabled != nil {
		setClauses = append(setClauses, "daily_summary_enabled = @enabled")
		args["enabled"] = *body.DailySummaryEnabled
	}
	if body.DailySummaryTime != nil {
		setClauses = append(setClauses, "daily_summary_time = @time")
		args["time"] = *body.DailySummaryTime
	}
	if body.Timezone != nil {
		setClauses = append(setClauses, "timezone = @timezone")
		args["timezone"] = *body.Timezone
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}
	setClauses = append(setClauses, "updated_at = now()")

	// Ensure the row exists so the UPDATE below always has a target.
	if _, err := h.db.Exec(c,
		"INSERT INTO user_preferences (user_id) VALUES (@userID) ON CONFLICT (user_id) DO NOTHING",
		pgx.NamedArgs{"userID": userID}); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update preferences")
		return
	}

	query := "UPDATE user_preferences SET " +
		strings.Join(setClauses, ", ") +
		" WHERE user_id = @userID RETURNING *"

	p, err := queryOne[userPreferences](h.db, c, query, args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update preferences")
		return
	}

	c.JSON(http.StatusOK, p)
}
