package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// eventFor returns the athlete's event on date (YYYY-MM-DD), or nil when the
// day has none. Reads go through the accessor cache.
func (h *Handler) eventFor(ctx context.Context, userID int, date string) (*athleteEvent, error) {
	keyFor := func(gen int64) string { return athleteEventKey(userID, gen, date) }
	ev, err := cachedLoad(ctx, h.cache, userID, keyFor, func() (athleteEvent, error) {
		ev, err := queryOne[athleteEvent](h.db, ctx,
			"SELECT * FROM athlete_events WHERE user_id = @userID AND event_date = @date",
			pgx.NamedArgs{"userID": userID, "date": date})
		if errors.Is(err, pgx.ErrNoRows) {
			return ev, errNotFound
		}
		return ev, err
	})
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// listAthleteEvents returns day events for the authenticated user within [start, end].
// GET /api/events?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Returns an empty array (not null) if no events exist in the range.
func (h *Handler) listAthleteEvents(c *gin.Context) {
	userID := c.GetInt("user_id")
	start, end, ok := dateRangeParams(c)
	if !ok {
		return
	}

	events, err := queryMany[athleteEvent](h.db, c,
		`SELECT * FROM athlete_events
		 WHERE user_id = @userID AND event_date >= @start AND event_date <= @end
		 ORDER BY event_date ASC`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch events")
		return
	}
	if events == nil {
		events = []athleteEvent{}
	}

	c.JSON(http.StatusOK, events)
}

// upsertAthleteEvent creates or replaces the event for the date in the path.
// PUT /api/events/:date. Body: { "day_type": "game", "intensity"?: 8, "notes"? }.
// The UNIQUE(user_id, event_date) constraint means a second PUT updates in place.
func (h *Handler) upsertAthleteEvent(c *gin.Context) {
	userID := c.GetInt("user_id")
	date := c.Param("date")

	if _, err := parseDateParam(date); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		DayType   string  `json:"day_type"`
		Intensity *int    `json:"intensity"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := dayTypeFactor[body.DayType]; !ok {
		apiError(c, http.StatusBadRequest, "day_type must be one of: training, game, rest")
		return
	}
	if body.Intensity != nil && (*body.Intensity < 1 || *body.Intensity > 10) {
		apiError(c, http.StatusBadRequest, "intensity must be between 1 and 10")
		return
	}

	ev, err := queryOne[athleteEvent](h.db, c,
		`INSERT INTO athlete_events (user_id, event_date, day_type, intensity, notes)
		 VALUES (@userID, @date, @dayType, @intensity, @notes)
		 ON CONFLICT (user_id, event_date) DO UPDATE SET
			day_type   = EXCLUDED.day_type,
			intensity  = EXCLUDED.intensity,
			notes      = EXCLUDED.notes,
			updated_at = now()
		 RETURNING *`,
		pgx.NamedArgs{
			"userID":    userID,
			"date":      date,
			"dayType":   body.DayType,
			"intensity": body.Intensity,
			"notes":     body.Notes,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save event")
		return
	}
	invalidate(c, h.cache, userID)

	c.JSON(http.StatusOK, ev)
}

// deleteAthleteEvent removes the event on the given date.
// DELETE /api/events/:date. Returns 204 on success, 404 if not found.
func (h *Handler) deleteAthleteEvent(c *gin.Context) {
	userID := c.GetInt("user_id")
	date := c.Param("date")

	if _, err := parseDateParam(date); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.db.Exec(c,
		"DELETE FROM athlete_events WHERE user_id = @userID AND event_date = @date",
		pgx.NamedArgs{"userID": userID, "date": date})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete event")
		return
	}
	invalidate(c, h.cache, userID)
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "event not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// dateRangeParams reads the required start/end query params, writing a 400
// and returning ok=false when either is missing, malformed or reversed.
func dateRangeParams(c *gin.Context) (start, end string, ok bool) {
	start = c.Query("start")
	end = c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return "", "", false
	}
	if _, err := parseDateParam(start); err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return "", "", false
	}
	if _, err := parseDateParam(end); err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return "", "", false
	}
	if start > end {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return "", "", false
	}
	return start, end, true
}
