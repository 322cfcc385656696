package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// maxComponentLoad bounds every load score; anything larger is a typo.
const maxComponentLoad = 1000

// validate checks a session body. Name is only required when saving.
func (b trainingSessionRequest) validate(requireName bool) string {
	if b.SessionDate != "" {
		if _, err := parseDateParam(b.SessionDate); err != nil {
			return "invalid session_date, expected YYYY-MM-DD"
		}
	}
	if requireName && b.Name == "" {
		return "name is required"
	}
	for _, v := range []float64{b.CNSLoad, b.Compression, b.Elastic, b.Glide} {
		if v < 0 || v > maxComponentLoad {
			return "loads must be between 0 and 1000"
		}
	}
	return ""
}

// dailyLoads returns per-day load totals within [start, end], only for days
// that have sessions.
func (h *Handler) dailyLoads(ctx context.Context, userID int, start, end string) ([]dailyLoad, error) {
	return queryMany[dailyLoad](h.db, ctx,
		`SELECT
			session_date     AS date,
			SUM(cns_load)    AS cns_load,
			SUM(compression) AS compression,
			SUM(elastic)     AS elastic,
			SUM(glide)       AS glide,
			COUNT(*)::int    AS sessions
		 FROM training_sessions
		 WHERE user_id = @userID AND session_date >= @start AND session_date <= @end
		 GROUP BY session_date
		 ORDER BY session_date ASC`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
}

// listTrainingSessions returns sessions within [start, end].
// GET /api/load/sessions?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *Handler) listTrainingSessions(c *gin.Context) {
	userID := c.GetInt("user_id")
	start, end, ok := dateRangeParams(c)
	if !ok {
		return
	}

	sessions, err := queryMany[trainingSession](h.db, c,
		`SELECT * FROM training_sessions
		 WHERE user_id = @userID AND session_date >= @start AND session_date <= @end
		 ORDER BY session_date ASC, id ASC`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch sessions")
		return
	}
	// Ensure empty array (not null) in JSON
	if sessions == nil {
		sessions = []trainingSession{}
	}

	c.JSON(http.StatusOK, sessions)
}

// createTrainingSession records a session. Defaults session_date to today.
// POST /api/load/sessions.
func (h *Handler) createTrainingSession(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body trainingSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := body.validate(true); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if body.SessionDate == "" {
		body.SessionDate = time.Now().UTC().Format("2006-01-02")
	}

	s, err := queryOne[trainingSession](h.db, c,
		`INSERT INTO training_sessions (user_id, session_date, name, cns_load, compression, elastic, glide)
		 VALUES (@userID, @date, @name, @cns, @compression, @elastic, @glide)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "date": body.SessionDate, "name": body.Name,
			"cns": body.CNSLoad, "compression": body.Compression,
			"elastic": body.Elastic, "glide": body.Glide,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create session")
		return
	}

	c.JSON(http.StatusCreated, s)
}

// updateTrainingSession partially updates a session.
// PUT /api/load/sessions/:id. Uses COALESCE so omitted fields keep their current value.
func (h *Handler) updateTrainingSession(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, ok := idParam(c)
	if !ok {
		return
	}

	var body struct {
		SessionDate *string  `json:"session_date"`
		Name        *string  `json:"name"`
		CNSLoad     *float64 `json:"cns_load"`
		Compression *float64 `json:"compression"`
		Elastic     *float64 `json:"elastic"`
		Glide       *float64 `json:"glide"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SessionDate != nil {
		if _, err := parseDateParam(*body.SessionDate); err != nil {
			apiError(c, http.StatusBadRequest, "invalid session_date, expected YYYY-MM-DD")
			return
		}
	}
	if body.Name != nil && *body.Name == "" {
		apiError(c, http.StatusBadRequest, "name must not be empty")
		return
	}
	for _, v := range []*float64{body.CNSLoad, body.Compression, body.Elastic, body.Glide} {
		if v != nil && (*v < 0 || *v > maxComponentLoad) {
			apiError(c, http.StatusBadRequest, "loads must be between 0 and 1000")
			return
		}
	}

	s, err := queryOne[trainingSession](h.db, c,
		`UPDATE training_sessions SET
			session_date = COALESCE(@date, session_date),
			name         = COALESCE(@name, name),
			cns_load     = COALESCE(@cns, cns_load),
			compression  = COALESCE(@compression, compression),
			elastic      = COALESCE(@elastic, elastic),
			glide        = COALESCE(@glide, glide),
			updated_at   = now()
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{
			"id": id, "userID": userID,
			"date": body.SessionDate, "name": body.Name, "cns": body.CNSLoad,
			"compression": body.Compression, "elastic": body.Elastic, "glide": body.Glide,
		})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "session not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update session")
		}
		return
	}

	c.JSON(http.StatusOK, s)
}

// deleteTrainingSession removes a session by ID.
// DELETE /api/load/sessions/:id. Returns 204 on success, 404 if not found.
func (h *Handler) deleteTrainingSession(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, ok := idParam(c)
	if !ok {
		return
	}

	result, err := h.db.Exec(c,
		"DELETE FROM training_sessions WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "session not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// fillWeek expands per-day totals into the seven days starting at weekStart,
// with zeros for days without sessions.
func fillWeek(weekStart time.Time, rows []dailyLoad) []dailyLoad {
	byDate := make(map[string]dailyLoad, len(rows))
	for _, r := range rows {
		byDate[r.Date.String()] = r
	}

	week := make([]dailyLoad, 7)
	for i := range week {
		d := weekStart.AddDate(0, 0, i)
		day := byDate[d.Format("2006-01-02")]
		day.Date = DateOnly{d}
		week[i] = day
	}
	return week
}

// parseWeekStart returns the Monday of the week containing value, or of the
// current week when value is empty.
func parseWeekStart(value string) (time.Time, error) {
	if value == "" {
		return currentMonday(), nil
	}
	t, err := parseDateParam(value)
	if err != nil {
		return time.Time{}, err
	}
	return mondayOf(t), nil
}

// getLoadWeekSummary returns per-day load totals for the Monday to Sunday week
// containing week_start. Days without sessions are included with zeros.
// GET /api/load/week-summary?week_start=YYYY-MM-DD (defaults to current week).
func (h *Handler) getLoadWeekSummary(c *gin.Context) {
	userID := c.GetInt("user_id")

	weekStart, err := parseWeekStart(c.Query("week_start"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
		return
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	rows, err := h.dailyLoads(c, userID, weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"))
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch week load")
		return
	}

	c.JSON(http.StatusOK, fillWeek(weekStart, rows))
}

// postLoadAdvisory evaluates a planned session against the previous seven
// days of recorded load. Nothing is saved.
// POST /api/load/advisory. Body: same shape as a session; session_date defaults to today.
func (h *Handler) postLoadAdvisory(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body trainingSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := body.validate(false); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	date := time.Now().UTC()
	if body.SessionDate != "" {
		date, _ = parseDateParam(body.SessionDate)
	}

	history, err := h.dailyLoads(c, userID,
		date.AddDate(0, 0, -loadWindowDays).Format("2006-01-02"),
		date.AddDate(0, 0, -1).Format("2006-01-02"))
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch load history")
		return
	}

	advisories := evaluateLoad(body, history, date)
	for _, a := range advisories {
		loadAdvisoriesTotal.WithLabelValues(a.Code).Inc()
	}
	dateStr := date.Format("2006-01-02")
	if len(advisories) > 0 {
		h.hub.publish(userID, eventLoadAdvisory, gin.H{"date": dateStr, "advisories": advisories})
	}

	c.JSON(http.StatusOK, gin.H{"date": dateStr, "advisories": advisories})
}
