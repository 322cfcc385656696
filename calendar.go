package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// Event types that a rest day never moves or deletes.
var mandatoryEventTypes = map[string]bool{
	"game":           true,
	"coach_assigned": true,
	"tryout":         true,
}

var validEventTypes = map[string]bool{
	"game":           true,
	"coach_assigned": true,
	"tryout":         true,
	"practice":       true,
	"workout":        true,
	"recovery":       true,
	"lesson":         true,
	"personal":       true,
}

func isMandatory(e calendarEvent) bool { return mandatoryEventTypes[e.EventType] }

const (
	restMoveNextOpen = "move_next_open"
	restPushForward  = "push_forward"
	restClear        = "clear"
)

// openDayHorizon is how far ahead move_next_open looks for an empty day.
const openDayHorizon = 14

var errUnknownRestAction = errors.New("action must be one of: move_next_open, push_forward, clear")

// eventMove reschedules one event.
type eventMove struct {
	ID   int      `json:"id"`
	From DateOnly `json:"from"`
	To   DateOnly `json:"to"`
}

// restDayPlan is the full set of writes a rest-day action makes. It is
// computed before anything is written and then applied in one transaction.
type restDayPlan struct {
	Action     string      `json:"action"`
	Date       DateOnly    `json:"date"`
	TargetDate *DateOnly   `json:"target_date,omitempty"` // move_next_open only
	Moves      []eventMove `json:"moves"`
	Deletes    []int       `json:"deletes"`
	Kept       []int       `json:"kept"` // mandatory events left on date
}

// nextOpenDate returns the first day after date, up to openDayHorizon days
// ahead, that has no events at all. If every day is taken it returns the
// next day.
func nextOpenDate(date time.Time, events []calendarEvent) time.Time {
	busy := make(map[int]bool, len(events))
	for _, e := range events {
		busy[dayNumber(e.EventDate.Time)] = true
	}
	start := dayNumber(date)
	for k := 1; k <= openDayHorizon; k++ {
		if !busy[start+k] {
			return date.AddDate(0, 0, k)
		}
	}
	return date.AddDate(0, 0, 1)
}

// planRestDay computes what action does to date given the user's events on
// and after date. Mandatory events are never part of a move or delete.
func planRestDay(action string, date time.Time, events []calendarEvent) (restDayPlan, error) {
	plan := restDayPlan{Action: action, Date: DateOnly{date}, Moves: []eventMove{}, Deletes: []int{}, Kept: []int{}}
	dateN := dayNumber(date)

	sorted := append([]calendarEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].EventDate.Equal(sorted[j].EventDate.Time) {
			return sorted[i].EventDate.Before(sorted[j].EventDate.Time)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var onDate []calendarEvent
	for _, e := range sorted {
		if dayNumber(e.EventDate.Time) != dateN {
			continue
		}
		if isMandatory(e) {
			plan.Kept = append(plan.Kept, e.ID)
			continue
		}
		onDate = append(onDate, e)
	}

	switch action {
	case restMoveNextOpen:
		target := nextOpenDate(date, sorted)
		plan.TargetDate = &DateOnly{target}
		for _, e := range onDate {
			plan.Moves = append(plan.Moves, eventMove{ID: e.ID, From: e.EventDate, To: DateOnly{target}})
		}
	case restPushForward:
		for _, e := range sorted {
			if dayNumber(e.EventDate.Time) < dateN || isMandatory(e) {
				continue
			}
			plan.Moves = append(plan.Moves, eventMove{ID: e.ID, From: e.EventDate, To: DateOnly{e.EventDate.AddDate(0, 0, 1)}})
		}
	case restClear:
		for _, e := range onDate {
			plan.Deletes = append(plan.Deletes, e.ID)
		}
	default:
		return restDayPlan{}, errUnknownRestAction
	}
	return plan, nil
}

// applyRestDayPlan writes plan inside tx.
func applyRestDayPlan(c *gin.Context, tx pgx.Tx, userID int, plan restDayPlan) error {
	for _, m := range plan.Moves {
		if _, err := tx.Exec(c,
			"UPDATE calendar_events SET event_date = @to, updated_at = now() WHERE id = @id AND user_id = @userID",
			pgx.NamedArgs{"id": m.ID, "userID": userID, "to": m.To.String()}); err != nil {
			return fmt.Errorf("move event %d: %w", m.ID, err)
		}
	}
	if len(plan.Deletes) > 0 {
		if _, err := tx.Exec(c,
			"DELETE FROM calendar_events WHERE user_id = @userID AND id = ANY(@ids)",
			pgx.NamedArgs{"userID": userID, "ids": plan.Deletes}); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
	}
	return nil
}

// applyRestDay turns date into a rest day by moving, pushing or deleting the
// movable events on it. The whole action commits or nothing does.
// POST /api/calendar/rest-day. Body: { "date": "YYYY-MM-DD", "action": "move_next_open" }.
func (h *Handler) applyRestDay(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date   string `json:"date"`
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseDateParam(body.Date)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.Action != restMoveNextOpen && body.Action != restPushForward && body.Action != restClear {
		apiError(c, http.StatusBadRequest, errUnknownRestAction.Error())
		return
	}

	// push_forward touches every later event; the others only need the horizon.
	query := `SELECT * FROM calendar_events
		 WHERE user_id = @userID AND event_date >= @start`
	args := pgx.NamedArgs{"userID": userID, "start": body.Date}
	if body.Action != restPushForward {
		query += " AND event_date <= @end"
		args["end"] = date.AddDate(0, 0, openDayHorizon).Format("2006-01-02")
	}
	query += " ORDER BY event_date, id FOR UPDATE"

	start := time.Now()
	var plan restDayPlan
	err = pgx.BeginFunc(c, h.db, func(tx pgx.Tx) error {
		events, err := queryMany[calendarEvent](tx, c, query, args)
		if err != nil {
			return err
		}
		plan, err = planRestDay(body.Action, date, events)
		if err != nil {
			return err
		}
		return applyRestDayPlan(c, tx, userID, plan)
	})
	storeOpDuration.WithLabelValues(opApplyRestDay).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("[applyRestDay] user %d %s %s: %v", userID, body.Action, body.Date, err)
		apiError(c, http.StatusInternalServerError, "failed to apply rest day")
		return
	}

	c.JSON(http.StatusOK, plan)
}

/* ─── Calendar CRUD ──────────────────────────────────────────────────── */

// listCalendarEvents returns events within [start, end].
// GET /api/calendar?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *Handler) listCalendarEvents(c *gin.Context) {
	userID := c.GetInt("user_id")
	start, end, ok := dateRangeParams(c)
	if !ok {
		return
	}

	events, err := queryMany[calendarEvent](h.db, c,
		`SELECT * FROM calendar_events
		 WHERE user_id = @userID AND event_date >= @start AND event_date <= @end
		 ORDER BY event_date ASC, start_time ASC NULLS LAST, id ASC`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch calendar")
		return
	}
	if events == nil {
		events = []calendarEvent{}
	}

	c.JSON(http.StatusOK, events)
}

// createCalendarEvent adds an event.
// POST /api/calendar. Body: { "event_date", "title", "event_type", "start_time"?: "HH:MM" }.
func (h *Handler) createCalendarEvent(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		EventDate string  `json:"event_date"`
		Title     string  `json:"title"`
		EventType string  `json:"event_type"`
		StartTime *string `json:"start_time"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := parseDateParam(body.EventDate); err != nil {
		apiError(c, http.StatusBadRequest, "invalid event_date, expected YYYY-MM-DD")
		return
	}
	if body.Title == "" {
		apiError(c, http.StatusBadRequest, "title is required")
		return
	}
	if !validEventTypes[body.EventType] {
		apiError(c, http.StatusBadRequest, "unknown event_type")
		return
	}
	if body.StartTime != nil {
		if _, err := time.Parse("15:04", *body.StartTime); err != nil {
			apiError(c, http.StatusBadRequest, "invalid start_time, expected HH:MM")
			return
		}
	}

	ev, err := queryOne[calendarEvent](h.db, c,
		`INSERT INTO calendar_events (user_id, event_date, title, event_type, start_time)
		 VALUES (@userID, @date, @title, @type, @startTime)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "date": body.EventDate, "title": body.Title,
			"type": body.EventType, "startTime": body.StartTime,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create event")
		return
	}

	c.JSON(http.StatusCreated, ev)
}

// deleteCalendarEvent removes an event by ID.
// DELETE /api/calendar/:id. Returns 204 on success, 404 if not found.
func (h *Handler) deleteCalendarEvent(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, ok := idParam(c)
	if !ok {
		return
	}

	result, err := h.db.Exec(c,
		"DELETE FROM calendar_events WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete event")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "event not found")
		return
	}

	c.Status(http.StatusNoContent)
}
