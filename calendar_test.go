package main

import (
	"errors"
	"slices"
	"testing"
	"time"
)

var restDate = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

func calEvent(id, offset int, eventType string) calendarEvent {
	return calendarEvent{ID: id, EventDate: DateOnly{restDate.AddDate(0, 0, offset)}, Title: eventType, EventType: eventType}
}

func TestNextOpenDate(t *testing.T) {
	occupied := func(from, to int) []calendarEvent {
		var evs []calendarEvent
		for k := from; k <= to; k++ {
			evs = append(evs, calEvent(100+k, k, "practice"))
		}
		return evs
	}
	cases := []struct {
		name   string
		events []calendarEvent
		want   int // offset from restDate
	}{
		{"next day free", nil, 1},
		{"D+1 free even with later events", occupied(2, 10), 1},
		{"D+1..D+13 taken, D+14 free", occupied(1, 13), 14},
		{"whole horizon taken falls back to tomorrow", occupied(1, 14), 1},
		{"mandatory events also occupy a day", []calendarEvent{calEvent(1, 1, "game")}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := nextOpenDate(restDate, tc.events)
			if want := restDate.AddDate(0, 0, tc.want); !got.Equal(want) {
				t.Errorf("nextOpenDate = %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
			}
		})
	}
}

func moveIDs(p restDayPlan) []int {
	ids := make([]int, 0, len(p.Moves))
	for _, m := range p.Moves {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestPlanRestDay_MoveNextOpen(t *testing.T) {
	events := []calendarEvent{
		calEvent(1, 0, "practice"),
		calEvent(2, 0, "game"),
		calEvent(3, 0, "workout"),
		calEvent(4, 1, "practice"),
	}
	plan, err := planRestDay(restMoveNextOpen, restDate, events)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(moveIDs(plan), []int{1, 3}) {
		t.Errorf("moved %v, want [1 3]", moveIDs(plan))
	}
	want := restDate.AddDate(0, 0, 2)
	if plan.TargetDate == nil || !plan.TargetDate.Equal(want) {
		t.Fatalf("target = %v, want %s", plan.TargetDate, want.Format("2006-01-02"))
	}
	for _, m := range plan.Moves {
		if !m.To.Equal(want) || !m.From.Equal(restDate) {
			t.Errorf("move %+v, want %s -> %s", m, restDate.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
	if !slices.Equal(plan.Kept, []int{2}) {
		t.Errorf("kept %v, want [2]", plan.Kept)
	}
	if len(plan.Deletes) != 0 {
		t.Errorf("unexpected deletes %v", plan.Deletes)
	}
}

func TestPlanRestDay_PushForward(t *testing.T) {
	events := []calendarEvent{
		calEvent(1, -1, "practice"), // before D, untouched
		calEvent(2, 0, "practice"),
		calEvent(3, 0, "tryout"),
		calEvent(4, 3, "workout"),
		calEvent(5, 5, "coach_assigned"),
		calEvent(6, 30, "lesson"),
	}
	plan, err := planRestDay(restPushForward, restDate, events)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(moveIDs(plan), []int{2, 4, 6}) {
		t.Fatalf("moved %v, want [2 4 6]", moveIDs(plan))
	}
	for _, m := range plan.Moves {
		if dayNumber(m.To.Time)-dayNumber(m.From.Time) != 1 {
			t.Errorf("event %d moved %s -> %s, want exactly one day", m.ID, m.From, m.To)
		}
	}
	if plan.TargetDate != nil {
		t.Errorf("push_forward set target %v", plan.TargetDate)
	}
}

func TestPlanRestDay_Clear(t *testing.T) {
	events := []calendarEvent{
		calEvent(1, 0, "practice"),
		calEvent(2, 0, "game"),
		calEvent(3, 0, "coach_assigned"),
		calEvent(4, 0, "recovery"),
		calEvent(5, 1, "practice"),
	}
	plan, err := planRestDay(restClear, restDate, events)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(plan.Deletes, []int{1, 4}) {
		t.Errorf("deletes %v, want [1 4]", plan.Deletes)
	}
	if !slices.Equal(plan.Kept, []int{2, 3}) {
		t.Errorf("kept %v, want [2 3]", plan.Kept)
	}
	if len(plan.Moves) != 0 {
		t.Errorf("clear produced moves %v", plan.Moves)
	}
}

func TestPlanRestDay_OnlyMandatoryIsEmptyPlan(t *testing.T) {
	events := []calendarEvent{calEvent(1, 0, "game"), calEvent(2, 0, "tryout")}
	for _, action := range []string{restMoveNextOpen, restPushForward, restClear} {
		plan, err := planRestDay(action, restDate, events)
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		if len(plan.Moves) != 0 || len(plan.Deletes) != 0 {
			t.Errorf("%s touched mandatory events: %+v", action, plan)
		}
	}
}

func TestPlanRestDay_UnknownAction(t *testing.T) {
	if _, err := planRestDay("teleport", restDate, nil); !errors.Is(err, errUnknownRestAction) {
		t.Errorf("err = %v, want errUnknownRestAction", err)
	}
}
