package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// setupAPITest registers the real route table on a handler with no database.
// Only requests rejected before any query can be exercised this way.
func setupAPITest(t *testing.T) (*gin.Engine, tokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &Handler{tokens: testTokens(), cache: noopCache{}, hub: newRealtimeHub()}
	router := gin.New()
	h.registerRoutes(router)
	return router, h.tokens
}

func doAPIRequest(t *testing.T, router *gin.Engine, tokens tokenService, role, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	token, _, err := tokens.issue(7, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlers_RejectInvalidInput(t *testing.T) {
	router, tokens := setupAPITest(t)

	cases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string // substring of the error message
	}{
		// Profile and targets
		{"targets bad date", "GET", "/api/targets?date=10-17-2026", "", 400, "invalid date"},
		{"profile bad sex", "PATCH", "/api/profile", `{"sex":"x"}`, 400, "sex must be"},
		{"profile bad activity", "PATCH", "/api/profile", `{"activity_level":"couch"}`, 400, "activity_level"},
		{"profile child dob", "PATCH", "/api/profile", `{"date_of_birth":"2020-01-01"}`, 400, "between 13 and 100"},
		{"profile zero weight", "PATCH", "/api/profile", `{"weight_lbs":0}`, 400, "weight_lbs"},
		{"profile bad units", "PATCH", "/api/profile", `{"units":"stone"}`, 400, "units"},
		{"profile empty patch", "PATCH", "/api/profile", `{}`, 400, "no fields"},
		{"profile malformed json", "PATCH", "/api/profile", `{"sex":`, 400, "invalid request body"},

		// Goals and events
		{"goal unknown type", "POST", "/api/goals", `{"goal_type":"bulk"}`, 400, "goal_type"},
		{"goal bad body fat", "POST", "/api/goals", `{"goal_type":"cut","target_body_fat_pct":120}`, 400, "target_body_fat_pct"},
		{"event bad date", "PUT", "/api/events/tomorrow", `{"day_type":"game"}`, 400, "invalid date"},
		{"event bad day type", "PUT", "/api/events/2026-10-17", `{"day_type":"travel"}`, 400, "day_type"},
		{"event intensity too high", "PUT", "/api/events/2026-10-17", `{"day_type":"game","intensity":11}`, 400, "intensity"},
		{"events missing range", "GET", "/api/events?start=2026-10-01", "", 400, "start and end"},
		{"events reversed range", "GET", "/api/events?start=2026-10-10&end=2026-10-01", "", 400, "start must not be after end"},
		{"event delete bad date", "DELETE", "/api/events/2026-13-40", "", 400, "invalid date"},

		// Progress
		{"progress unknown module", "GET", "/api/progress/cooking", "", 404, "unknown module"},
		{"activity unknown module", "POST", "/api/progress/cooking/activity", `{"kind":"visit"}`, 404, "unknown module"},
		{"activity bad kind", "POST", "/api/progress/nutrition/activity", `{"kind":"dance"}`, 400, "not allowed"},
		{"activity unknown section", "POST", "/api/progress/nutrition/activity", `{"kind":"section_completed","ref":"nope"}`, 400, "unknown section"},
		{"activity future date", "POST", "/api/progress/nutrition/activity", `{"kind":"visit","date":"2999-01-01"}`, 400, "future"},

		// Load
		{"session missing name", "POST", "/api/load/sessions", `{"cns_load":50}`, 400, "name is required"},
		{"session negative load", "POST", "/api/load/sessions", `{"name":"lift","cns_load":-1}`, 400, "loads must be"},
		{"session update empty name", "PUT", "/api/load/sessions/1", `{"name":""}`, 400, "name must not be empty"},
		{"advisory bad date", "POST", "/api/load/advisory", `{"session_date":"soon","cns_load":50}`, 400, "session_date"},
		{"week summary bad date", "GET", "/api/load/week-summary?week_start=x", "", 400, "week_start"},
		{"sessions missing range", "GET", "/api/load/sessions", "", 400, "start and end"},
		{"session update non-numeric id", "PUT", "/api/load/sessions/abc", `{"name":"lift"}`, 400, "invalid id"},
		{"session delete non-numeric id", "DELETE", "/api/load/sessions/abc", "", 400, "invalid id"},
		{"session delete zero id", "DELETE", "/api/load/sessions/0", "", 400, "invalid id"},

		// Schedules and calendar
		{"lock unknown day", "POST", "/api/schedule/lock-days", `{"days":["mon","someday"]}`, 400, "unknown day"},
		{"set locked unknown day", "PUT", "/api/schedule/locked-days", `{"days":["Monday"]}`, 400, "unknown day"},
		{"task bad key", "PUT", "/api/schedule/tasks/Bad-Key", `{"days":["mon"]}`, 400, "task key"},
		{"task bad reminder", "PUT", "/api/schedule/tasks/stretch", `{"days":["mon"],"reminder_offset_minutes":5000}`, 400, "reminder_offset_minutes"},
		{"rest day bad action", "POST", "/api/calendar/rest-day", `{"date":"2026-10-20","action":"skip"}`, 400, "action must be"},
		{"rest day bad date", "POST", "/api/calendar/rest-day", `{"date":"","action":"clear"}`, 400, "invalid date"},
		{"calendar bad type", "POST", "/api/calendar", `{"event_date":"2026-10-20","title":"x","event_type":"party"}`, 400, "event_type"},
		{"calendar bad time", "POST", "/api/calendar", `{"event_date":"2026-10-20","title":"x","event_type":"practice","start_time":"7pm"}`, 400, "start_time"},
		{"calendar delete non-numeric id", "DELETE", "/api/calendar/x1", "", 400, "invalid id"},
		{"calendar missing title", "POST", "/api/calendar", `{"event_date":"2026-10-20","event_type":"practice"}`, 400, "title"},

		// Wellness and preferences
		{"wellness empty goal", "POST", "/api/wellness/weekly-goal", `{"goal":"   "}`, 400, "goal is required"},
		{"prefs bad time", "PATCH", "/api/preferences", `{"daily_summary_time":"25:00"}`, 400, "HH:MM"},
		{"prefs bad timezone", "PATCH", "/api/preferences", `{"timezone":"Mars/Olympus"}`, 400, "unknown timezone"},
		{"prefs empty patch", "PATCH", "/api/preferences", `{}`, 400, "no fields"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doAPIRequest(t, router, tokens, roleAthlete, tc.method, tc.path, tc.body)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if !strings.Contains(resp["error"], tc.wantError) {
				t.Errorf("error = %q, want it to contain %q", resp["error"], tc.wantError)
			}
		})
	}
}

func TestHandlers_CoachRoutes(t *testing.T) {
	router, tokens := setupAPITest(t)

	w := doAPIRequest(t, router, tokens, roleAthlete, "GET", "/api/coach/athletes/3/progress", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("athlete: status = %d, want 403", w.Code)
	}

	for _, role := range []string{roleCoach, roleAdmin} {
		w = doAPIRequest(t, router, tokens, role, "GET", "/api/coach/athletes/abc/progress", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s with bad id: status = %d, want 400", role, w.Code)
		}
	}
}

func TestHandlers_HealthzIsPublic(t *testing.T) {
	router, _ := setupAPITest(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
