package main

import (
	"math"
	"testing"
	"time"
)

// fixedToday pins "today" so age-dependent expectations are exact.
var fixedToday = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

// makeProfile constructs a fully-populated athleteProfile for computeTargets
// tests. Individual tests nil out specific fields to exercise missing-field guards.
func makeProfile(sex string, dob time.Time, heightCM, weightLBS float64, activityLevel string) *athleteProfile {
	d := DateOnly{dob}
	return &athleteProfile{
		Sex:           &sex,
		DateOfBirth:   &d,
		HeightCM:      &heightCM,
		WeightLBS:     &weightLBS,
		ActivityLevel: &activityLevel,
	}
}

// defaultProfile is a 36-year-old male, 175cm, 180lbs, sedentary.
func defaultProfile() *athleteProfile {
	return makeProfile("male", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), 175, 180, "sedentary")
}

/* ─── Missing-field guard tests ──────────────────────────────────────── */

// TestComputeTargets_MissingFields verifies that nil is returned when any
// required biometric is nil.
func TestComputeTargets_MissingFields(t *testing.T) {
	cases := []struct {
		name  string
		mutFn func(p *athleteProfile)
	}{
		{"nil Sex", func(p *athleteProfile) { p.Sex = nil }},
		{"nil DateOfBirth", func(p *athleteProfile) { p.DateOfBirth = nil }},
		{"nil HeightCM", func(p *athleteProfile) { p.HeightCM = nil }},
		{"nil WeightLBS", func(p *athleteProfile) { p.WeightLBS = nil }},
		{"nil ActivityLevel", func(p *athleteProfile) { p.ActivityLevel = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := defaultProfile()
			tc.mutFn(p)
			if got := computeTargets(p, goalMaintain, dayTraining, fixedToday); got != nil {
				t.Errorf("expected nil when %s, got %+v", tc.name, got)
			}
		})
	}

	if got := computeTargets(nil, "", "", fixedToday); got != nil {
		t.Errorf("expected nil for nil profile, got %+v", got)
	}
}

/* ─── Input validation guard tests ───────────────────────────────────── */

func TestComputeTargets_InvalidInputs(t *testing.T) {
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ancient := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	child := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		profile *athleteProfile
		goal    string
		day     string
	}{
		{"unknown activity", makeProfile("male", dob, 175, 180, "couch"), "", ""},
		{"unknown sex", makeProfile("other", dob, 175, 180, "light"), "", ""},
		{"zero weight", makeProfile("male", dob, 175, 0, "light"), "", ""},
		{"negative height", makeProfile("male", dob, -1, 180, "light"), "", ""},
		{"future dob", makeProfile("male", future, 175, 180, "light"), "", ""},
		{"age over 100", makeProfile("male", ancient, 175, 180, "light"), "", ""},
		{"age under 13", makeProfile("male", child, 140, 70, "light"), "", ""},
		{"unknown goal", defaultProfile(), "shred", ""},
		{"unknown day type", defaultProfile(), "", "travel"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := computeTargets(tc.profile, tc.goal, tc.day, fixedToday); got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})
	}
}

/* ─── BMR accuracy tests ─────────────────────────────────────────────── */

// TestComputeTargets_BMR verifies the Mifflin-St Jeor constants per sex.
//
// Inputs: born 1990-01-01 (36 on 2026-10-17), 175cm, 180lbs.
// weightKG = 180/2.20462 ≈ 81.65; base = 816.47 + 1093.75 - 180 = 1730.22
// male = base + 5 ≈ 1735, female = base - 161 ≈ 1569.
func TestComputeTargets_BMR(t *testing.T) {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		sex  string
		want int
	}{
		{"male", 1735},
		{"female", 1569},
	}
	for _, tc := range cases {
		t.Run(tc.sex, func(t *testing.T) {
			got := computeTargets(makeProfile(tc.sex, dob, 175, 180, "sedentary"), "", "", fixedToday)
			if got == nil {
				t.Fatal("expected targets, got nil")
			}
			if got.BMR != tc.want {
				t.Errorf("BMR = %d, want %d", got.BMR, tc.want)
			}
			if wantTDEE := int(math.Round(float64(tc.want) * 1.2)); abs(got.TDEE-wantTDEE) > 1 {
				t.Errorf("TDEE = %d, want ~%d", got.TDEE, wantTDEE)
			}
		})
	}
}

/* ─── Property tests ─────────────────────────────────────────────────── */

// TestComputeTargets_MonotonicInWeight checks BMR and TDEE strictly increase
// with bodyweight and stay positive.
func TestComputeTargets_MonotonicInWeight(t *testing.T) {
	dob := time.Date(2004, 5, 1, 0, 0, 0, 0, time.UTC)
	prevBMR, prevTDEE := 0, 0
	for w := 90.0; w <= 320; w += 10 {
		got := computeTargets(makeProfile("female", dob, 165, w, "moderate"), "", "", fixedToday)
		if got == nil {
			t.Fatalf("nil targets at weight %.0f", w)
		}
		if got.BMR <= 0 || got.TDEE <= 0 {
			t.Fatalf("non-positive BMR/TDEE at weight %.0f: %+v", w, got)
		}
		if got.BMR <= prevBMR || got.TDEE <= prevTDEE {
			t.Errorf("not increasing at weight %.0f: BMR %d (prev %d), TDEE %d (prev %d)",
				w, got.BMR, prevBMR, got.TDEE, prevTDEE)
		}
		prevBMR, prevTDEE = got.BMR, got.TDEE
	}
}

func TestComputeTargets_MonotonicInActivity(t *testing.T) {
	levels := []string{"sedentary", "light", "moderate", "active", "very_active"}
	prev := 0
	for _, level := range levels {
		p := defaultProfile()
		p.ActivityLevel = &level
		got := computeTargets(p, "", "", fixedToday)
		if got == nil {
			t.Fatalf("nil targets for %s", level)
		}
		if got.TDEE <= prev {
			t.Errorf("TDEE for %s = %d, not above previous %d", level, got.TDEE, prev)
		}
		prev = got.TDEE
	}
}

// TestComputeTargets_MacrosSumToCalories checks 4p + 4c + 9f stays within
// rounding tolerance of the calorie target across goals, days and body sizes.
func TestComputeTargets_MacrosSumToCalories(t *testing.T) {
	dob := time.Date(1998, 7, 20, 0, 0, 0, 0, time.UTC)
	for _, sex := range []string{"male", "female"} {
		for _, weight := range []float64{110, 165, 220, 300} {
			for goal := range goalCalorieDelta {
				for day := range dayTypeFactor {
					got := computeTargets(makeProfile(sex, dob, 180, weight, "active"), goal, day, fixedToday)
					if got == nil {
						t.Fatalf("nil targets for %s/%.0f/%s/%s", sex, weight, goal, day)
					}
					if got.ProteinG <= 0 || got.CarbsG <= 0 || got.FatG <= 0 || got.FiberG <= 0 {
						t.Errorf("non-positive macro for %s/%.0f/%s/%s: %+v", sex, weight, goal, day, got)
					}
					sum := got.ProteinG*kcalPerGramProtein + got.CarbsG*kcalPerGramCarb + got.FatG*kcalPerGramFat
					if abs(sum-got.Calories) > 10 {
						t.Errorf("%s/%.0f/%s/%s: macros sum to %d kcal, target %d",
							sex, weight, goal, day, sum, got.Calories)
					}
				}
			}
		}
	}
}

/* ─── Goal and day-type adjustments ──────────────────────────────────── */

func TestComputeTargets_GoalDeltas(t *testing.T) {
	base := computeTargets(defaultProfile(), goalMaintain, dayTraining, fixedToday)
	if base == nil {
		t.Fatal("nil baseline")
	}
	for goal, delta := range goalCalorieDelta {
		got := computeTargets(defaultProfile(), goal, dayTraining, fixedToday)
		if diff := got.Calories - base.Calories; abs(diff-int(delta)) > 1 {
			t.Errorf("%s: calories differ from maintain by %d, want %.0f", goal, diff, delta)
		}
	}
}

func TestComputeTargets_DayTypeOrdering(t *testing.T) {
	rest := computeTargets(defaultProfile(), goalMaintain, dayRest, fixedToday)
	training := computeTargets(defaultProfile(), goalMaintain, dayTraining, fixedToday)
	game := computeTargets(defaultProfile(), goalMaintain, dayGame, fixedToday)
	if !(rest.Calories < training.Calories && training.Calories < game.Calories) {
		t.Errorf("expected rest < training < game, got %d, %d, %d", rest.Calories, training.Calories, game.Calories)
	}
	if empty := computeTargets(defaultProfile(), "", "", fixedToday); *empty != *training {
		t.Errorf("empty goal/day should equal maintain/training: %+v vs %+v", empty, training)
	}
}

// TestComputeTargets_CalorieFloor verifies a small athlete on an aggressive cut
// on a rest day never drops below the minimum.
func TestComputeTargets_CalorieFloor(t *testing.T) {
	dob := time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)
	got := computeTargets(makeProfile("female", dob, 150, 95, "sedentary"), goalCut, dayRest, fixedToday)
	if got == nil {
		t.Fatal("nil targets")
	}
	if got.Calories != minCalories {
		t.Errorf("Calories = %d, want floor %d", got.Calories, minCalories)
	}
}

func TestDefaultTargets(t *testing.T) {
	d := defaultTargets()
	if d.Calories != 2000 || d.ProteinG != 150 || d.CarbsG != 250 || d.FatG != 70 {
		t.Errorf("unexpected defaults %+v", d)
	}
}

/* ─── Date helpers ───────────────────────────────────────────────────── */

func TestAgeOn_BirthdayBoundary(t *testing.T) {
	dob := time.Date(2000, 10, 18, 0, 0, 0, 0, time.UTC)
	if got := ageOn(dob, fixedToday); got != 25 {
		t.Errorf("day before birthday: age = %d, want 25", got)
	}
	if got := ageOn(dob, fixedToday.AddDate(0, 0, 1)); got != 26 {
		t.Errorf("on birthday: age = %d, want 26", got)
	}
}

func TestMondayOf(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 10, 17, 15, 30, 0, 0, time.UTC), "2026-10-12"}, // Saturday
		{time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC), "2026-10-12"},   // Sunday
		{time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), "2026-10-12"},   // Monday
		{time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC), "2026-12-28"},     // across year
	}
	for _, tc := range cases {
		got := mondayOf(tc.in)
		if got.Format("2006-01-02") != tc.want || got.Hour() != 0 {
			t.Errorf("mondayOf(%v) = %v, want %s midnight", tc.in, got, tc.want)
		}
	}
}

// TestCurrentMonday_ReturnsMonday verifies that the returned time's weekday is Monday.
func TestCurrentMonday_ReturnsMonday(t *testing.T) {
	monday := currentMonday()
	if monday.Weekday() != time.Monday {
		t.Errorf("currentMonday() returned %s, want Monday", monday.Weekday())
	}
	if monday.Location() != time.UTC {
		t.Errorf("currentMonday() returned non-UTC location: %v", monday.Location())
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
