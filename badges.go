package main

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	moduleNutrition      = "nutrition"
	moduleMindFuel       = "mind_fuel"
	moduleWorkout        = "workout"
	moduleInjuryRecovery = "injury_recovery"
)

// moduleOrder is the display order of modules and the order rules are generated in.
var moduleOrder = []string{moduleNutrition, moduleMindFuel, moduleWorkout, moduleInjuryRecovery}

const (
	kindVisit            = "visit"
	kindSectionCompleted = "section_completed"
	kindQuizPassed       = "quiz_passed"
	kindWorkoutCompleted = "workout_completed"
)

const maxRefLen = 64

var (
	errInvalidModule = errors.New("unknown module")
	errInvalidKind   = errors.New("activity kind not allowed for module")
	errInvalidRef    = errors.New("unknown section or quiz")
)

// moduleCatalog lists the learning content a module awards badges for.
type moduleCatalog struct {
	Sections []string
	Quizzes  []string
	Workouts bool // accepts workout_completed
}

var catalogs = map[string]moduleCatalog{
	moduleNutrition: {
		Sections: []string{
			"macros", "hydration", "pre_game_fuel", "post_game_recovery", "meal_timing",
			"supplements", "travel_eating", "weight_management", "label_reading", "sleep_and_diet",
		},
		Quizzes: []string{"macros_quiz", "hydration_quiz", "meal_timing_quiz"},
	},
	moduleMindFuel: {
		Sections: []string{
			"focus", "visualization", "breathing", "self_talk", "pressure",
			"confidence", "routines", "resilience", "goal_setting", "team_chemistry",
		},
		Quizzes: []string{"focus_quiz", "pressure_quiz"},
	},
	moduleWorkout: {
		Workouts: true,
	},
	moduleInjuryRecovery: {
		Sections: []string{
			"injury_basics", "rest_and_ice", "mobility", "sleep",
			"healing_nutrition", "return_to_throw", "return_to_play", "prehab",
		},
		Quizzes: []string{"return_to_play_quiz"},
	},
}

// Tier thresholds. A tier is only generated for a module whose catalog can reach it.
var (
	sectionTiers = []struct {
		name  string
		count int
	}{{"bronze", 3}, {"silver", 6}, {"gold", 10}}
	streakTiers  = []int{3, 7, 14, 30}
	workoutTiers = []int{1, 10, 50, 100}
)

// moduleProgress is everything the badge rules look at, derived from a
// module's activity log.
type moduleProgress struct {
	Sections      map[string]bool
	Quizzes       map[string]bool
	ActiveDays    int
	Workouts      int
	CurrentStreak int
	LongestStreak int
	LastActive    time.Time // zero when the log is empty
}

// badgeRule unlocks ID when Condition holds for the module's progress.
type badgeRule struct {
	ID        string
	Module    string
	Condition func(moduleProgress) bool
}

var badgeRules = buildBadgeRules()

func buildBadgeRules() []badgeRule {
	var rules []badgeRule
	for _, m := range moduleOrder {
		cat := catalogs[m]

		for _, s := range cat.Sections {
			rules = append(rules, badgeRule{
				ID:        fmt.Sprintf("%s_section_%s", m, s),
				Module:    m,
				Condition: func(p moduleProgress) bool { return p.Sections[s] },
			})
		}
		for _, tier := range sectionTiers {
			if tier.count > len(cat.Sections) {
				break
			}
			n := tier.count
			rules = append(rules, badgeRule{
				ID:        fmt.Sprintf("%s_sections_%s", m, tier.name),
				Module:    m,
				Condition: func(p moduleProgress) bool { return len(p.Sections) >= n },
			})
		}
		if len(cat.Quizzes) > 0 {
			quizzes := cat.Quizzes
			rules = append(rules, badgeRule{
				ID:     m + "_all_quizzes",
				Module: m,
				Condition: func(p moduleProgress) bool {
					for _, q := range quizzes {
						if !p.Quizzes[q] {
							return false
						}
					}
					return true
				},
			})
		}
		for _, n := range streakTiers {
			rules = append(rules, badgeRule{
				ID:        fmt.Sprintf("%s_streak_%d", m, n),
				Module:    m,
				Condition: func(p moduleProgress) bool { return p.LongestStreak >= n },
			})
		}
		if cat.Workouts {
			for _, n := range workoutTiers {
				rules = append(rules, badgeRule{
					ID:        fmt.Sprintf("%s_workouts_%d", m, n),
					Module:    m,
					Condition: func(p moduleProgress) bool { return p.Workouts >= n },
				})
			}
		}
	}
	return rules
}

// evaluateBadges returns the badge ids for module whose rules now hold and that
// are not already in earned, in rule-table order. Re-running with the result
// appended to earned yields nothing.
func evaluateBadges(module string, p moduleProgress, earned []string) []string {
	have := make(map[string]bool, len(earned))
	for _, id := range earned {
		have[id] = true
	}
	unlocked := []string{}
	for _, r := range badgeRules {
		if r.Module != module || have[r.ID] {
			continue
		}
		if r.Condition(p) {
			unlocked = append(unlocked, r.ID)
			have[r.ID] = true
		}
	}
	return unlocked
}

// deriveProgress folds a module's activity log into moduleProgress.
// Any logged activity makes its date an active day for the streak.
func deriveProgress(entries []activityEntry, today time.Time) moduleProgress {
	p := moduleProgress{Sections: map[string]bool{}, Quizzes: map[string]bool{}}
	dates := make([]time.Time, 0, len(entries))
	days := map[int]bool{}
	for _, e := range entries {
		switch e.Kind {
		case kindSectionCompleted:
			p.Sections[e.Ref] = true
		case kindQuizPassed:
			p.Quizzes[e.Ref] = true
		case kindWorkoutCompleted:
			p.Workouts++
		}
		dates = append(dates, e.ActivityDate.Time)
		days[dayNumber(e.ActivityDate.Time)] = true
		if e.ActivityDate.After(p.LastActive) {
			p.LastActive = e.ActivityDate.Time
		}
	}
	p.ActiveDays = len(days)
	p.CurrentStreak, p.LongestStreak = computeStreak(dates, today)
	return p
}

// validateActivity checks an activity against the module catalog.
// Visits carry no ref; workouts may carry a free-form one.
func validateActivity(module, kind, ref string) error {
	cat, ok := catalogs[module]
	if !ok {
		return errInvalidModule
	}
	switch kind {
	case kindVisit:
		if ref != "" {
			return fmt.Errorf("%w: visit takes no ref", errInvalidRef)
		}
	case kindSectionCompleted:
		if !slices.Contains(cat.Sections, ref) {
			return fmt.Errorf("%w: section %q", errInvalidRef, ref)
		}
	case kindQuizPassed:
		if !slices.Contains(cat.Quizzes, ref) {
			return fmt.Errorf("%w: quiz %q", errInvalidRef, ref)
		}
	case kindWorkoutCompleted:
		if !cat.Workouts {
			return errInvalidKind
		}
		if len(ref) > maxRefLen {
			return fmt.Errorf("%w: ref longer than %d characters", errInvalidRef, maxRefLen)
		}
	default:
		return errInvalidKind
	}
	return nil
}
