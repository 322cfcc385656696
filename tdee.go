package main

import (
	"math"
	"time"
)

// activityMultipliers maps activity level strings to their TDEE multiplier.
// This is the single source of truth for valid activity levels, also used for
// input validation in patchProfile.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

const (
	goalCut      = "cut"
	goalLeanCut  = "lean_cut"
	goalMaintain = "maintain"
	goalLeanGain = "lean_gain"
	goalGain     = "gain"
)

// goalCalorieDelta is the fixed daily kcal adjustment per body-composition goal.
var goalCalorieDelta = map[string]float64{
	goalCut:      -500,
	goalLeanCut:  -300,
	goalMaintain: 0,
	goalLeanGain: 300,
	goalGain:     500,
}

const (
	dayTraining = "training"
	dayGame     = "game"
	dayRest     = "rest"
)

// dayTypeFactor scales the goal-adjusted calories for the kind of day.
var dayTypeFactor = map[string]float64{
	dayTraining: 1.0,
	dayGame:     1.1,
	dayRest:     0.9,
}

const (
	minCalories      = 1200
	proteinPerLb     = 1.0  // g per lb of bodyweight
	proteinMaxShare  = 0.35 // of calories
	fatShare         = 0.25 // of calories
	fiberPer1000Kcal = 14.0

	minAge = 13
	maxAge = 100

	kcalPerGramProtein = 4
	kcalPerGramCarb    = 4
	kcalPerGramFat     = 9

	lbsPerKg           = 2.20462
	mifflinMaleConst   = 5
	mifflinFemaleConst = -161
)

// nutritionTargets is the calculator output. BMR and TDEE are zero for the
// defaults, which are not derived from a profile.
type nutritionTargets struct {
	BMR      int `json:"bmr"`
	TDEE     int `json:"tdee"`
	Calories int `json:"calories"`
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
	FiberG   int `json:"fiber_g"`
}

// defaultTargets is what callers show when computeTargets returns nil.
func defaultTargets() nutritionTargets {
	return nutritionTargets{Calories: 2000, ProteinG: 150, CarbsG: 250, FatG: 70, FiberG: 28}
}

// ageOn returns whole years between dob and today.
func ageOn(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Before(dob.AddDate(age, 0, 0)) {
		age--
	}
	return age
}

// computeTargets derives BMR (Mifflin-St Jeor), TDEE and daily macro targets.
// An empty goal means maintain and an empty day type means training.
// Returns nil when any biometric is missing or implausible, or when the goal or
// day type is unknown; it never returns partial or negative values.
func computeTargets(p *athleteProfile, goal, day string, today time.Time) *nutritionTargets {
	if p == nil || p.Sex == nil || p.DateOfBirth == nil || p.HeightCM == nil ||
		p.WeightLBS == nil || p.ActivityLevel == nil {
		return nil
	}
	if *p.HeightCM <= 0 || *p.WeightLBS <= 0 {
		return nil
	}
	age := ageOn(p.DateOfBirth.Time, today)
	if age < minAge || age > maxAge {
		return nil
	}

	var sexConst float64
	switch *p.Sex {
	case "male":
		sexConst = mifflinMaleConst
	case "female":
		sexConst = mifflinFemaleConst
	default:
		return nil
	}
	mult, ok := activityMultipliers[*p.ActivityLevel]
	if !ok {
		return nil
	}
	if goal == "" {
		goal = goalMaintain
	}
	delta, ok := goalCalorieDelta[goal]
	if !ok {
		return nil
	}
	if day == "" {
		day = dayTraining
	}
	factor, ok := dayTypeFactor[day]
	if !ok {
		return nil
	}

	weightKG := *p.WeightLBS / lbsPerKg
	bmr := 10*weightKG + 6.25**p.HeightCM - 5*float64(age) + sexConst
	if bmr <= 0 {
		return nil
	}
	tdee := bmr * mult

	calories := math.Round((tdee + delta) * factor)
	if calories < minCalories {
		calories = minCalories
	}

	// Protein is capped so fat plus protein never crowd carbs below 40%.
	protein := math.Min(*p.WeightLBS*proteinPerLb, calories*proteinMaxShare/kcalPerGramProtein)
	fat := calories * fatShare / kcalPerGramFat
	carbs := (calories - protein*kcalPerGramProtein - fat*kcalPerGramFat) / kcalPerGramCarb

	return &nutritionTargets{
		BMR:      int(math.Round(bmr)),
		TDEE:     int(math.Round(tdee)),
		Calories: int(calories),
		ProteinG: int(math.Round(protein)),
		CarbsG:   int(math.Round(carbs)),
		FatG:     int(math.Round(fat)),
		FiberG:   int(math.Round(calories / 1000 * fiberPer1000Kcal)),
	}
}

// currentMonday returns the Monday of the current week at midnight UTC.
// Uses AddDate to safely handle month/year boundaries; direct day subtraction
// can produce day=0 or negative, which time.Date normalizes but is confusing.
func currentMonday() time.Time {
	return mondayOf(time.Now().UTC())
}

func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	d := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
