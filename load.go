package main

import (
	"fmt"
	"time"
)

const (
	severityWarning  = "warning"
	severityAdvisory = "advisory"
)

const (
	advisoryCNSWarning      = "cns_warning"
	advisoryCNSElevated     = "cns_elevated"
	advisoryLoadSpike       = "load_spike"
	advisoryHighLoadDensity = "high_load_density"
	advisoryElasticOverload = "elastic_overload"
)

const (
	cnsWarningThreshold = 150.0
	highLoadThreshold   = 100.0 // a day above this counts as high-load
	spikeMultiplier     = 1.5
	highLoadDaysLimit   = 3
	elasticThreshold    = 80.0
	loadWindowDays      = 7 // days before the planned day in the rolling average
	densityWindowDays   = 7 // the planned day and the six days before it
)

// advisory is one advisory or warning about a planned session. Advisories are
// informational and never block saving the session.
type advisory struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// evaluateLoad compares a planned session on date against the daily totals in
// history. The average covers the loadWindowDays days before date; high-load
// density covers date and the six days before it. Days with no sessions count
// as zero load. Thresholds are strict: a CNS load of exactly
// 150 is not a warning.
func evaluateLoad(planned trainingSessionRequest, history []dailyLoad, date time.Time) []advisory {
	dateN := dayNumber(date)

	var windowSum float64
	highDays := 0
	for _, d := range history {
		n := dayNumber(d.Date.Time)
		if n < dateN-loadWindowDays || n >= dateN {
			continue
		}
		windowSum += d.CNSLoad
		if n >= dateN-(densityWindowDays-1) && d.CNSLoad > highLoadThreshold {
			highDays++
		}
	}
	avg := windowSum / loadWindowDays

	out := []advisory{}
	switch {
	case planned.CNSLoad > cnsWarningThreshold:
		out = append(out, advisory{
			Code:     advisoryCNSWarning,
			Severity: severityWarning,
			Message:  fmt.Sprintf("CNS load %.0f is above %.0f. Consider splitting the session or reducing intensity.", planned.CNSLoad, cnsWarningThreshold),
		})
	case planned.CNSLoad > highLoadThreshold:
		out = append(out, advisory{
			Code:     advisoryCNSElevated,
			Severity: severityAdvisory,
			Message:  fmt.Sprintf("CNS load %.0f is elevated. Keep the next day light.", planned.CNSLoad),
		})
	}

	// A zero average means no recent history, not an infinite spike.
	if avg > 0 && planned.CNSLoad > spikeMultiplier*avg {
		out = append(out, advisory{
			Code:     advisoryLoadSpike,
			Severity: severityWarning,
			Message:  fmt.Sprintf("CNS load %.0f is %.1fx your 7-day average of %.0f.", planned.CNSLoad, planned.CNSLoad/avg, avg),
		})
	}

	if planned.CNSLoad > highLoadThreshold {
		highDays++
	}
	if highDays >= highLoadDaysLimit {
		out = append(out, advisory{
			Code:     advisoryHighLoadDensity,
			Severity: severityAdvisory,
			Message:  fmt.Sprintf("%d high-load days in %d days including this one. Schedule a recovery day.", highDays, densityWindowDays),
		})
	}

	if planned.Elastic > elasticThreshold {
		out = append(out, advisory{
			Code:     advisoryElasticOverload,
			Severity: severityAdvisory,
			Message:  fmt.Sprintf("Elastic load %.0f is above %.0f. Limit jumps and sprints.", planned.Elastic, elasticThreshold),
		})
	}

	return out
}
