package riskmodel

import (
	"sort"
	"time"
)

// buildCheckpointDates returns the strictly increasing sequence of
// checkpoint dates for a horizon: t0 = dataDate, tT = dataDate + horizon,
// every frequency step in between, plus every distinct action effective
// date and risk log date that falls inside the horizon (§4.5).
func buildCheckpointDates(dataDate time.Time, freq Frequency, horizonMonths int, r *resolved) []time.Time {
	end := dataDate.AddDate(0, horizonMonths, 0)

	set := map[int64]time.Time{}
	add := func(t time.Time) {
		if t.Before(dataDate) || t.After(end) {
			return
		}
		set[t.UTC().Truncate(24*time.Hour).Unix()] = t.UTC().Truncate(24 * time.Hour)
	}

	add(dataDate)
	add(end)

	for t := dataDate; !t.After(end); {
		add(t)
		if freq == FrequencyMonthly {
			t = t.AddDate(0, 1, 0)
		} else {
			t = t.AddDate(0, 0, 7)
		}
	}

	for _, a := range r.itemActions {
		add(a.EffectiveDate)
	}
	for _, a := range r.riskActions {
		add(a.EffectiveDate)
	}
	for _, risk := range r.risks {
		if risk.RiskLogDate != nil {
			add(*risk.RiskLogDate)
		}
	}

	dates := make([]time.Time, 0, len(set))
	for _, t := range set {
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
