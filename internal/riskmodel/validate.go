package riskmodel

import (
	"fmt"
	"math"
)

// resolved is the normalised dataset produced by Validate: the validated
// tables, id-to-index maps for items and risks, and the phase-order and
// location-parent maps derived from the lookup tables, so downstream code
// never re-walks the lookup tables.
type resolved struct {
	items       []CapexItem
	itemIdx     map[int64]int
	itemActions []CapexAction
	risks       []Risk
	riskIdx     map[int64]int
	riskActions []RiskAction

	lookups         Lookups
	phaseOrderByID  map[int64]int
	locationParents map[int64]int64
}

// Validate type-checks and range-checks every table, resolving foreign keys
// against Lookups. It never stops at the first failure: every offending row
// is collected into a single *ValidationError.
func Validate(d Dataset) (*resolved, error) {
	var errs []FieldError

	disciplineIDs := map[int64]bool{}
	for _, l := range d.Lookups.Disciplines {
		disciplineIDs[l.ID] = true
	}
	phaseIDs := map[int64]Phase{}
	for _, p := range d.Lookups.Phases {
		phaseIDs[p.ID] = p
	}
	locationIDs := map[int64]Location{}
	for _, l := range d.Lookups.Locations {
		locationIDs[l.ID] = l
	}
	riskCategoryIDs := map[int64]bool{}
	for _, l := range d.Lookups.RiskCategories {
		riskCategoryIDs[l.ID] = true
	}
	riskLogIDs := map[int64]bool{}
	for _, l := range d.Lookups.RiskLogs {
		riskLogIDs[l.ID] = true
	}

	itemIdx := make(map[int64]int, len(d.Items))
	for i, item := range d.Items {
		row := fmt.Sprintf("%d", item.ID)
		if _, dup := itemIdx[item.ID]; dup {
			errs = append(errs, FieldError{"capex_items", row, "id", "duplicate item id"})
		}
		itemIdx[item.ID] = i

		errs = append(errs, checkQuote("capex_items", row, item.P10, item.P90, item.ML, true)...)
		if item.DisciplineID != nil && !disciplineIDs[*item.DisciplineID] {
			errs = append(errs, FieldError{"capex_items", row, "discipline_id", "does not resolve to a known discipline"})
		}
		if item.PhaseID != nil {
			if _, ok := phaseIDs[*item.PhaseID]; !ok {
				errs = append(errs, FieldError{"capex_items", row, "phase_id", "does not resolve to a known phase"})
			}
		}
		if item.LocationID != nil {
			if _, ok := locationIDs[*item.LocationID]; !ok {
				errs = append(errs, FieldError{"capex_items", row, "location_id", "does not resolve to a known location"})
			}
		}
	}

	for _, a := range d.ItemActions {
		row := fmt.Sprintf("%d", a.ID)
		if idx, ok := itemIdx[a.ItemID]; !ok {
			errs = append(errs, FieldError{"capex_actions", row, "item_id", "does not resolve to a known CAPEX item"})
		} else if a.EffectiveDate.Before(d.Items[idx].BaseDate) {
			errs = append(errs, FieldError{"capex_actions", row, "effective_date", "must not precede the item's base_date"})
		}
		switch a.Kind {
		case ActionCostReplacement, ActionCostAdjustment:
		default:
			errs = append(errs, FieldError{"capex_actions", row, "kind", fmt.Sprintf("unknown action kind %q", a.Kind)})
		}
		errs = append(errs, checkQuote("capex_actions", row, a.P10, a.P90, nil, false)...)
	}

	riskIdx := make(map[int64]int, len(d.Risks))
	for i, r := range d.Risks {
		row := fmt.Sprintf("%d", r.ID)
		if _, dup := riskIdx[r.ID]; dup {
			errs = append(errs, FieldError{"risks", row, "id", "duplicate risk id"})
		}
		riskIdx[r.ID] = i

		if math.IsNaN(r.P) || math.IsInf(r.P, 0) || r.P < 0 || r.P > 1 {
			errs = append(errs, FieldError{"risks", row, "p", "probability must be finite and within [0, 1]"})
		}
		errs = append(errs, checkQuote("risks", row, r.ImpactP10, r.ImpactP90, nil, true)...)

		if r.DisciplineID != nil && !disciplineIDs[*r.DisciplineID] {
			errs = append(errs, FieldError{"risks", row, "discipline_id", "does not resolve to a known discipline"})
		}
		if r.PhaseID != nil {
			if _, ok := phaseIDs[*r.PhaseID]; !ok {
				errs = append(errs, FieldError{"risks", row, "phase_id", "does not resolve to a known phase"})
			}
		}
		if r.LocationID != nil {
			if _, ok := locationIDs[*r.LocationID]; !ok {
				errs = append(errs, FieldError{"risks", row, "location_id", "does not resolve to a known location"})
			}
		}
		if r.RiskCategoryID != nil && !riskCategoryIDs[*r.RiskCategoryID] {
			errs = append(errs, FieldError{"risks", row, "risk_category_id", "does not resolve to a known risk category"})
		}
		if r.RiskLogID != nil && !riskLogIDs[*r.RiskLogID] {
			errs = append(errs, FieldError{"risks", row, "risk_log_id", "does not resolve to a known risk log"})
		}
	}

	for _, a := range d.RiskActions {
		row := fmt.Sprintf("%d", a.ID)
		if _, ok := riskIdx[a.RiskID]; !ok {
			errs = append(errs, FieldError{"risk_actions", row, "risk_id", "does not resolve to a known risk"})
		}
		switch a.Kind {
		case RiskActionProbabilityReduction:
			if a.ProbMultiplier == nil && a.ProbAdditiveCap == nil {
				errs = append(errs, FieldError{"risk_actions", row, "kind", "probability_reduction requires ProbMultiplier or ProbAdditiveCap"})
			}
			if a.ProbMultiplier != nil && a.ProbAdditiveCap != nil {
				errs = append(errs, FieldError{"risk_actions", row, "kind", "probability_reduction must set exactly one of ProbMultiplier, ProbAdditiveCap"})
			}
			if a.ProbMultiplier != nil && (*a.ProbMultiplier < 0 || *a.ProbMultiplier > 1 || math.IsNaN(*a.ProbMultiplier)) {
				errs = append(errs, FieldError{"risk_actions", row, "prob_multiplier", "must be within [0, 1]"})
			}
			if a.ProbAdditiveCap != nil && (*a.ProbAdditiveCap < 0 || *a.ProbAdditiveCap > 1 || math.IsNaN(*a.ProbAdditiveCap)) {
				errs = append(errs, FieldError{"risk_actions", row, "prob_additive_cap", "must be within [0, 1]"})
			}
		case RiskActionImpactReduction:
			if a.ImpactScale == nil {
				errs = append(errs, FieldError{"risk_actions", row, "impact_scale", "impact_reduction requires ImpactScale"})
			} else if *a.ImpactScale < 0 || math.IsNaN(*a.ImpactScale) || math.IsInf(*a.ImpactScale, 0) {
				errs = append(errs, FieldError{"risk_actions", row, "impact_scale", "must be finite and non-negative"})
			}
		case RiskActionElimination:
		default:
			errs = append(errs, FieldError{"risk_actions", row, "kind", fmt.Sprintf("unknown risk action kind %q", a.Kind)})
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	if len(d.Items) == 0 && len(d.Risks) == 0 {
		return nil, &InsufficientDataError{}
	}

	phaseOrderByID := make(map[int64]int, len(d.Lookups.Phases))
	for _, p := range d.Lookups.Phases {
		phaseOrderByID[p.ID] = p.Order
	}
	locationParents := make(map[int64]int64, len(d.Lookups.Locations))
	for _, l := range d.Lookups.Locations {
		if l.ParentID != nil {
			locationParents[l.ID] = *l.ParentID
		}
	}

	return &resolved{
		items:           d.Items,
		itemIdx:         itemIdx,
		itemActions:     d.ItemActions,
		risks:           d.Risks,
		riskIdx:         riskIdx,
		riskActions:     d.RiskActions,
		lookups:         d.Lookups,
		phaseOrderByID:  phaseOrderByID,
		locationParents: locationParents,
	}, nil
}

// checkQuote validates a P10/P90 pair (and optional ML). strict requires
// P10 < P90 (base CapexItem/Risk quotes, §3); actions may additionally carry
// a degenerate P10 == P90 quote (§4.2's degenerate case), which this permits
// by relaxing to P10 <= P90 when strict is false.
func checkQuote(table, row string, p10, p90 float64, ml *float64, strict bool) []FieldError {
	var errs []FieldError
	if math.IsNaN(p10) || math.IsInf(p10, 0) || p10 < 0 {
		errs = append(errs, FieldError{table, row, "p10", "must be finite and non-negative"})
	}
	if math.IsNaN(p90) || math.IsInf(p90, 0) || p90 < 0 {
		errs = append(errs, FieldError{table, row, "p90", "must be finite and non-negative"})
	}
	if len(errs) == 0 {
		if strict && !(p10 > 0 && p10 < p90) {
			errs = append(errs, FieldError{table, row, "p10/p90", "p10 must be strictly positive and strictly less than p90"})
		}
		if !strict && p10 > p90 {
			errs = append(errs, FieldError{table, row, "p10/p90", "p10 must not exceed p90"})
		}
	}
	if ml != nil {
		if math.IsNaN(*ml) || math.IsInf(*ml, 0) {
			errs = append(errs, FieldError{table, row, "ml", "must be finite"})
		} else if *ml < p10 || *ml > p90 {
			errs = append(errs, FieldError{table, row, "ml", "must lie within [p10, p90]"})
		}
	}
	return errs
}
