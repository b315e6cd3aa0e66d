package riskmodel

import "github.com/aristath/riskforecast/internal/riskmodel/correlation"

// itemElement converts a CapexItem into its categorical fingerprint for
// correlation scoring (§4.3).
func itemElement(item CapexItem, r *resolved) correlation.Element {
	e := correlation.Element{IsRisk: false}
	if item.Owner != "" {
		e.Owner = item.Owner
		e.HasOwner = true
	}
	if item.DisciplineID != nil {
		e.DisciplineID = *item.DisciplineID
		e.HasDiscipline = true
	}
	if item.PhaseID != nil {
		e.PhaseID = *item.PhaseID
		e.HasPhase = true
		if order, ok := r.phaseOrderByID[*item.PhaseID]; ok {
			e.PhaseOrder = order
			e.HasPhaseOrder = true
		}
	}
	if item.LocationID != nil {
		e.LocationID = *item.LocationID
		e.HasLocation = true
		if parent, ok := r.locationParents[*item.LocationID]; ok {
			e.ParentLocID = parent
			e.HasParentLoc = true
		}
	}
	return e
}

// riskElement converts a Risk into its categorical fingerprint.
func riskElement(risk Risk, r *resolved) correlation.Element {
	e := correlation.Element{IsRisk: true}
	if risk.Owner != "" {
		e.Owner = risk.Owner
		e.HasOwner = true
	}
	if risk.DisciplineID != nil {
		e.DisciplineID = *risk.DisciplineID
		e.HasDiscipline = true
	}
	if risk.PhaseID != nil {
		e.PhaseID = *risk.PhaseID
		e.HasPhase = true
		if order, ok := r.phaseOrderByID[*risk.PhaseID]; ok {
			e.PhaseOrder = order
			e.HasPhaseOrder = true
		}
	}
	if risk.LocationID != nil {
		e.LocationID = *risk.LocationID
		e.HasLocation = true
		if parent, ok := r.locationParents[*risk.LocationID]; ok {
			e.ParentLocID = parent
			e.HasParentLoc = true
		}
	}
	if risk.RiskCategoryID != nil {
		e.RiskCategoryID = *risk.RiskCategoryID
		e.HasRiskCategory = true
	}
	if risk.RiskLogID != nil {
		e.RiskLogID = *risk.RiskLogID
		e.HasRiskLog = true
	}
	return e
}
