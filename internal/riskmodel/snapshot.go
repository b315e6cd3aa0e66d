package riskmodel

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/riskforecast/internal/riskmodel/fit"
	"github.com/aristath/riskforecast/internal/riskmodel/sample"
)

// itemSnap is the per-item state mutated by CapexActions as the evolution
// loop advances through checkpoints.
type itemSnap struct {
	item   CapexItem
	params fit.Params
	extras []sample.ExtraDraw
}

// riskSnap is the per-risk state mutated by RiskActions. Active reflects
// only whether the risk has been logged by the current checkpoint
// (RiskLogDate <= t); it is recomputed every checkpoint, never mutated by an
// action.
type riskSnap struct {
	risk    Risk
	p       float64
	impact  fit.Params
	active  bool
}

// appliedAction is a unified, orderable view over a CapexAction or
// RiskAction so same-date actions of different kinds can be merged into one
// tie-break sequence (§4.5).
type appliedAction struct {
	rank int
	id   int64
	item *CapexAction
	risk *RiskAction
}

func itemActionRank(kind ActionKind) int {
	switch kind {
	case ActionCostReplacement:
		return 0
	case ActionCostAdjustment:
		return 1
	default:
		return 99
	}
}

func riskActionRank(kind RiskActionKind) int {
	switch kind {
	case RiskActionProbabilityReduction:
		return 2
	case RiskActionImpactReduction:
		return 3
	case RiskActionElimination:
		return 4
	default:
		return 99
	}
}

// actionsAt collects every item/risk action whose effective date equals t,
// sorted by the tie-break rule in §4.5: cost_replacement, cost_adjustment,
// probability_reduction, impact_reduction, elimination, then ascending id.
func actionsAt(r *resolved, t time.Time) []appliedAction {
	var out []appliedAction
	for i := range r.itemActions {
		a := &r.itemActions[i]
		if sameDay(a.EffectiveDate, t) {
			out = append(out, appliedAction{rank: itemActionRank(a.Kind), id: a.ID, item: a})
		}
	}
	for i := range r.riskActions {
		a := &r.riskActions[i]
		if sameDay(a.EffectiveDate, t) {
			out = append(out, appliedAction{rank: riskActionRank(a.Kind), id: a.ID, risk: a})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].rank != out[j].rank {
			return out[i].rank < out[j].rank
		}
		return out[i].id < out[j].id
	})
	return out
}

func sameDay(a, b time.Time) bool {
	return a.UTC().Truncate(24 * time.Hour).Equal(b.UTC().Truncate(24 * time.Hour))
}

// applyItemAction mutates the snapshot in place for one CapexAction and
// returns the mitigation impact it produces: the expected cost saving
// (positive) or increase (negative) resulting from the change.
func applyItemAction(items []itemSnap, itemIdx map[int64]int, a *CapexAction) (MitigationImpact, error) {
	idx, ok := itemIdx[a.ItemID]
	if !ok {
		return MitigationImpact{}, &InternalError{Message: fmt.Sprintf("capex action %d targets unresolved item %d", a.ID, a.ItemID)}
	}
	snap := &items[idx]

	switch a.Kind {
	case ActionCostReplacement:
		before := snap.params.Median()
		p, err := fit.Fit(positiveOrEpsilon(a.P10), positiveOrEpsilon(a.P90))
		if err != nil {
			return MitigationImpact{}, &InternalError{Message: err.Error()}
		}
		snap.params = p
		return MitigationImpact{ActionID: a.ID, Description: a.Description, ExpectedSaving: before - p.Median()}, nil
	case ActionCostAdjustment:
		p, err := fit.Fit(positiveOrEpsilon(a.P10), positiveOrEpsilon(a.P90))
		if err != nil {
			return MitigationImpact{}, &InternalError{Message: err.Error()}
		}
		snap.extras = append(snap.extras, sample.ExtraDraw{
			Params:   sample.ElementParams{Mu: p.Mu, Sigma: p.Sigma},
			SeedSalt: uint64(a.ID) * 0x9E3779B97F4A7C15,
		})
		return MitigationImpact{ActionID: a.ID, Description: a.Description, ExpectedSaving: -p.Median()}, nil
	default:
		return MitigationImpact{}, &InternalError{Message: fmt.Sprintf("unhandled capex action kind %q", a.Kind)}
	}
}

// applyRiskAction mutates the snapshot in place for one RiskAction and
// returns the mitigation impact it produces.
func applyRiskAction(risks []riskSnap, riskIdx map[int64]int, a *RiskAction) (MitigationImpact, error) {
	idx, ok := riskIdx[a.RiskID]
	if !ok {
		return MitigationImpact{}, &InternalError{Message: fmt.Sprintf("risk action %d targets unresolved risk %d", a.ID, a.RiskID)}
	}
	snap := &risks[idx]

	switch a.Kind {
	case RiskActionProbabilityReduction:
		before := snap.p
		switch {
		case a.ProbMultiplier != nil:
			snap.p *= *a.ProbMultiplier
		case a.ProbAdditiveCap != nil:
			snap.p = math.Min(snap.p, *a.ProbAdditiveCap)
		}
		saving := (before - snap.p) * snap.impact.Median()
		return MitigationImpact{ActionID: a.ID, Description: a.Description, ExpectedSaving: saving}, nil
	case RiskActionImpactReduction:
		// Scaling a lognormal impact by a non-negative constant c shifts mu by
		// ln(c) and leaves sigma unchanged: if X ~ LogNormal(mu,sigma) then
		// cX ~ LogNormal(mu+ln(c), sigma).
		beforeMedian := snap.impact.Median()
		snap.impact.Mu += math.Log(positiveOrEpsilon(*a.ImpactScale))
		saving := snap.p * (beforeMedian - snap.impact.Median())
		return MitigationImpact{ActionID: a.ID, Description: a.Description, ExpectedSaving: saving}, nil
	case RiskActionElimination:
		saving := snap.p * snap.impact.Median()
		snap.p = 0
		return MitigationImpact{ActionID: a.ID, Description: a.Description, ExpectedSaving: saving}, nil
	default:
		return MitigationImpact{}, &InternalError{Message: fmt.Sprintf("unhandled risk action kind %q", a.Kind)}
	}
}

func positiveOrEpsilon(v float64) float64 {
	if v <= 0 {
		return 1e-9
	}
	return v
}

// signature returns a canonical string encoding every numeric field that
// participates in sampling, so the evolution loop can detect whether a
// checkpoint's snapshot changed since the last one and skip re-sampling when
// it did not (§4.5).
func signature(items []itemSnap, risks []riskSnap) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "i%d:%.17g:%.17g:%d", it.item.ID, it.params.Mu, it.params.Sigma, len(it.extras))
		for _, e := range it.extras {
			fmt.Fprintf(&b, ",%.17g:%.17g:%d", e.Params.Mu, e.Params.Sigma, e.SeedSalt)
		}
		b.WriteByte(';')
	}
	for _, rs := range risks {
		fmt.Fprintf(&b, "r%d:%.17g:%.17g:%.17g:%t;", rs.risk.ID, rs.p, rs.impact.Mu, rs.impact.Sigma, rs.active)
	}
	return b.String()
}
