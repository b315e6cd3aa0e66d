package riskmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func validDataset() Dataset {
	return Dataset{
		Items: []CapexItem{
			{ID: 1, Name: "Foundations", P10: 100, P90: 200, BaseDate: time.Now(), Currency: "USD"},
		},
		Risks: []Risk{
			{ID: 1, Name: "Weather delay", P: 0.3, ImpactP10: 10, ImpactP90: 50, Currency: "USD"},
		},
	}
}

func TestValidate_AcceptsValidDataset(t *testing.T) {
	r, err := Validate(validDataset())
	require.NoError(t, err)
	assert.Len(t, r.items, 1)
	assert.Len(t, r.risks, 1)
}

func TestValidate_RejectsP10NotLessThanP90(t *testing.T) {
	d := validDataset()
	d.Items[0].P10 = 200
	d.Items[0].P90 = 100

	_, err := Validate(d)
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Len(t, ve.Errors, 1)
	assert.Equal(t, "capex_items", ve.Errors[0].Table)
}

func TestValidate_RejectsProbabilityOutOfRange(t *testing.T) {
	d := validDataset()
	d.Risks[0].P = 1.5

	_, err := Validate(d)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.Contains(t, ve.Error(), "probability")
}

func TestValidate_RejectsActionTargetingMissingItem(t *testing.T) {
	d := validDataset()
	d.ItemActions = []CapexAction{
		{ID: 1, ItemID: 999, Kind: ActionCostReplacement, P10: 10, P90: 20, EffectiveDate: time.Now()},
	}

	_, err := Validate(d)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.Contains(t, ve.Error(), "does not resolve to a known CAPEX item")
}

func TestValidate_RejectsActionEffectiveDateBeforeItemBaseDate(t *testing.T) {
	d := validDataset()
	d.Items[0].BaseDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.ItemActions = []CapexAction{
		{ID: 1, ItemID: 1, Kind: ActionCostReplacement, P10: 10, P90: 20,
			EffectiveDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
	}

	_, err := Validate(d)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.Contains(t, ve.Error(), "base_date")
}

func TestValidate_AllowsDegenerateQuoteOnActions(t *testing.T) {
	d := validDataset()
	d.ItemActions = []CapexAction{
		{ID: 1, ItemID: 1, Kind: ActionCostAdjustment, P10: 20, P90: 20, EffectiveDate: time.Now()},
	}

	_, err := Validate(d)
	assert.NoError(t, err)
}

func TestValidate_RejectsMLOutsideP10P90(t *testing.T) {
	d := validDataset()
	d.Items[0].ML = ptrF(500)

	_, err := Validate(d)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.Contains(t, ve.Error(), "ml")
}

func TestValidate_AggregatesAllFailures(t *testing.T) {
	d := validDataset()
	d.Items[0].P10 = -1
	d.Risks[0].P = 2

	_, err := Validate(d)
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.GreaterOrEqual(t, len(ve.Errors), 2, "validate must not stop at the first failure")
}

func TestValidate_CategoricalFKMustResolve(t *testing.T) {
	d := validDataset()
	d.Items[0].DisciplineID = ptrI(42) // no Lookups.Disciplines entries at all

	_, err := Validate(d)
	require.Error(t, err, "an FK that does not resolve is still rejected")

	d2 := validDataset()
	d2.Lookups.Disciplines = []Discipline{{ID: 42, Name: "Civil"}}
	d2.Items[0].DisciplineID = ptrI(42)
	_, err2 := Validate(d2)
	assert.NoError(t, err2)
}

func TestValidate_InsufficientData(t *testing.T) {
	_, err := Validate(Dataset{})
	require.Error(t, err)
	_, ok := err.(*InsufficientDataError)
	assert.True(t, ok)
}

func TestValidate_RiskActionRequiresExactlyOneProbabilityField(t *testing.T) {
	d := validDataset()
	d.RiskActions = []RiskAction{
		{ID: 1, RiskID: 1, Kind: RiskActionProbabilityReduction, EffectiveDate: time.Now()},
	}
	_, err := Validate(d)
	require.Error(t, err)

	d2 := validDataset()
	mult := 0.5
	cap := 0.2
	d2.RiskActions = []RiskAction{
		{ID: 1, RiskID: 1, Kind: RiskActionProbabilityReduction, ProbMultiplier: &mult, ProbAdditiveCap: &cap, EffectiveDate: time.Now()},
	}
	_, err2 := Validate(d2)
	assert.Error(t, err2)
}
