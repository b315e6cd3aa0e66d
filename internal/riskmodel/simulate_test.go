package riskmodel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskforecast/internal/logging"
)

func seedCfg(seed int64) *int64 { return &seed }

func baseDate() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

func runConfig(n int) Config {
	return Config{
		DataDate:          baseDate(),
		Frequency:         FrequencyWeekly,
		HorizonMonths:     3,
		NIterations:       n,
		EnableCorrelation: true,
		CorrelationMethod: CorrelationCategory,
		Seed:              seedCfg(42),
	}
}

func TestSimulate_OneItemNoRisksNoActions(t *testing.T) {
	d := Dataset{
		Items: []CapexItem{
			{ID: 1, Name: "Foundations", P10: 100, P90: 200, BaseDate: baseDate(), Currency: "USD"},
		},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)
	require.NotEmpty(t, res.Checkpoints)

	for _, cp := range res.Checkpoints {
		assert.InDelta(t, 141.4, cp.P50, 141.4*0.02)
		assert.InDelta(t, 141.4, cp.Deterministic, 1e-6)
	}
}

func TestSimulate_CostAdjustmentAction(t *testing.T) {
	d := Dataset{
		Items: []CapexItem{
			{ID: 1, Name: "Foundations", P10: 100, P90: 200, BaseDate: baseDate(), Currency: "USD"},
		},
		ItemActions: []CapexAction{
			{ID: 1, ItemID: 1, Kind: ActionCostAdjustment, P10: 20, P90: 40, EffectiveDate: baseDate().AddDate(0, 0, 42), Description: "scope addition"},
		},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)

	weekSix := baseDate().AddDate(0, 0, 42)
	for _, cp := range res.Checkpoints {
		if cp.Date.Before(weekSix) {
			assert.InDelta(t, 141.4, cp.P50, 141.4*0.02)
		} else {
			assert.InDelta(t, 169.7, cp.P50, 169.7*0.02)
		}
	}
}

func TestSimulate_ItemWithRisk(t *testing.T) {
	d := Dataset{
		Items: []CapexItem{
			{ID: 1, Name: "Foundations", P10: 100, P90: 200, BaseDate: baseDate(), Currency: "USD"},
		},
		Risks: []Risk{
			{ID: 1, Name: "Weather", P: 0.5, ImpactP10: 50, ImpactP90: 100, Currency: "USD"},
		},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)

	first := res.Checkpoints[0]
	assert.InDelta(t, 176.75, first.Deterministic, 176.75*0.02)
}

func TestSimulate_RiskEliminationAction(t *testing.T) {
	d := Dataset{
		Items: []CapexItem{
			{ID: 1, Name: "Foundations", P10: 100, P90: 200, BaseDate: baseDate(), Currency: "USD"},
		},
		Risks: []Risk{
			{ID: 1, Name: "Weather", P: 0.5, ImpactP10: 50, ImpactP90: 100, Currency: "USD"},
		},
		RiskActions: []RiskAction{
			{ID: 1, RiskID: 1, Kind: RiskActionElimination, EffectiveDate: baseDate().AddDate(0, 0, 28), Description: "weatherproofing complete"},
		},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)

	weekFour := baseDate().AddDate(0, 0, 28)
	for _, cp := range res.Checkpoints {
		if cp.Date.Before(weekFour) {
			assert.InDelta(t, 176.75, cp.Deterministic, 176.75*0.02)
		} else {
			assert.InDelta(t, 141.4, cp.Deterministic, 141.4*0.02)
		}
	}
}

func TestSimulate_CorrelationBetweenSameOwnerSameDiscipline(t *testing.T) {
	disc := int64(1)
	d := Dataset{
		Lookups: Lookups{Disciplines: []Discipline{{ID: 1, Name: "Civil"}}},
		Items: []CapexItem{
			{ID: 1, Name: "A", P10: 100, P90: 200, BaseDate: baseDate(), Owner: "alice", DisciplineID: &disc},
			{ID: 2, Name: "B", P10: 100, P90: 200, BaseDate: baseDate(), Owner: "alice", DisciplineID: &disc},
		},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)
	assert.Equal(t, 2, res.NItems)
	assert.GreaterOrEqual(t, res.CorrelationSummary.MeanOffDiagonal, 0.85)
}

func TestSimulate_RiskLoggedMidHorizon(t *testing.T) {
	logDate := baseDate().AddDate(0, 0, 56)
	d := Dataset{
		Items: []CapexItem{
			{ID: 1, Name: "Foundations", P10: 100, P90: 200, BaseDate: baseDate()},
		},
		Risks: []Risk{
			{ID: 1, Name: "Late risk", P: 0.8, ImpactP10: 50, ImpactP90: 100, RiskLogDate: &logDate},
		},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)

	for _, cp := range res.Checkpoints {
		if cp.Date.Before(logDate) {
			assert.Empty(t, cp.RiskImpacts)
		} else {
			assert.NotEmpty(t, cp.RiskImpacts)
		}
	}
}

func TestSimulate_InsufficientData(t *testing.T) {
	_, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), Dataset{}, runConfig(1000))
	require.Error(t, err)
	_, ok := err.(*InsufficientDataError)
	assert.True(t, ok)
}

func TestSimulate_ConfigurationErrorOnBadIterationCount(t *testing.T) {
	d := Dataset{Items: []CapexItem{{ID: 1, P10: 100, P90: 200, BaseDate: baseDate()}}}
	cfg := runConfig(500)
	_, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, cfg)
	require.Error(t, err)
	_, ok := err.(*ConfigurationError)
	assert.True(t, ok)
}

func TestSimulate_CancellationReturnsNoPartialResults(t *testing.T) {
	d := Dataset{Items: []CapexItem{{ID: 1, P10: 100, P90: 200, BaseDate: baseDate()}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Simulate(ctx, logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.Error(t, err)
	_, ok := err.(*CancelledError)
	assert.True(t, ok)
}

func TestSimulate_ReportsConfiguredSeed(t *testing.T) {
	d := Dataset{Items: []CapexItem{{ID: 1, P10: 100, P90: 200, BaseDate: baseDate()}}}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(2000))
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.SeedUsed)
}

func TestSimulate_RandomSeedReportedWhenUnset(t *testing.T) {
	d := Dataset{Items: []CapexItem{{ID: 1, P10: 100, P90: 200, BaseDate: baseDate()}}}
	cfg := runConfig(2000)
	cfg.Seed = nil
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, int64(0), res.SeedUsed)
}

func TestSimulate_CheckpointsStrictlyIncreasing(t *testing.T) {
	d := Dataset{Items: []CapexItem{{ID: 1, P10: 100, P90: 200, BaseDate: baseDate()}}}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(1000))
	require.NoError(t, err)

	for i := 1; i < len(res.Checkpoints); i++ {
		assert.True(t, res.Checkpoints[i].Date.After(res.Checkpoints[i-1].Date))
	}
}

func TestSimulate_FlatWhenNoMitigationsOrRisks(t *testing.T) {
	d := Dataset{
		Items: []CapexItem{
			{ID: 1, P10: 45, P90: 55, BaseDate: baseDate()},
		},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)

	expectedMedian := res.Checkpoints[0].Deterministic
	for _, cp := range res.Checkpoints {
		assert.InDelta(t, expectedMedian, cp.P50, expectedMedian*0.02)
		assert.InDelta(t, expectedMedian, cp.Deterministic, 1e-6, "no actions or risks: the deterministic estimate never changes")
	}
}

func TestSimulate_SingleRiskPEqualsOneMatchesItemDistribution(t *testing.T) {
	d := Dataset{
		Items: []CapexItem{{ID: 1, P10: 100, P90: 200, BaseDate: baseDate()}},
		Risks: []Risk{{ID: 1, P: 1.0, ImpactP10: 100, ImpactP90: 200}},
	}
	res, err := Simulate(context.Background(), logging.New(logging.Config{Level: "error"}), d, runConfig(20000))
	require.NoError(t, err)
	first := res.Checkpoints[0]
	assert.InDelta(t, 2*141.4, first.P50, 2*141.4*0.03)
}

