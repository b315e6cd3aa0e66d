package riskmodel

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/riskforecast/internal/riskmodel/aggregate"
	"github.com/aristath/riskforecast/internal/riskmodel/correlation"
	"github.com/aristath/riskforecast/internal/riskmodel/fit"
	"github.com/aristath/riskforecast/internal/riskmodel/sample"
)

// Simulate runs simulate_cost_evolution: it validates the dataset and
// config, fits every item/risk distribution, builds the joint correlation
// matrix once over the full item+risk set, then walks the checkpoint
// sequence applying actions and sampling totals, reusing a checkpoint's
// totals when nothing about the snapshot changed since the last one (§4.5).
func Simulate(ctx context.Context, logger zerolog.Logger, d Dataset, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	r, err := Validate(d)
	if err != nil {
		return nil, err
	}

	seed, err := resolveSeed(cfg.Seed)
	if err != nil {
		return nil, &InternalError{Message: err.Error()}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	items := make([]itemSnap, len(r.items))
	for i, it := range r.items {
		p, ferr := fit.Fit(it.P10, it.P90)
		if ferr != nil {
			return nil, &InternalError{Message: fmt.Sprintf("item %d: %v", it.ID, ferr)}
		}
		items[i] = itemSnap{item: it, params: p}
	}

	risks := make([]riskSnap, len(r.risks))
	for i, rk := range r.risks {
		p, ferr := fit.Fit(rk.ImpactP10, rk.ImpactP90)
		if ferr != nil {
			return nil, &InternalError{Message: fmt.Sprintf("risk %d: %v", rk.ID, ferr)}
		}
		risks[i] = riskSnap{risk: rk, p: rk.P, impact: p}
	}

	elements := make([]correlation.Element, 0, len(items)+len(risks))
	for _, it := range items {
		elements = append(elements, itemElement(it.item, r))
	}
	for _, rk := range risks {
		elements = append(elements, riskElement(rk.risk, r))
	}

	var corrMatrix *correlation.Matrix
	var corrSummary correlation.Summary
	if cfg.EnableCorrelation && cfg.CorrelationMethod == CorrelationCategory {
		corrMatrix, corrSummary, err = correlation.Build(elements, correlation.DefaultOptions())
		if err != nil {
			fe, ok := err.(*correlation.FactorizationError)
			if ok {
				return nil, &NumericError{MinEigenvalue: fe.MinEigenvalue}
			}
			return nil, &InternalError{Message: err.Error()}
		}
	} else {
		corrMatrix = correlation.Identity(len(elements))
	}

	logger.Debug().
		Int("n_items", len(items)).
		Int("n_risks", len(risks)).
		Bool("psd_repaired", corrSummary.PSDRepaired).
		Msg("correlation matrix built")

	dates := buildCheckpointDates(cfg.DataDate, cfg.Frequency, cfg.HorizonMonths, r)

	checkpoints := make([]Checkpoint, 0, len(dates))
	var mitigations []MitigationImpact
	var lastSignature string
	var lastTotals []float64
	first := true

	for _, t := range dates {
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Cause: err}
		}

		for _, act := range actionsAt(r, t) {
			switch {
			case act.item != nil:
				mi, aerr := applyItemAction(items, r.itemIdx, act.item)
				if aerr != nil {
					return nil, aerr
				}
				mitigations = append(mitigations, mi)
			case act.risk != nil:
				mi, aerr := applyRiskAction(risks, r.riskIdx, act.risk)
				if aerr != nil {
					return nil, aerr
				}
				mitigations = append(mitigations, mi)
			}
		}

		for i := range risks {
			logDate := risks[i].risk.RiskLogDate
			risks[i].active = logDate == nil || !t.Before(*logDate)
		}

		sig := signature(items, risks)
		needsResample := first || sig != lastSignature
		first = false

		var totals []float64
		if needsResample {
			sampleItems := make([]sample.ElementParams, len(items))
			var extras []sample.ExtraDraw
			for i, it := range items {
				sampleItems[i] = sample.ElementParams{Mu: it.params.Mu, Sigma: it.params.Sigma}
				extras = append(extras, it.extras...)
			}
			sampleRisks := make([]sample.RiskDraw, len(risks))
			for i, rk := range risks {
				sampleRisks[i] = sample.RiskDraw{
					P:      rk.p,
					Impact: sample.ElementParams{Mu: rk.impact.Mu, Sigma: rk.impact.Sigma},
					Active: rk.active,
				}
			}
			totals, err = sample.Totals(ctx, cfg.NIterations, corrMatrix.L, sampleItems, sampleRisks, extras, seed, workers)
			if err != nil {
				return nil, &CancelledError{Cause: err}
			}
			lastTotals = totals
			lastSignature = sig
		} else {
			totals = lastTotals
		}

		percentiles := aggregate.Compute(totals)

		var deterministic float64
		for _, it := range items {
			deterministic += it.params.Median()
			for _, e := range it.extras {
				deterministic += fit.Params{Mu: e.Params.Mu, Sigma: e.Params.Sigma}.Median()
			}
		}
		var riskImpacts []RiskImpact
		for _, rk := range risks {
			if !rk.active {
				continue
			}
			impact := rk.p * rk.impact.Median()
			deterministic += impact
			riskImpacts = append(riskImpacts, RiskImpact{RiskID: rk.risk.ID, Name: rk.risk.Name, ExpectedImpact: impact})
		}

		checkpointMitigations := append([]MitigationImpact(nil), mitigations...)

		checkpoints = append(checkpoints, Checkpoint{
			Date:              t,
			P20:               percentiles.P20,
			P50:               percentiles.P50,
			P80:               percentiles.P80,
			Deterministic:     deterministic,
			MitigationImpacts: checkpointMitigations,
			RiskImpacts:       riskImpacts,
		})
	}

	sort.Slice(checkpoints, func(i, j int) bool { return checkpoints[i].Date.Before(checkpoints[j].Date) })

	return &Result{
		Checkpoints: checkpoints,
		SeedUsed:    int64(seed),
		NIterations: cfg.NIterations,
		NItems:      len(items),
		NRisks:      len(risks),
		CorrelationSummary: CorrelationSummary{
			NonZeroOffDiagonalPairs: corrSummary.NonZeroOffDiagonalPairs,
			MeanOffDiagonal:         corrSummary.MeanOffDiagonal,
			PSDRepaired:             corrSummary.PSDRepaired,
		},
	}, nil
}

func validateConfig(cfg Config) error {
	if cfg.HorizonMonths < 1 || cfg.HorizonMonths > 60 {
		return &ConfigurationError{Field: "horizon_months", Message: "must be within [1, 60]"}
	}
	if cfg.NIterations < 1000 || cfg.NIterations > 50000 {
		return &ConfigurationError{Field: "n_iterations", Message: "must be within [1000, 50000]"}
	}
	switch cfg.Frequency {
	case FrequencyWeekly, FrequencyMonthly:
	default:
		return &ConfigurationError{Field: "frequency", Message: fmt.Sprintf("unknown frequency %q", cfg.Frequency)}
	}
	switch cfg.CorrelationMethod {
	case CorrelationCategory, CorrelationNone:
	default:
		return &ConfigurationError{Field: "correlation_method", Message: fmt.Sprintf("unknown correlation method %q", cfg.CorrelationMethod)}
	}
	return nil
}

// resolveSeed returns the configured seed, or a freshly drawn one when the
// caller did not pin it, so the result can report exactly what was used.
func resolveSeed(seed *int64) (uint64, error) {
	if seed != nil {
		return uint64(*seed), nil
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("resolveSeed: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
