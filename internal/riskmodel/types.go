// Package riskmodel implements the Monte Carlo project-cost risk simulator:
// input validation, distribution fitting, correlation construction, sampling,
// checkpoint evolution, and percentile aggregation.
package riskmodel

import "time"

// ActionKind is the tagged-variant discriminator for a CapexAction.
type ActionKind string

const (
	// ActionCostReplacement supersedes the item's quote from EffectiveDate
	// forward; its P10/P90 become the item's new base quote.
	ActionCostReplacement ActionKind = "cost_replacement"
	// ActionCostAdjustment adds an independent, additive cost with its own
	// P10/P90 uncertainty, active from EffectiveDate forward.
	ActionCostAdjustment ActionKind = "cost_adjustment"
)

// RiskActionKind is the tagged-variant discriminator for a RiskAction.
type RiskActionKind string

const (
	// RiskActionProbabilityReduction lowers a risk's occurrence probability,
	// either multiplicatively (ProbMultiplier) or via an additive cap
	// (ProbAdditiveCap) — exactly one must be set.
	RiskActionProbabilityReduction RiskActionKind = "probability_reduction"
	// RiskActionImpactReduction scales a risk's conditional impact P10/P90.
	RiskActionImpactReduction RiskActionKind = "impact_reduction"
	// RiskActionElimination removes a risk's contribution entirely (its
	// effective probability becomes zero) from EffectiveDate forward.
	RiskActionElimination RiskActionKind = "elimination"
)

// Frequency is the baseline checkpoint spacing.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// CorrelationMethod selects how the joint correlation matrix is built.
type CorrelationMethod string

const (
	CorrelationCategory CorrelationMethod = "category"
	CorrelationNone     CorrelationMethod = "none"
)

// Discipline, Phase, Location, RiskCategory and RiskLog are the lookup
// tables that give categorical attributes referential stability and enable
// correlation scoring (§3).
type Discipline struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Phase struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type RiskCategory struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	DefaultCorrelation float64 `json:"default_correlation"`
}

type RiskLog struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Lookups bundles the reference tables used to resolve categorical
// attributes during validation.
type Lookups struct {
	Disciplines    []Discipline   `json:"disciplines,omitempty"`
	Phases         []Phase        `json:"phases,omitempty"`
	Locations      []Location     `json:"locations,omitempty"`
	RiskCategories []RiskCategory `json:"risk_categories,omitempty"`
	RiskLogs       []RiskLog      `json:"risk_logs,omitempty"`
}

// CapexItem is a cost-bearing project line item.
type CapexItem struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	P10      float64   `json:"p10"`
	ML       *float64  `json:"ml,omitempty"` // optional most-likely quote, display-only (§4.2)
	P90      float64   `json:"p90"`
	BaseDate time.Time `json:"base_date"`
	Currency string    `json:"currency,omitempty"`

	Owner        string `json:"owner,omitempty"` // "" means unknown / no affinity
	DisciplineID *int64 `json:"discipline_id,omitempty"`
	PhaseID      *int64 `json:"phase_id,omitempty"`
	LocationID   *int64 `json:"location_id,omitempty"`
}

// CapexAction is a dated change to a CapexItem.
type CapexAction struct {
	ID            int64      `json:"id"`
	ItemID        int64      `json:"item_id"`
	Kind          ActionKind `json:"kind"`
	P10           float64    `json:"p10"` // cost_adjustment: delta quote. cost_replacement: new quote.
	P90           float64    `json:"p90"`
	EffectiveDate time.Time  `json:"effective_date"`
	Description   string     `json:"description,omitempty"`
}

// Risk is an uncertain future event that may add cost.
type Risk struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	P         float64 `json:"p"`
	ImpactP10 float64 `json:"impact_p10"`
	ImpactP90 float64 `json:"impact_p90"`
	Currency  string  `json:"currency,omitempty"`

	Owner          string     `json:"owner,omitempty"`
	DisciplineID   *int64     `json:"discipline_id,omitempty"`
	PhaseID        *int64     `json:"phase_id,omitempty"`
	LocationID     *int64     `json:"location_id,omitempty"`
	RiskCategoryID *int64     `json:"risk_category_id,omitempty"`
	RiskLogID      *int64     `json:"risk_log_id,omitempty"`
	RiskLogDate    *time.Time `json:"risk_log_date,omitempty"` // nil means logged from the start of the horizon
}

// RiskAction is a dated change to a Risk.
type RiskAction struct {
	ID              int64          `json:"id"`
	RiskID          int64          `json:"risk_id"`
	Kind            RiskActionKind `json:"kind"`
	EffectiveDate   time.Time      `json:"effective_date"`
	ProbMultiplier  *float64       `json:"prob_multiplier,omitempty"`  // probability_reduction (multiplicative): p *= *ProbMultiplier
	ProbAdditiveCap *float64       `json:"prob_additive_cap,omitempty"` // probability_reduction (additive cap): p = min(p, *ProbAdditiveCap)
	ImpactScale     *float64       `json:"impact_scale,omitempty"`     // impact_reduction: impact P10/P90 *= *ImpactScale
	Description     string         `json:"description,omitempty"`
}

// Dataset is the full, already-loaded tabular input to a simulation run.
type Dataset struct {
	Items       []CapexItem   `json:"items,omitempty"`
	ItemActions []CapexAction `json:"item_actions,omitempty"`
	Risks       []Risk        `json:"risks,omitempty"`
	RiskActions []RiskAction  `json:"risk_actions,omitempty"`
	Lookups     Lookups       `json:"lookups,omitempty"`
}

// Config holds the simulate_cost_evolution options enumerated in §6.
type Config struct {
	DataDate          time.Time
	Frequency         Frequency
	HorizonMonths     int
	NIterations       int
	EnableCorrelation bool
	CorrelationMethod CorrelationMethod
	Seed              *int64 // nil: pick a random seed and report it in the result
	Workers           int    // 0: let Simulate choose based on GOMAXPROCS
}

// DefaultConfig returns the documented defaults from §6.
func DefaultConfig() Config {
	return Config{
		Frequency:         FrequencyWeekly,
		HorizonMonths:     12,
		NIterations:       10000,
		EnableCorrelation: true,
		CorrelationMethod: CorrelationCategory,
	}
}

// MitigationImpact is one entry of a checkpoint's mitigation_impacts list.
type MitigationImpact struct {
	ActionID       int64   `json:"action_id"`
	Description    string  `json:"description,omitempty"`
	ExpectedSaving float64 `json:"expected_saving"`
}

// RiskImpact is one entry of a checkpoint's risk_impacts list.
type RiskImpact struct {
	RiskID         int64   `json:"risk_id"`
	Name           string  `json:"name"`
	ExpectedImpact float64 `json:"expected_impact"`
}

// Checkpoint is one row of a SimulationResult.
type Checkpoint struct {
	Date              time.Time          `json:"date"`
	P20               float64            `json:"p20"`
	P50               float64            `json:"p50"`
	P80               float64            `json:"p80"`
	Deterministic     float64            `json:"deterministic"`
	MitigationImpacts []MitigationImpact `json:"mitigation_impacts,omitempty"`
	RiskImpacts       []RiskImpact       `json:"risk_impacts,omitempty"`
}

// CorrelationSummary is the header diagnostic described in §6.
type CorrelationSummary struct {
	NonZeroOffDiagonalPairs int     `json:"non_zero_off_diagonal_pairs"`
	MeanOffDiagonal         float64 `json:"mean_off_diagonal"`
	PSDRepaired             bool    `json:"psd_repaired"`
}

// Result is the SimulationResult returned by Simulate.
type Result struct {
	Checkpoints        []Checkpoint       `json:"checkpoints"`
	SeedUsed           int64              `json:"seed_used"`
	NIterations        int                `json:"n_iterations"`
	NItems             int                `json:"n_items"`
	NRisks             int                `json:"n_risks"`
	CorrelationSummary CorrelationSummary `json:"correlation_summary"`
}
