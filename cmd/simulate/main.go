// Command simulate runs simulate_cost_evolution over a JSON dataset and
// prints the result (header and checkpoints) to stdout as indented JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/riskforecast/internal/config"
	"github.com/aristath/riskforecast/internal/logging"
	"github.com/aristath/riskforecast/internal/riskmodel"
)

func main() {
	inputPath := flag.String("input", "", "path to the JSON dataset (overrides RISKSIM_INPUT)")
	timeout := flag.Duration("timeout", 60*time.Second, "wall-clock timeout for the simulation run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Config{Level: "info", Pretty: true}).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: true})
	runID := uuid.New().String()
	log = log.With().Str("run_id", runID).Logger()

	path := cfg.InputPath
	if *inputPath != "" {
		path = *inputPath
	}

	dataset, err := loadDataset(path)
	if err != nil {
		log.Fatal().Err(err).Str("input", path).Msg("failed to load dataset")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Info().Str("input", path).Msg("starting simulation")
	result, err := riskmodel.Simulate(ctx, log, *dataset, cfg.Defaults)
	if err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}

	printResult(result)
}

// loadDataset decodes a riskmodel.Dataset from a JSON file. The engine
// itself never touches the filesystem; this is the one I/O seam around it.
func loadDataset(path string) (*riskmodel.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var d riskmodel.Dataset
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func printResult(r *riskmodel.Result) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(r)
}
