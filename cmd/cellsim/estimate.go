package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"battery-platform/internal/models"
	"battery-platform/internal/services"
	"battery-platform/internal/simulation"
)

func (a *app) estimateCmd() *cobra.Command {
	var (
		binder      string
		solvent     string
		dryingTemp  float64
		dryingTime  float64
		loadingMass float64
		method      string
		dataPath    string
		dataSeed    uint64
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate CO2, drying energy and VOC for an electrode process",
		Long: "Checks the binder and solvent can form a slurry, then estimates the per square\n" +
			"metre impact and compares it against the NMP baseline of the LCA dataset.",
		Example: "  cellsim estimate --binder CMGG --solvent Water --temp 100 --time 60 --loading 20\n" +
			"  cellsim estimate --binder PVDF --solvent NMP --method surrogate -o yaml",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			solventType, err := models.ParseSolvent(solvent)
			if err != nil {
				return err
			}
			cond := models.ProcessCondition{
				Binder:        models.ParseBinder(binder),
				Solvent:       solventType,
				DryingTempC:   dryingTemp,
				DryingTimeMin: dryingTime,
				LoadingMass:   loadingMass,
			}

			path := a.cfg.Data.LCAPath
			if cmd.Flags().Changed("data") {
				path = dataPath
			}
			var src rand.Source
			if cmd.Flags().Changed("data-seed") {
				src = rand.NewPCG(dataSeed, 0)
			}

			set, err := services.LoadTrainingSet(ctx, nil, path, src, a.logger)
			if err != nil {
				return err
			}

			var surrogate simulation.Estimator
			if method == simulation.MethodSurrogate {
				model, err := services.FitSurrogate(ctx, set, a.cfg.Simulation.SurrogateRidge, a.logger, a.metrics)
				if err != nil {
					return fmt.Errorf("failed to fit surrogate: %w", err)
				}
				surrogate = model
			}

			svc := services.NewImpactService(simulation.NewImpactModel(), surrogate, services.NMPBaseline(set.Records), a.logger, a.metrics)
			report, err := svc.Estimate(ctx, cond, method)
			if err != nil {
				return err
			}
			return a.write(cmd, report)
		},
	}

	cmd.Flags().StringVarP(&binder, "binder", "b", "", "Binder type: PVDF|CMC|CMGG|GG|SBR (required)")
	cmd.Flags().StringVarP(&solvent, "solvent", "s", "", "Solvent type: NMP|Water (required)")
	cmd.Flags().Float64Var(&dryingTemp, "temp", 110, "Drying temperature in °C")
	cmd.Flags().Float64Var(&dryingTime, "time", 30, "Drying time in minutes")
	cmd.Flags().Float64Var(&loadingMass, "loading", 10, "Areal mass loading in g/m²")
	cmd.Flags().StringVarP(&method, "method", "m", simulation.MethodRules, "Estimator: rules|surrogate")
	cmd.Flags().StringVar(&dataPath, "data", "", "LCA dataset CSV (default from config; synthetic when missing)")
	cmd.Flags().Uint64Var(&dataSeed, "data-seed", 0, "Seed for the synthetic dataset when no CSV is found")
	cmd.MarkFlagRequired("binder")
	cmd.MarkFlagRequired("solvent")

	return cmd
}
