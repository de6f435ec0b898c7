package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/facility"
	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/store"
)

var facilityCmd = &cobra.Command{
	Use:   "facility",
	Short: "Facility location models",
	Long:  "Set-covering (LSCP) and maximal-covering (MCLP) site selection over a demand dataset and a candidate-site dataset.",
}

func buildCoverageFromArgs(ctx context.Context, st store.Store, demandName, candidatesName string, radius float64) (*facility.Coverage, *model.Dataset, error) {
	demand, err := st.GetDataset(ctx, demandName)
	if err != nil {
		return nil, nil, err
	}
	candidates, err := st.GetDataset(ctx, candidatesName)
	if err != nil {
		return nil, nil, err
	}
	cov, err := facility.BuildCoverage(demand.Points, candidatesFrom(candidates), radius)
	if err != nil {
		return nil, nil, err
	}
	return cov, demand, nil
}

var facilityLSCPCmd = &cobra.Command{
	Use:   "lscp <demand-dataset> <candidate-dataset>",
	Short: "Minimum sites covering all demand",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		radius, _ := cmd.Flags().GetFloat64("radius")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cov, demand, err := buildCoverageFromArgs(ctx, st, args[0], args[1], radius)
		if err != nil {
			return err
		}

		return runAnalysis(ctx, st, model.KindLSCP, demand.Name, map[string]any{
			"candidates": args[1], "radius_meters": radius,
		}, func() (any, error) {
			return facility.SolveLSCP(cov)
		})
	},
}

var facilityMCLPCmd = &cobra.Command{
	Use:   "mclp <demand-dataset> <candidate-dataset>",
	Short: "Maximize covered demand with p sites",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		radius, _ := cmd.Flags().GetFloat64("radius")
		p, _ := cmd.Flags().GetInt("p")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cov, demand, err := buildCoverageFromArgs(ctx, st, args[0], args[1], radius)
		if err != nil {
			return err
		}

		return runAnalysis(ctx, st, model.KindMCLP, demand.Name, map[string]any{
			"candidates": args[1], "radius_meters": radius, "p": p,
		}, func() (any, error) {
			return facility.SolveMCLP(cov, p)
		})
	},
}

var facilityScenarioCmd = &cobra.Command{
	Use:   "scenario <scenario.yaml>",
	Short: "Run a facility-location scenario file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sc, err := facility.LoadScenario(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cov, demand, err := buildCoverageFromArgs(ctx, st, sc.Demand, sc.Candidates, sc.RadiusMeters)
		if err != nil {
			return err
		}

		params := map[string]any{
			"scenario": sc.Name, "candidates": sc.Candidates,
			"radius_meters": sc.RadiusMeters, "model": sc.Model, "p": sc.P,
		}
		switch sc.Model {
		case facility.ModelLSCP:
			return runAnalysis(ctx, st, model.KindLSCP, demand.Name, params, func() (any, error) {
				return facility.SolveLSCP(cov)
			})
		case facility.ModelMCLP:
			return runAnalysis(ctx, st, model.KindMCLP, demand.Name, params, func() (any, error) {
				return facility.SolveMCLP(cov, sc.P)
			})
		default:
			return eris.Errorf("unknown scenario model %q", sc.Model)
		}
	},
}

func init() {
	facilityLSCPCmd.Flags().Float64("radius", 5000, "service radius in meters")
	facilityMCLPCmd.Flags().Float64("radius", 5000, "service radius in meters")
	facilityMCLPCmd.Flags().Int("p", 3, "site budget")

	facilityCmd.AddCommand(facilityLSCPCmd, facilityMCLPCmd, facilityScenarioCmd)
	rootCmd.AddCommand(facilityCmd)
}
