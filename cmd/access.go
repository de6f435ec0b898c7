package main

import (
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/access"
	"github.com/openspatial/spatial-cli/internal/model"
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Spatial accessibility scores",
}

var access2SFCACmd = &cobra.Command{
	Use:   "2sfca <demand-dataset> <facility-dataset>",
	Short: "Two-step floating catchment accessibility",
	Long:  "Computes 2SFCA scores: facility-to-population ratios within the catchment, then per-demand sums of reachable ratios. Demand weight carries population; facility weight carries capacity.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d0, _ := cmd.Flags().GetFloat64("d0")
		decay, _ := cmd.Flags().GetString("decay")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		demand, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}
		facilities, err := st.GetDataset(ctx, args[1])
		if err != nil {
			return err
		}

		opts := access.Options{D0Meters: d0, Decay: decay}
		return runAnalysis(ctx, st, model.KindTwoSFCA, demand.Name, map[string]any{
			"facilities": facilities.Name, "d0_meters": d0, "decay": decay,
		}, func() (any, error) {
			return access.Compute(demand.Points, facilitiesFrom(facilities), opts)
		})
	},
}

func init() {
	access2SFCACmd.Flags().Float64("d0", 5000, "catchment radius in meters")
	access2SFCACmd.Flags().String("decay", "binary", "distance kernel: binary or gaussian")

	accessCmd.AddCommand(access2SFCACmd)
	rootCmd.AddCommand(accessCmd)
}
