package main

import (
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/interp"
	"github.com/openspatial/spatial-cli/internal/model"
)

var interpolateCmd = &cobra.Command{
	Use:   "interpolate <dataset>",
	Short: "Interpolate point values onto a grid (IDW)",
	Long:  "Builds a regular lon/lat grid over the dataset extent and fills each cell with the inverse-distance-weighted mean of nearby sample values.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cellSize, _ := cmd.Flags().GetFloat64("cell-size")
		power, _ := cmd.Flags().GetFloat64("power")
		neighbors, _ := cmd.Flags().GetInt("neighbors")
		radius, _ := cmd.Flags().GetFloat64("radius")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}

		opts := interp.Options{
			CellSizeDeg:  cellSize,
			Power:        power,
			Neighbors:    neighbors,
			RadiusMeters: radius,
			Workers:      cfg.Analysis.Workers,
		}
		return runAnalysis(ctx, st, model.KindIDW, ds.Name, map[string]any{
			"cell_size_deg": cellSize, "power": power, "neighbors": neighbors, "radius_meters": radius,
		}, func() (any, error) {
			return interp.IDW(ctx, ds.Points, opts)
		})
	},
}

func init() {
	interpolateCmd.Flags().Float64("cell-size", 0.01, "grid cell edge in degrees")
	interpolateCmd.Flags().Float64("power", 2, "distance-decay exponent")
	interpolateCmd.Flags().Int("neighbors", 12, "nearest samples per cell")
	interpolateCmd.Flags().Float64("radius", 0, "fixed search radius in meters (overrides --neighbors)")

	rootCmd.AddCommand(interpolateCmd)
}
