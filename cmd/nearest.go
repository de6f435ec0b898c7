package main

import (
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/knnindex"
	"github.com/openspatial/spatial-cli/internal/model"
)

var nearestCmd = &cobra.Command{
	Use:   "nearest <dataset>",
	Short: "Nearest-neighbor query against a dataset",
	Long:  "Builds a kd-tree over the dataset and returns the k nearest points to the query coordinate, or every point within a radius.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lon, _ := cmd.Flags().GetFloat64("lon")
		lat, _ := cmd.Flags().GetFloat64("lat")
		k, _ := cmd.Flags().GetInt("k")
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

		params := map[string]any{"lon": lon, "lat": lat, "k": k, "radius_meters": radius}
		return runAnalysis(ctx, st, model.KindNearest, ds.Name, params, func() (any, error) {
			idx, err := knnindex.Build(ds.Points, knnindex.MetricGeographic)
			if err != nil {
				return nil, err
			}

			var neighbors []knnindex.Neighbor
			if radius > 0 {
				neighbors, err = idx.Within(lon, lat, radius)
			} else {
				neighbors, err = idx.Nearest(lon, lat, k)
			}
			if err != nil {
				return nil, err
			}

			type hit struct {
				ID     string  `json:"id"`
				Label  string  `json:"label,omitempty"`
				Lon    float64 `json:"lon"`
				Lat    float64 `json:"lat"`
				Meters float64 `json:"meters"`
			}
			hits := make([]hit, len(neighbors))
			for i, n := range neighbors {
				p := ds.Points[n.Idx]
				hits[i] = hit{ID: p.ID, Label: p.Label, Lon: p.Lon, Lat: p.Lat, Meters: n.Dist}
			}
			return map[string]any{"neighbors": hits}, nil
		})
	},
}

func init() {
	nearestCmd.Flags().Float64("lon", 0, "query longitude")
	nearestCmd.Flags().Float64("lat", 0, "query latitude")
	nearestCmd.Flags().Int("k", 5, "neighbor count")
	nearestCmd.Flags().Float64("radius", 0, "radius in meters (overrides --k)")
	_ = nearestCmd.MarkFlagRequired("lon")
	_ = nearestCmd.MarkFlagRequired("lat")

	rootCmd.AddCommand(nearestCmd)
}
