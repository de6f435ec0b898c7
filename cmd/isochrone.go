package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/network"
)

var isochroneCmd = &cobra.Command{
	Use:   "isochrone <nodes.csv> <edges.csv> <source-node>",
	Short: "Travel-time reachability polygons",
	Long:  "Loads a travel-time graph from node and edge CSVs, runs shortest paths from the source node, and emits a convex-hull polygon per time cutoff.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cutoffs, _ := cmd.Flags().GetFloat64Slice("cutoffs")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		g, err := network.LoadCSV(args[0], args[1])
		if err != nil {
			return err
		}

		return runAnalysis(ctx, st, model.KindIsochrone, "", map[string]any{
			"nodes": args[0], "edges": args[1], "source": args[2], "cutoffs_seconds": cutoffs,
		}, func() (any, error) {
			bands, err := g.Isochrones(args[2], cutoffs)
			if err != nil {
				return nil, err
			}

			fc, err := network.BandsGeoJSON(bands)
			if err != nil {
				return nil, err
			}

			summary := make([]map[string]any, len(bands))
			for i, b := range bands {
				summary[i] = map[string]any{
					"cutoff_seconds": b.CutoffSeconds,
					"nodes":          b.Nodes,
				}
			}
			return map[string]any{
				"bands":    summary,
				"polygons": json.RawMessage(fc),
			}, nil
		})
	},
}

func init() {
	isochroneCmd.Flags().Float64Slice("cutoffs", []float64{300, 600, 900}, "time cutoffs in seconds")

	rootCmd.AddCommand(isochroneCmd)
}
