package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/hotspot"
	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/weights"
)

var hotspotCmd = &cobra.Command{
	Use:   "hotspot",
	Short: "Spatial autocorrelation and hot spot statistics",
	Long:  "Global Moran's I, local Moran (LISA) cluster maps, and Getis-Ord Gi* hot/cold spot classification over a dataset's value column.",
}

// buildWeights constructs the spatial weights matrix from command flags.
func buildWeights(cmd *cobra.Command, pts []model.Point) (*weights.Matrix, map[string]any, error) {
	scheme, _ := cmd.Flags().GetString("weights")
	k, _ := cmd.Flags().GetInt("k")
	band, _ := cmd.Flags().GetFloat64("band")

	var w *weights.Matrix
	var err error
	params := map[string]any{"weights": scheme}

	switch scheme {
	case "knn":
		w, err = weights.KNN(pts, k)
		params["k"] = k
	case "band":
		w, err = weights.DistanceBand(pts, band)
		params["band_meters"] = band
	default:
		return nil, nil, eris.Errorf("unknown weights scheme %q (knn or band)", scheme)
	}
	if err != nil {
		return nil, nil, err
	}
	w.RowStandardize()
	return w, params, nil
}

func permOptions(cmd *cobra.Command) (hotspot.PermOptions, map[string]any) {
	perms, _ := cmd.Flags().GetInt("permutations")
	seed, _ := cmd.Flags().GetUint64("seed")
	if perms == 0 {
		perms = cfg.Analysis.Permutations
	}
	if seed == 0 {
		seed = cfg.Analysis.Seed
	}
	return hotspot.PermOptions{Permutations: perms, Seed: seed},
		map[string]any{"permutations": perms, "seed": seed}
}

var hotspotMoranCmd = &cobra.Command{
	Use:   "moran <dataset>",
	Short: "Global Moran's I with permutation inference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}

		w, params, err := buildWeights(cmd, ds.Points)
		if err != nil {
			return err
		}
		opts, permParams := permOptions(cmd)
		for k, v := range permParams {
			params[k] = v
		}

		return runAnalysis(ctx, st, model.KindMoran, ds.Name, params, func() (any, error) {
			return hotspot.GlobalMoran(datasetValues(ds), w, opts)
		})
	},
}

var hotspotLISACmd = &cobra.Command{
	Use:   "lisa <dataset>",
	Short: "Local Moran cluster map (HH/LL/HL/LH)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		alpha, _ := cmd.Flags().GetFloat64("alpha")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}

		w, params, err := buildWeights(cmd, ds.Points)
		if err != nil {
			return err
		}
		opts, permParams := permOptions(cmd)
		for k, v := range permParams {
			params[k] = v
		}
		params["alpha"] = alpha

		return runAnalysis(ctx, st, model.KindLISA, ds.Name, params, func() (any, error) {
			return hotspot.LocalMoran(datasetValues(ds), w, alpha, opts)
		})
	},
}

var hotspotGiCmd = &cobra.Command{
	Use:   "gi <dataset>",
	Short: "Getis-Ord Gi* hot/cold spot classification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}

		w, params, err := buildWeights(cmd, ds.Points)
		if err != nil {
			return err
		}

		return runAnalysis(ctx, st, model.KindGetisOrd, ds.Name, params, func() (any, error) {
			return hotspot.GetisOrd(datasetValues(ds), w)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{hotspotMoranCmd, hotspotLISACmd, hotspotGiCmd} {
		c.Flags().String("weights", "knn", "weights scheme: knn or band")
		c.Flags().Int("k", 8, "neighbor count (knn)")
		c.Flags().Float64("band", 0, "distance band in meters (band)")
	}
	hotspotMoranCmd.Flags().Int("permutations", 0, "permutation count (default from config)")
	hotspotMoranCmd.Flags().Uint64("seed", 0, "RNG seed (default from config)")
	hotspotLISACmd.Flags().Int("permutations", 0, "permutation count (default from config)")
	hotspotLISACmd.Flags().Uint64("seed", 0, "RNG seed (default from config)")
	hotspotLISACmd.Flags().Float64("alpha", 0.05, "significance threshold")

	hotspotCmd.AddCommand(hotspotMoranCmd, hotspotLISACmd, hotspotGiCmd)
	rootCmd.AddCommand(hotspotCmd)
}
