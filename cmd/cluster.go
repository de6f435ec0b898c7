package main

import (
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/cluster"
	"github.com/openspatial/spatial-cli/internal/model"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster a point dataset",
}

var clusterKMeansCmd = &cobra.Command{
	Use:   "kmeans <dataset>",
	Short: "Partition points into k clusters (k-means++ seeding)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		k, _ := cmd.Flags().GetInt("k")
		maxIter, _ := cmd.Flags().GetInt("max-iter")
		seed, _ := cmd.Flags().GetUint64("seed")
		if seed == 0 {
			seed = cfg.Analysis.Seed
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}

		opts := cluster.KMeansOptions{K: k, MaxIter: maxIter, Seed: seed}
		return runAnalysis(ctx, st, model.KindKMeans, ds.Name, map[string]any{
			"k": k, "max_iter": maxIter, "seed": seed,
		}, func() (any, error) {
			return cluster.KMeans(ds.Points, opts)
		})
	},
}

var clusterDBSCANCmd = &cobra.Command{
	Use:   "dbscan <dataset>",
	Short: "Density-based clustering with metric radius",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eps, _ := cmd.Flags().GetFloat64("eps")
		minPts, _ := cmd.Flags().GetInt("min-pts")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds, err := st.GetDataset(ctx, args[0])
		if err != nil {
			return err
		}

		opts := cluster.DBSCANOptions{EpsMeters: eps, MinPts: minPts}
		return runAnalysis(ctx, st, model.KindDBSCAN, ds.Name, map[string]any{
			"eps_meters": eps, "min_pts": minPts,
		}, func() (any, error) {
			return cluster.DBSCAN(ds.Points, opts)
		})
	},
}

func init() {
	clusterKMeansCmd.Flags().Int("k", 5, "number of clusters")
	clusterKMeansCmd.Flags().Int("max-iter", 100, "iteration cap")
	clusterKMeansCmd.Flags().Uint64("seed", 0, "RNG seed (default from config)")

	clusterDBSCANCmd.Flags().Float64("eps", 500, "neighborhood radius in meters")
	clusterDBSCANCmd.Flags().Int("min-pts", 5, "minimum neighborhood size for a core point")

	clusterCmd.AddCommand(clusterKMeansCmd, clusterDBSCANCmd)
	rootCmd.AddCommand(clusterCmd)
}
