package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openspatial/spatial-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "spatial-cli",
	Short: "Point-pattern analysis toolkit",
	Long:  "Clusters, interpolates, and scores geographic point datasets: K-Means, DBSCAN, IDW surfaces, Moran/LISA/Gi* hotspots, 2SFCA accessibility, facility coverage models, and travel-time isochrones.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
