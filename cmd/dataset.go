package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/dataset"
	"github.com/openspatial/spatial-cli/internal/fetch"
	"github.com/openspatial/spatial-cli/internal/geodata"
	"github.com/openspatial/spatial-cli/internal/model"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage point datasets",
	Long:  "Commands for generating, importing, fetching, listing, and deleting point datasets.",
}

// -- dataset generate --

var datasetGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a synthetic dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind, _ := cmd.Flags().GetString("kind")
		n, _ := cmd.Flags().GetInt("n")
		seed, _ := cmd.Flags().GetUint64("seed")
		bbox, _ := cmd.Flags().GetFloat64Slice("bbox")
		centers, _ := cmd.Flags().GetStringSlice("center")
		perBlob, _ := cmd.Flags().GetInt("per-blob")
		sigma, _ := cmd.Flags().GetFloat64("sigma")

		if seed == 0 {
			seed = cfg.Analysis.Seed
		}

		var pts []model.Point
		var err error
		switch kind {
		case "uniform":
			if len(bbox) != 4 {
				return eris.New("uniform generation needs --bbox minLon,minLat,maxLon,maxLat")
			}
			pts, err = dataset.GenerateUniform(dataset.UniformOptions{
				N:    n,
				BBox: model.BBox{MinLon: bbox[0], MinLat: bbox[1], MaxLon: bbox[2], MaxLat: bbox[3]},
				Seed: seed,
			})
		case "blobs":
			var cpts []model.Point
			cpts, err = parseCenters(centers)
			if err != nil {
				return err
			}
			pts, err = dataset.GenerateBlobs(dataset.BlobOptions{
				Centers:  cpts,
				PerBlob:  perBlob,
				SigmaDeg: sigma,
				Seed:     seed,
			})
		default:
			return eris.Errorf("unknown generation kind %q (uniform or blobs)", kind)
		}
		if err != nil {
			return err
		}

		ds, err := dataset.New(args[0], model.FormatSynthetic, pts)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveDataset(ctx, ds); err != nil {
			return err
		}
		return printJSON(map[string]any{"id": ds.ID, "name": ds.Name, "points": len(ds.Points)})
	},
}

// parseCenters parses "lon,lat[,value]" center specs.
func parseCenters(specs []string) ([]model.Point, error) {
	var pts []model.Point
	for _, s := range specs {
		var lon, lat, val float64
		parts := strings.Split(s, ",")
		switch len(parts) {
		case 2:
			if _, err := fmt.Sscanf(s, "%f,%f", &lon, &lat); err != nil {
				return nil, eris.Errorf("bad center %q (want lon,lat)", s)
			}
		case 3:
			if _, err := fmt.Sscanf(s, "%f,%f,%f", &lon, &lat, &val); err != nil {
				return nil, eris.Errorf("bad center %q (want lon,lat,value)", s)
			}
		default:
			return nil, eris.Errorf("bad center %q (want lon,lat[,value])", s)
		}
		pts = append(pts, model.Point{Lon: lon, Lat: lat, Value: val})
	}
	return pts, nil
}

// -- dataset import --

var datasetImportCmd = &cobra.Command{
	Use:   "import <name> <path>",
	Short: "Import a dataset from a CSV, GeoJSON, or shapefile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name, path := args[0], args[1]

		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = guessFormat(path)
		}

		pts, dsFormat, err := importPoints(cmd, path, format)
		if err != nil {
			return err
		}

		ds, err := dataset.New(name, dsFormat, pts)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveDataset(ctx, ds); err != nil {
			return err
		}
		return printJSON(map[string]any{"id": ds.ID, "name": ds.Name, "points": len(ds.Points)})
	},
}

func guessFormat(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return "csv"
	case strings.HasSuffix(lower, ".geojson"), strings.HasSuffix(lower, ".json"):
		return "geojson"
	case strings.HasSuffix(lower, ".shp"):
		return "shapefile"
	}
	return ""
}

func importPoints(cmd *cobra.Command, path, format string) ([]model.Point, model.DatasetFormat, error) {
	idCol, _ := cmd.Flags().GetString("id-col")
	labelCol, _ := cmd.Flags().GetString("label-col")
	weightCol, _ := cmd.Flags().GetString("weight-col")
	valueCol, _ := cmd.Flags().GetString("value-col")

	switch format {
	case "csv":
		lonCol, _ := cmd.Flags().GetString("lon-col")
		latCol, _ := cmd.Flags().GetString("lat-col")
		pts, err := dataset.ImportCSV(path, dataset.CSVOptions{
			LonCol:    lonCol,
			LatCol:    latCol,
			IDCol:     idCol,
			LabelCol:  labelCol,
			WeightCol: weightCol,
			ValueCol:  valueCol,
		})
		return pts, model.FormatCSV, err
	case "geojson":
		pts, err := dataset.ImportGeoJSON(path)
		return pts, model.FormatGeoJSON, err
	case "shapefile":
		pts, err := dataset.ImportShapefile(path, dataset.ShapefileOptions{
			IDField:     idCol,
			LabelField:  labelCol,
			WeightField: weightCol,
			ValueField:  valueCol,
		})
		return pts, model.FormatShapefile, err
	default:
		return nil, "", eris.Errorf("unknown format %q (csv, geojson, or shapefile)", format)
	}
}

// -- dataset fetch --

var datasetFetchCmd = &cobra.Command{
	Use:   "fetch <name> <url>",
	Short: "Download a remote dataset and import it",
	Long:  "Downloads over HTTP or FTP, extracts ZIP archives, and imports the contained CSV, GeoJSON, or shapefile.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name, rawURL := args[0], args[1]

		format, _ := cmd.Flags().GetString("format")

		if err := os.MkdirAll(cfg.Fetch.TempDir, 0o755); err != nil {
			return eris.Wrap(err, "create temp dir")
		}

		wantExt := ""
		switch format {
		case "csv":
			wantExt = ".csv"
		case "geojson":
			wantExt = ".geojson"
		case "shapefile":
			wantExt = ".shp"
		}

		local, err := fetch.Retrieve(ctx, rawURL, cfg.Fetch.TempDir, wantExt)
		if err != nil {
			return err
		}

		if format == "" {
			format = guessFormat(local)
		}
		pts, dsFormat, err := importPoints(cmd, local, format)
		if err != nil {
			return err
		}

		ds, err := dataset.New(name, dsFormat, pts)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveDataset(ctx, ds); err != nil {
			return err
		}
		return printJSON(map[string]any{"id": ds.ID, "name": ds.Name, "points": len(ds.Points), "source": rawURL})
	},
}

// -- dataset list --

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		infos, err := st.ListDatasets(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fprintln("No datasets found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFORMAT\tPOINTS\tCREATED")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				info.Name, info.Format, info.Count, info.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

// -- dataset show --

var datasetShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a dataset's metadata",
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

		lon, lat, err := geodata.Centroid(ds.Points)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"id":         ds.ID,
			"name":       ds.Name,
			"format":     ds.Format,
			"count":      len(ds.Points),
			"bbox":       ds.BBox,
			"centroid":   map[string]float64{"lon": lon, "lat": lat},
			"created_at": ds.CreatedAt,
		})
	},
}

// -- dataset delete --

var datasetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteDataset(ctx, args[0]); err != nil {
			return err
		}
		fprintln("Deleted", args[0])
		return nil
	},
}

func init() {
	datasetGenerateCmd.Flags().String("kind", "uniform", "generation kind: uniform or blobs")
	datasetGenerateCmd.Flags().Int("n", 500, "point count (uniform)")
	datasetGenerateCmd.Flags().Uint64("seed", 0, "RNG seed (default from config)")
	datasetGenerateCmd.Flags().Float64Slice("bbox", nil, "bounding box: minLon,minLat,maxLon,maxLat")
	datasetGenerateCmd.Flags().StringSlice("center", nil, "blob center lon,lat[,value] (repeatable)")
	datasetGenerateCmd.Flags().Int("per-blob", 50, "points per blob")
	datasetGenerateCmd.Flags().Float64("sigma", 0.01, "blob spread in degrees")

	for _, c := range []*cobra.Command{datasetImportCmd, datasetFetchCmd} {
		c.Flags().String("format", "", "source format: csv, geojson, or shapefile (default from extension)")
		c.Flags().String("lon-col", "lon", "longitude column (csv)")
		c.Flags().String("lat-col", "lat", "latitude column (csv)")
		c.Flags().String("id-col", "", "id column or field")
		c.Flags().String("label-col", "", "label column or field")
		c.Flags().String("weight-col", "", "weight column or field")
		c.Flags().String("value-col", "", "value column or field")
	}

	datasetCmd.AddCommand(datasetGenerateCmd, datasetImportCmd, datasetFetchCmd,
		datasetListCmd, datasetShowCmd, datasetDeleteCmd)
	rootCmd.AddCommand(datasetCmd)
}
