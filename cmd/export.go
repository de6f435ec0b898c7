package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openspatial/spatial-cli/internal/export"
	"github.com/openspatial/spatial-cli/internal/model"
	"github.com/openspatial/spatial-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export [dataset] <path>",
	Short: "Export a dataset or run result to CSV, XLSX, or GeoJSON",
	Long: "Writes a stored dataset, or with --run the result tables of a completed analysis run " +
		"(interpolation grids, cluster labels, hotspot classifications), to disk. " +
		"The output format follows the file extension: .csv, .xlsx, or .geojson (datasets only).",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runID, _ := cmd.Flags().GetString("run")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if runID != "" {
			if len(args) != 1 {
				return eris.New("with --run, pass only the output path")
			}
			return exportRun(ctx, st, runID, args[0])
		}

		if len(args) != 2 {
			return eris.New("pass <dataset> <path>, or --run <run-id> <path>")
		}
		return exportDataset(ctx, st, args[0], args[1])
	},
}

func exportDataset(ctx context.Context, st store.Store, name, path string) error {
	ds, err := st.GetDataset(ctx, name)
	if err != nil {
		return err
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		err = export.WriteCSV(path, datasetTable(ds))
	case strings.HasSuffix(lower, ".xlsx"):
		err = export.WriteXLSX(path, []export.Table{datasetTable(ds)})
	case strings.HasSuffix(lower, ".geojson"):
		err = export.WriteGeoJSON(path, ds.Points)
	default:
		return eris.Errorf("unknown export extension for %q (.csv, .xlsx, or .geojson)", path)
	}
	if err != nil {
		return err
	}

	fprintln("Wrote", path)
	return nil
}

func exportRun(ctx context.Context, st store.Store, runID, path string) error {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	tables, err := export.RunTables(run)
	if err != nil {
		return err
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		if len(tables) > 1 {
			return eris.Errorf("run %s has %d result tables; use .xlsx to keep them all", runID, len(tables))
		}
		err = export.WriteCSV(path, tables[0])
	case strings.HasSuffix(lower, ".xlsx"):
		err = export.WriteXLSX(path, tables)
	default:
		return eris.Errorf("unknown run export extension for %q (.csv or .xlsx)", path)
	}
	if err != nil {
		return err
	}

	fprintln("Wrote", path)
	return nil
}

func datasetTable(ds *model.Dataset) export.Table {
	t := export.Table{
		Name:   ds.Name,
		Header: []string{"id", "label", "lon", "lat", "weight", "value"},
	}
	for _, p := range ds.Points {
		t.Rows = append(t.Rows, []string{
			p.ID, p.Label,
			export.Cell(p.Lon), export.Cell(p.Lat),
			export.Cell(p.Weight), export.Cell(p.Value),
		})
	}
	return t
}

func init() {
	exportCmd.Flags().String("run", "", "export the result tables of this run ID instead of a dataset")
	rootCmd.AddCommand(exportCmd)
}
