package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/openspatial/spatial-cli/internal/model"
)

// RunTables converts a completed run's result payload into tables, one per
// top-level array of the result object plus a summary sheet of its scalar
// fields. Interpolation grids come out as one row per cell, clustering
// results as label and centroid tables, and so on.
func RunTables(run *model.AnalysisRun) ([]Table, error) {
	if run.Status != model.RunStatusComplete {
		return nil, eris.Errorf("export: run %s is %s, not complete", run.ID, run.Status)
	}
	if len(run.Result) == 0 {
		return nil, eris.Errorf("export: run %s has no result", run.ID)
	}

	var result map[string]any
	if err := json.Unmarshal(run.Result, &result); err != nil {
		return nil, eris.Wrapf(err, "export: parse result of run %s", run.ID)
	}

	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tables []Table
	summary := Table{Name: "summary", Header: []string{"field", "value"}}
	for _, k := range keys {
		switch v := result[k].(type) {
		case []any:
			t, err := arrayTable(k, v)
			if err != nil {
				return nil, err
			}
			if t != nil {
				tables = append(tables, *t)
			}
		case map[string]any:
			// Nested objects (e.g. a bbox) flatten into the summary.
			nested := make([]string, 0, len(v))
			for nk := range v {
				nested = append(nested, nk)
			}
			sort.Strings(nested)
			for _, nk := range nested {
				summary.Rows = append(summary.Rows, []string{k + "." + nk, scalarCell(v[nk])})
			}
		default:
			summary.Rows = append(summary.Rows, []string{k, scalarCell(v)})
		}
	}
	if len(summary.Rows) > 0 {
		tables = append(tables, summary)
	}
	if len(tables) == 0 {
		return nil, eris.Errorf("export: run %s result has no tabular content", run.ID)
	}
	return tables, nil
}

// arrayTable renders a homogeneous JSON array as a table. Arrays of objects
// get one column per key; arrays of scalars get a single value column.
// Empty arrays produce no table.
func arrayTable(name string, items []any) (*Table, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if _, ok := items[0].(map[string]any); !ok {
		t := &Table{Name: name, Header: []string{"index", "value"}}
		for i, item := range items {
			t.Rows = append(t.Rows, []string{strconv.Itoa(i), scalarCell(item)})
		}
		return t, nil
	}

	colSet := map[string]bool{}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, eris.Errorf("export: mixed array %q", name)
		}
		for k := range obj {
			colSet[k] = true
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	t := &Table{Name: name, Header: cols}
	for _, item := range items {
		obj := item.(map[string]any)
		row := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := obj[c]; ok {
				row[i] = scalarCell(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func scalarCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return Cell(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		// Deeper nesting stays readable as compact JSON.
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(raw)
	}
}
