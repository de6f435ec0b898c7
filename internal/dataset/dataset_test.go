package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspatial/spatial-cli/internal/model"
)

func TestNew(t *testing.T) {
	pts := []model.Point{
		{ID: "a", Lon: -0.1, Lat: 51.5},
		{ID: "b", Lon: 0.2, Lat: 51.7},
	}

	ds, err := New("london", model.FormatSynthetic, pts)
	require.NoError(t, err)
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, "london", ds.Name)
	assert.Len(t, ds.Points, 2)
	assert.InDelta(t, -0.1, ds.BBox.MinLon, 1e-12)
	assert.InDelta(t, 51.7, ds.BBox.MaxLat, 1e-12)
	assert.False(t, ds.CreatedAt.IsZero())

	_, err = New("", model.FormatSynthetic, pts)
	assert.Error(t, err)

	_, err = New("empty", model.FormatSynthetic, nil)
	assert.Error(t, err)
}

func TestGenerateUniform(t *testing.T) {
	bbox := model.BBox{MinLon: -1, MinLat: 50, MaxLon: 1, MaxLat: 52}

	pts, err := GenerateUniform(UniformOptions{N: 200, BBox: bbox, Seed: 7})
	require.NoError(t, err)
	require.Len(t, pts, 200)
	for _, p := range pts {
		assert.True(t, bbox.Contains(p.Lon, p.Lat), "point %s outside bbox", p.ID)
		assert.GreaterOrEqual(t, p.Value, 0.0)
		assert.Less(t, p.Value, 100.0)
		assert.Equal(t, 1.0, p.Weight)
	}

	// Same seed reproduces the same scatter.
	again, err := GenerateUniform(UniformOptions{N: 200, BBox: bbox, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, pts, again)

	_, err = GenerateUniform(UniformOptions{N: 0, BBox: bbox})
	assert.Error(t, err)

	_, err = GenerateUniform(UniformOptions{N: 10, BBox: model.BBox{MinLon: 1, MaxLon: 1, MinLat: 0, MaxLat: 1}})
	assert.Error(t, err)
}

func TestGenerateBlobs(t *testing.T) {
	centers := []model.Point{
		{Lon: 0, Lat: 50, Value: 10},
		{Lon: 0.5, Lat: 50, Value: 90},
	}

	pts, err := GenerateBlobs(BlobOptions{Centers: centers, PerBlob: 30, SigmaDeg: 0.005, Seed: 3})
	require.NoError(t, err)
	require.Len(t, pts, 60)

	labels := map[string]int{}
	for _, p := range pts {
		labels[p.Label]++
	}
	assert.Equal(t, 30, labels["blob-0"])
	assert.Equal(t, 30, labels["blob-1"])

	// Points stay near their center at small sigma.
	for _, p := range pts[:30] {
		assert.InDelta(t, 0, p.Lon, 0.05)
		assert.InDelta(t, 50, p.Lat, 0.05)
	}

	_, err = GenerateBlobs(BlobOptions{})
	assert.Error(t, err)
}

func TestImportCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pts.csv")
	data := "id,name,lon,lat,pop,rate\n" +
		"a,Alpha,-0.1,51.5,120,3.5\n" +
		"b,Beta,0.2,51.7,80,1.25\n" +
		"c,Gamma,not-a-number,51.6,10,0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	pts, err := ImportCSV(path, CSVOptions{
		IDCol:     "id",
		LabelCol:  "name",
		WeightCol: "pop",
		ValueCol:  "rate",
	})
	require.NoError(t, err)
	require.Len(t, pts, 2, "row with bad coordinates is skipped")

	assert.Equal(t, "a", pts[0].ID)
	assert.Equal(t, "Alpha", pts[0].Label)
	assert.InDelta(t, -0.1, pts[0].Lon, 1e-12)
	assert.InDelta(t, 51.5, pts[0].Lat, 1e-12)
	assert.Equal(t, 120.0, pts[0].Weight)
	assert.Equal(t, 3.5, pts[0].Value)

	assert.Equal(t, "b", pts[1].ID)
	assert.Equal(t, 1.25, pts[1].Value)
}

func TestImportCSVDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.csv")
	data := "lon,lat\n1.5,49.5\n1.6,49.6\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	pts, err := ImportCSV(path, CSVOptions{})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "1", pts[0].ID)
	assert.Equal(t, "2", pts[1].ID)
	assert.Equal(t, 1.0, pts[0].Weight)
}

func TestImportCSVErrors(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "nolon.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,lat\n1,2\n"), 0o644))
	_, err := ImportCSV(path, CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")

	path = filepath.Join(dir, "allbad.csv")
	require.NoError(t, os.WriteFile(path, []byte("lon,lat\nx,y\n"), 0o644))
	_, err = ImportCSV(path, CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable rows")

	_, err = ImportCSV(filepath.Join(dir, "missing.csv"), CSVOptions{})
	assert.Error(t, err)
}

func TestImportGeoJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pts.geojson")
	data := `{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "type": "Feature",
	      "id": "f1",
	      "geometry": {"type": "Point", "coordinates": [-0.1, 51.5]},
	      "properties": {"name": "Alpha", "weight": 12, "value": 3.5, "density": 0.8}
	    },
	    {
	      "type": "Feature",
	      "geometry": {"type": "Point", "coordinates": [0.2, 51.7]},
	      "properties": {"label": "Beta"}
	    },
	    {
	      "type": "Feature",
	      "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]},
	      "properties": {}
	    }
	  ]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	pts, err := ImportGeoJSON(path)
	require.NoError(t, err)
	require.Len(t, pts, 2, "non-point feature is skipped")

	assert.Equal(t, "f1", pts[0].ID)
	assert.Equal(t, "Alpha", pts[0].Label)
	assert.Equal(t, 12.0, pts[0].Weight)
	assert.Equal(t, 3.5, pts[0].Value)
	assert.Equal(t, 0.8, pts[0].Attrs["density"])

	assert.Equal(t, "2", pts[1].ID, "missing feature id falls back to position")
	assert.Equal(t, "Beta", pts[1].Label)
	assert.Equal(t, 1.0, pts[1].Weight)
}

func TestImportGeoJSONErrors(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	_, err := ImportGeoJSON(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "lines.geojson")
	data := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	_, err = ImportGeoJSON(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no point features")
}

func writeTestShapefile(t *testing.T, path string) {
	t.Helper()

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	w.SetFields([]shp.Field{
		shp.StringField("ID", 10),
		shp.StringField("NAME", 25),
		shp.FloatField("POP", 13, 2),
		shp.FloatField("RATE", 13, 4),
	})

	rows := []struct {
		pt   shp.Point
		id   string
		name string
		pop  float64
		rate float64
	}{
		{shp.Point{X: -80.19, Y: 25.77}, "s1", "Miami", 440000, 2.5},
		{shp.Point{X: -80.14, Y: 25.90}, "s2", "North Beach", 41000, 1.75},
	}
	for i, r := range rows {
		w.Write(&r.pt)
		require.NoError(t, w.WriteAttribute(i, 0, r.id))
		require.NoError(t, w.WriteAttribute(i, 1, r.name))
		require.NoError(t, w.WriteAttribute(i, 2, r.pop))
		require.NoError(t, w.WriteAttribute(i, 3, r.rate))
	}
}

func TestImportShapefile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "places.shp")
	writeTestShapefile(t, path)

	pts, err := ImportShapefile(path, ShapefileOptions{
		IDField:     "ID",
		LabelField:  "NAME",
		WeightField: "POP",
		ValueField:  "RATE",
	})
	require.NoError(t, err)
	require.Len(t, pts, 2)

	assert.Equal(t, "s1", pts[0].ID)
	assert.Equal(t, "Miami", pts[0].Label)
	assert.InDelta(t, -80.19, pts[0].Lon, 1e-9)
	assert.InDelta(t, 25.77, pts[0].Lat, 1e-9)
	assert.InDelta(t, 440000, pts[0].Weight, 1)
	assert.InDelta(t, 2.5, pts[0].Value, 1e-3)

	assert.Equal(t, "North Beach", pts[1].Label)
}

func TestImportShapefileDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "places.shp")
	writeTestShapefile(t, path)

	pts, err := ImportShapefile(path, ShapefileOptions{})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "1", pts[0].ID, "missing id field falls back to record number")
	assert.Equal(t, "Miami", pts[0].Label, "label defaults to the name field")
	assert.Equal(t, 1.0, pts[0].Weight)
}

func TestImportShapefileMissing(t *testing.T) {
	_, err := ImportShapefile(filepath.Join(t.TempDir(), "nope.shp"), ShapefileOptions{})
	assert.Error(t, err)
}
