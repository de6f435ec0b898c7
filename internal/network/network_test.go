package network

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamond builds:
//
//	a --60--> b --60--> d
//	a --100------------> c --10--> d
//
// plus an isolated node x.
func diamond(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	g.AddNode(Node{ID: "a", Lon: 0, Lat: 50})
	g.AddNode(Node{ID: "b", Lon: 0.1, Lat: 50.05})
	g.AddNode(Node{ID: "c", Lon: 0.1, Lat: 49.95})
	g.AddNode(Node{ID: "d", Lon: 0.2, Lat: 50})
	g.AddNode(Node{ID: "x", Lon: 5, Lat: 55})

	require.NoError(t, g.AddEdge("a", "b", 60))
	require.NoError(t, g.AddEdge("b", "d", 60))
	require.NoError(t, g.AddEdge("a", "c", 100))
	require.NoError(t, g.AddEdge("c", "d", 10))
	return g
}

func TestShortestPaths(t *testing.T) {
	g := diamond(t)

	dist, err := g.ShortestPaths("a")
	require.NoError(t, err)

	assert.Equal(t, 0.0, dist["a"])
	assert.Equal(t, 60.0, dist["b"])
	assert.Equal(t, 100.0, dist["c"])
	// d via c: 100+10 beats 60+60.
	assert.Equal(t, 110.0, dist["d"])

	// Isolated node unreachable.
	_, ok := dist["x"]
	assert.False(t, ok)
}

func TestShortestPathsUnknownSource(t *testing.T) {
	g := diamond(t)
	_, err := g.ShortestPaths("nope")
	assert.Error(t, err)
}

func TestAddEdgeValidation(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: "a"})

	assert.Error(t, g.AddEdge("a", "missing", 1))
	assert.Error(t, g.AddEdge("missing", "a", 1))

	g.AddNode(Node{ID: "b"})
	assert.Error(t, g.AddEdge("a", "b", -5))
}

func TestIsochrones(t *testing.T) {
	g := diamond(t)

	bands, err := g.Isochrones("a", []float64{120, 105})
	require.NoError(t, err)
	require.Len(t, bands, 2)

	// Bands come back sorted ascending.
	assert.Equal(t, 105.0, bands[0].CutoffSeconds)
	assert.Equal(t, 3, bands[0].Nodes) // a, b, c within 105s
	assert.Equal(t, 120.0, bands[1].CutoffSeconds)
	assert.Equal(t, 4, bands[1].Nodes)
	assert.NotNil(t, bands[1].Polygon)
}

func TestIsochronesValidation(t *testing.T) {
	g := diamond(t)

	_, err := g.Isochrones("a", nil)
	assert.Error(t, err)

	_, err = g.Isochrones("a", []float64{-1})
	assert.Error(t, err)

	// Cutoff that reaches only the source has no polygon.
	_, err = g.Isochrones("a", []float64{1})
	assert.Error(t, err)
}

func TestBandsGeoJSON(t *testing.T) {
	g := diamond(t)
	bands, err := g.Isochrones("a", []float64{120})
	require.NoError(t, err)

	data, err := BandsGeoJSON(bands)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, 120.0, fc.Features[0].Properties["cutoff_seconds"])
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	nodes := filepath.Join(dir, "nodes.csv")
	edges := filepath.Join(dir, "edges.csv")

	require.NoError(t, os.WriteFile(nodes, []byte(
		"id,lon,lat\na,0,50\nb,0.1,50\nc,0.2,50\n"), 0o644))
	require.NoError(t, os.WriteFile(edges, []byte(
		"from,to,seconds,oneway\na,b,30,\nb,c,45,1\n"), 0o644))

	g, err := LoadCSV(nodes, edges)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)

	dist, err := g.ShortestPaths("a")
	require.NoError(t, err)
	assert.Equal(t, 30.0, dist["b"])
	assert.Equal(t, 75.0, dist["c"])

	// b->c is one way: from c only c itself is reachable.
	back, err := g.ShortestPaths("c")
	require.NoError(t, err)
	assert.Len(t, back, 1)
}

func TestLoadCSVErrors(t *testing.T) {
	dir := t.TempDir()
	nodes := filepath.Join(dir, "nodes.csv")
	edges := filepath.Join(dir, "edges.csv")

	_, err := LoadCSV(filepath.Join(dir, "absent.csv"), edges)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(nodes, []byte("id,lon,lat\na,zero,50\n"), 0o644))
	require.NoError(t, os.WriteFile(edges, []byte("from,to,seconds\n"), 0o644))
	_, err = LoadCSV(nodes, edges)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(nodes, []byte("id,lon,lat\na,0,50\nb,0.1,50\n"), 0o644))
	require.NoError(t, os.WriteFile(edges, []byte("from,to,seconds\na,ghost,10\n"), 0o644))
	_, err = LoadCSV(nodes, edges)
	assert.Error(t, err)
}
