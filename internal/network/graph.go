// Package network implements travel-time analysis over road networks:
// edge-list graph loading, Dijkstra shortest paths, and isochrone
// polygons.
package network

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Node is a network vertex with a geographic position.
type Node struct {
	ID  string
	Lon float64
	Lat float64
}

// Edge is a directed connection with a travel time.
type Edge struct {
	To      string
	Seconds float64
}

// Graph is a directed travel-time graph.
type Graph struct {
	Nodes map[string]Node
	Adj   map[string][]Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]Node),
		Adj:   make(map[string][]Edge),
	}
}

// AddNode registers a vertex, replacing any previous position.
func (g *Graph) AddNode(n Node) {
	g.Nodes[n.ID] = n
}

// AddEdge adds a directed edge. Both endpoints must already exist.
func (g *Graph) AddEdge(from, to string, seconds float64) error {
	if _, ok := g.Nodes[from]; !ok {
		return eris.Errorf("network: unknown node %q", from)
	}
	if _, ok := g.Nodes[to]; !ok {
		return eris.Errorf("network: unknown node %q", to)
	}
	if seconds < 0 {
		return eris.Errorf("network: negative travel time %g on %s->%s", seconds, from, to)
	}
	g.Adj[from] = append(g.Adj[from], Edge{To: to, Seconds: seconds})
	return nil
}

// LoadCSV builds a graph from two CSV files: nodes (id,lon,lat) and edges
// (from,to,seconds[,oneway]). Header rows are required. Unless an edge row
// sets oneway to "1" or "true", the reverse edge is added too, matching
// how road segments are usually digitized.
func LoadCSV(nodesPath, edgesPath string) (*Graph, error) {
	g := NewGraph()

	if err := readCSV(nodesPath, 3, func(rec []string) error {
		lon, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return eris.Wrapf(err, "network: node %q lon", rec[0])
		}
		lat, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return eris.Wrapf(err, "network: node %q lat", rec[0])
		}
		g.AddNode(Node{ID: rec[0], Lon: lon, Lat: lat})
		return nil
	}); err != nil {
		return nil, err
	}

	var edges int
	if err := readCSV(edgesPath, 3, func(rec []string) error {
		secs, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return eris.Wrapf(err, "network: edge %s->%s seconds", rec[0], rec[1])
		}
		if err := g.AddEdge(rec[0], rec[1], secs); err != nil {
			return err
		}
		edges++
		oneway := len(rec) > 3 && (rec[3] == "1" || rec[3] == "true")
		if !oneway {
			if err := g.AddEdge(rec[1], rec[0], secs); err != nil {
				return err
			}
			edges++
		}
		return nil
	}); err != nil {
		return nil, err
	}

	zap.L().Debug("network: graph loaded",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", edges),
	)
	return g, nil
}

func readCSV(path string, minFields int, fn func(rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "network: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrapf(err, "network: read %s", path)
		}
		if header {
			header = false
			continue
		}
		if len(rec) < minFields {
			return eris.Errorf("network: %s: expected at least %d fields, got %d", path, minFields, len(rec))
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
