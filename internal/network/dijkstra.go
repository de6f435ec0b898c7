package network

import (
	"container/heap"

	"github.com/rotisserie/eris"
)

// ShortestPaths computes Dijkstra travel times in seconds from source to
// every reachable node. Unreachable nodes are absent from the result.
func (g *Graph) ShortestPaths(source string) (map[string]float64, error) {
	if _, ok := g.Nodes[source]; !ok {
		return nil, eris.Errorf("network: unknown source node %q", source)
	}

	dist := make(map[string]float64, len(g.Nodes))
	pq := &nodeQueue{{id: source, cost: 0}}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(nodeItem)
		if _, seen := dist[item.id]; seen {
			continue
		}
		dist[item.id] = item.cost

		for _, e := range g.Adj[item.id] {
			if _, seen := dist[e.To]; !seen {
				heap.Push(pq, nodeItem{id: e.To, cost: item.cost + e.Seconds})
			}
		}
	}
	return dist, nil
}

type nodeItem struct {
	id   string
	cost float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)         { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
