package routing

import (
	"container/heap"
	"math"

	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/network"
)

// NearestNode finds the graph node closest to loc by planar L2 distance
// (spec §4.4 step 1).
func NearestNode(g *network.Graph, loc geo.Location) (network.NodeKey, bool) {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return network.NodeKey{}, false
	}
	best := nodes[0]
	bestDist := geo.PlanarDegreeDistance(loc, best.Location())
	for _, n := range nodes[1:] {
		d := geo.PlanarDegreeDistance(loc, n.Location())
		if d < bestDist {
			bestDist = d
			best = n
		}
	}
	return best, true
}

// Dijkstra computes the shortest path from -> to using each edge's dynamic
// Weight(); infinite-weight edges are skipped, which naturally excludes
// closed roads from every path. Returns the node path and the edges
// traversed, or ok=false if no path exists.
func Dijkstra(g *network.Graph, from, to network.NodeKey) ([]network.NodeKey, []*network.Edge, bool) {
	dist := map[network.NodeKey]float64{from: 0}
	prevEdge := map[network.NodeKey]*network.Edge{}
	visited := map[network.NodeKey]bool{}

	pq := &nodeHeap{{node: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(nodeDist)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == to {
			break
		}
		for _, e := range g.Neighbors(cur.node) {
			w := e.Weight()
			if math.IsInf(w, 1) {
				continue
			}
			nd := cur.dist + w
			if existing, ok := dist[e.To]; !ok || nd < existing {
				dist[e.To] = nd
				prevEdge[e.To] = e
				heap.Push(pq, nodeDist{node: e.To, dist: nd})
			}
		}
	}

	if _, ok := dist[to]; !ok {
		return nil, nil, false
	}
	if from == to {
		return []network.NodeKey{from}, nil, true
	}

	var path []network.NodeKey
	var edges []*network.Edge
	cur := to
	for cur != from {
		e := prevEdge[cur]
		if e == nil {
			return nil, nil, false
		}
		edges = append([]*network.Edge{e}, edges...)
		path = append([]network.NodeKey{cur}, path...)
		cur = e.From
	}
	path = append([]network.NodeKey{from}, path...)
	return path, edges, true
}

type nodeDist struct {
	node network.NodeKey
	dist float64
}

type nodeHeap []nodeDist

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(nodeDist)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
