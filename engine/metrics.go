package engine

import "github.com/meikuraledutech/topology"

// PathStats summarises shortest paths over every ordered pair of distinct,
// connected nodes.
type PathStats struct {
	Diameter          float64 `json:"diameter"`
	AveragePathLength float64 `json:"average_path_length"`
	ConnectedPairs    int     `json:"connected_pairs"`
}

// AllPairsStats runs Dijkstra from every node. See the package doc for cost.
func AllPairsStats(g *topology.Graph) PathStats {
	var (
		stats PathStats
		sum   float64
	)
	ids := g.NodeIDs()
	for _, src := range ids {
		dist, _ := dijkstra(g, src, "")
		// walk ids, not the map, so the float sum is order-stable
		for _, dst := range ids {
			d, ok := dist[dst]
			if !ok || dst == src {
				continue
			}
			stats.ConnectedPairs++
			sum += d
			if d > stats.Diameter {
				stats.Diameter = d
			}
		}
	}
	if stats.ConnectedPairs > 0 {
		stats.AveragePathLength = sum / float64(stats.ConnectedPairs)
	}
	return stats
}

// Diameter is the longest shortest path between any two connected nodes.
func Diameter(g *topology.Graph) float64 {
	return AllPairsStats(g).Diameter
}

// AveragePathLength is the mean shortest-path weight over connected pairs.
func AveragePathLength(g *topology.Graph) float64 {
	return AllPairsStats(g).AveragePathLength
}
