package patterns

import (
	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/engine"
)

// Penalties subtracted from a perfect score of 1.0.
var (
	bottleneckPenalty = map[Severity]float64{
		SeverityCritical: 0.20,
		SeverityHigh:     0.10,
		SeverityMedium:   0.05,
		SeverityLow:      0.02,
	}
	holePenalty = map[Severity]float64{
		SeverityCritical: 0.20,
		SeverityHigh:     0.10,
		SeverityModerate: 0.05,
		SeverityMedium:   0.05,
		SeverityLow:      0.02,
	}
)

const (
	cyclePenalty     = 0.15
	orphanPenalty    = 0.05
	deadEndPenalty   = 0.03
	componentPenalty = 0.10
)

// Report aggregates every finding for one topology snapshot.
type Report struct {
	Bottlenecks       []Bottleneck   `json:"bottlenecks"`
	Holes             []Hole         `json:"holes"`
	Patterns          []Pattern      `json:"patterns"`
	DegradedPaths     []DegradedPath `json:"degraded_paths"`
	Orphans           []string       `json:"orphans"`
	DeadEnds          []string       `json:"dead_ends"`
	Cycles            [][]string     `json:"cycles"`
	ComponentCount    int            `json:"component_count"`
	Diameter          float64        `json:"diameter"`
	AveragePathLength float64        `json:"average_path_length"`
	HealthScore       float64        `json:"health_score"`
}

// IsHealthy is true when nothing critical, cyclic or orphaned was found.
func (r *Report) IsHealthy() bool {
	for _, b := range r.Bottlenecks {
		if b.Severity == SeverityCritical {
			return false
		}
	}
	for _, h := range r.Holes {
		if h.Severity == SeverityCritical {
			return false
		}
	}
	return len(r.Cycles) == 0 && len(r.Orphans) == 0
}

// Analyze runs every detector and the engine's structural checks.
func (d *Detector) Analyze(g *topology.Graph, required []string) *Report {
	stats := engine.AllPairsStats(g)
	r := &Report{
		Bottlenecks:       d.DetectBottlenecks(g),
		Holes:             d.DetectHoles(g, required),
		Patterns:          d.DetectPatterns(g),
		DegradedPaths:     d.DetectDegradedPaths(g),
		Orphans:           engine.Orphans(g),
		DeadEnds:          engine.DeadEnds(g),
		Cycles:            engine.FindCycles(g),
		ComponentCount:    len(engine.ConnectedComponents(g)),
		Diameter:          stats.Diameter,
		AveragePathLength: stats.AveragePathLength,
	}
	if r.Cycles == nil {
		r.Cycles = [][]string{}
	}
	r.HealthScore = healthScore(r)
	d.logger().Info("topology analysed",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"health", r.HealthScore,
		"healthy", r.IsHealthy(),
	)
	return r
}

func healthScore(r *Report) float64 {
	score := 1.0
	for _, b := range r.Bottlenecks {
		score -= bottleneckPenalty[b.Severity]
	}
	for _, h := range r.Holes {
		score -= holePenalty[h.Severity]
	}
	score -= cyclePenalty * float64(len(r.Cycles))
	score -= orphanPenalty * float64(len(r.Orphans))
	score -= deadEndPenalty * float64(len(r.DeadEnds))
	if r.ComponentCount > 1 {
		score -= componentPenalty * float64(r.ComponentCount-1)
	}
	return max(score, 0)
}
