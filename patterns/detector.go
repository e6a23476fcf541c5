// Package patterns finds structural problems in a topology: bottlenecks,
// capability holes, emerging shapes and degraded routes, and rolls them up
// into a health report.
package patterns

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/logger"
)

// Severity grades a finding. Holes use Critical and Moderate only.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium, SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Config holds detector thresholds.
type Config struct {
	BottleneckThreshold int `json:"bottleneck_threshold" validate:"gte=1"`
	HubThreshold        int `json:"hub_threshold" validate:"gte=1"`
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{BottleneckThreshold: 5, HubThreshold: 5}
}

// Detector runs pattern analysis. The zero value is not useful; use New.
type Detector struct {
	BottleneckThreshold int
	HubThreshold        int
	Logger              *slog.Logger
}

// New creates a Detector from cfg.
func New(cfg Config) *Detector {
	return &Detector{
		BottleneckThreshold: cfg.BottleneckThreshold,
		HubThreshold:        cfg.HubThreshold,
	}
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logger.Discard()
}

// Bottleneck is a node receiving far more work than it passes on.
type Bottleneck struct {
	NodeID        string   `json:"node_id"`
	NodeType      string   `json:"node_type"`
	InDegree      int      `json:"in_degree"`
	OutDegree     int      `json:"out_degree"`
	CapacityRatio float64  `json:"capacity_ratio"`
	Severity      Severity `json:"severity"`
}

// DetectBottlenecks flags nodes with in-degree at or above the threshold and
// more than twice their out-degree. Results are ordered critical-first.
func (d *Detector) DetectBottlenecks(g *topology.Graph) []Bottleneck {
	out := []Bottleneck{}
	for _, n := range g.Nodes() {
		in, outDeg := g.InDegree(n.ID), g.OutDegree(n.ID)
		if in < d.BottleneckThreshold || in <= 2*outDeg {
			continue
		}
		ratio := capacityRatio(in, n.Weight)
		out = append(out, Bottleneck{
			NodeID:        n.ID,
			NodeType:      n.NodeType,
			InDegree:      in,
			OutDegree:     outDeg,
			CapacityRatio: ratio,
			Severity:      bottleneckSeverity(ratio),
		})
	}
	slices.SortStableFunc(out, func(a, b Bottleneck) int {
		return b.Severity.rank() - a.Severity.rank()
	})
	d.logger().Debug("bottlenecks detected", "count", len(out))
	return out
}

func capacityRatio(in int, weight float64) float64 {
	if weight <= 0 {
		return 1
	}
	return min(max(float64(in)/(weight*10), 0), 1)
}

func bottleneckSeverity(ratio float64) Severity {
	switch {
	case ratio < 0.5:
		return SeverityLow
	case ratio < 0.75:
		return SeverityMedium
	case ratio < 0.9:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Hole is a required capability with too few providers.
type Hole struct {
	Capability  string   `json:"capability"`
	Severity    Severity `json:"severity"`
	Providers   []string `json:"providers"`
	Description string   `json:"description"`
}

// DetectHoles checks required capabilities against active nodes. A missing
// capability is critical; a single provider is a moderate single point of failure.
func (d *Detector) DetectHoles(g *topology.Graph, required []string) []Hole {
	providers := map[string][]string{}
	for _, n := range g.Nodes() {
		if !n.IsActive() {
			continue
		}
		for _, c := range n.Capabilities {
			if !slices.Contains(providers[c], n.ID) {
				providers[c] = append(providers[c], n.ID)
			}
		}
	}

	out := []Hole{}
	seen := map[string]bool{}
	for _, c := range required {
		if seen[c] {
			continue
		}
		seen[c] = true
		switch p := providers[c]; len(p) {
		case 0:
			out = append(out, Hole{
				Capability:  c,
				Severity:    SeverityCritical,
				Providers:   []string{},
				Description: fmt.Sprintf("no active node provides %q", c),
			})
		case 1:
			out = append(out, Hole{
				Capability:  c,
				Severity:    SeverityModerate,
				Providers:   slices.Clone(p),
				Description: fmt.Sprintf("%q is provided only by %s", c, p[0]),
			})
		}
	}
	d.logger().Debug("capability holes detected", "required", len(required), "holes", len(out))
	return out
}
