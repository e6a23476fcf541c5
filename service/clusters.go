package service

import (
	"context"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/cluster"
)

// ListClusters returns all clusters, or only active non-empty ones.
func (s *Service) ListClusters(ctx context.Context, topologyID string, activeOnly bool) ([]topology.ClusterInfo, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	if activeOnly {
		return t.ActiveClusters(), nil
	}
	return t.Clusters, nil
}

// DiscoverClusters suggests clusters from connected components.
func (s *Service) DiscoverClusters(ctx context.Context, topologyID string) ([]cluster.Suggestion, error) {
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	return s.clusters.Discover(t.Graph), nil
}

// mutateClusters runs fn under the topology lock and saves the cluster list
// when it succeeds.
func (s *Service) mutateClusters(ctx context.Context, topologyID string, fn func(t *topology.ProjectTopology) error) error {
	defer s.lock(topologyID)()
	t, err := s.load(ctx, topologyID)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	return s.store.SaveClusters(ctx, topologyID, t.Clusters)
}

// CreateCluster forms a cluster from the best matching nodes.
func (s *Service) CreateCluster(ctx context.Context, topologyID string, req cluster.Requirements, name string) (*cluster.FormationResult, error) {
	var res *cluster.FormationResult
	err := s.mutateClusters(ctx, topologyID, func(t *topology.ProjectTopology) error {
		var err error
		res, err = s.clusters.Form(t, req, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DissolveCluster deletes a cluster.
func (s *Service) DissolveCluster(ctx context.Context, topologyID, clusterID string) error {
	return s.mutateClusters(ctx, topologyID, func(t *topology.ProjectTopology) error {
		return s.clusters.Dissolve(t, clusterID)
	})
}

// MergeClusters replaces a and b with their union.
func (s *Service) MergeClusters(ctx context.Context, topologyID, a, b, name string) (*topology.ClusterInfo, error) {
	var merged *topology.ClusterInfo
	err := s.mutateClusters(ctx, topologyID, func(t *topology.ProjectTopology) error {
		var err error
		merged, err = s.clusters.Merge(t, a, b, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// SplitCluster moves members out of clusterID into a new cluster.
func (s *Service) SplitCluster(ctx context.Context, topologyID, clusterID string, members []string, name string) (kept, split *topology.ClusterInfo, err error) {
	err = s.mutateClusters(ctx, topologyID, func(t *topology.ProjectTopology) error {
		var err error
		kept, split, err = s.clusters.Split(t, clusterID, members, name)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return kept, split, nil
}

// AddClusterMember puts a node into a cluster.
func (s *Service) AddClusterMember(ctx context.Context, topologyID, clusterID, nodeID string) error {
	return s.mutateClusters(ctx, topologyID, func(t *topology.ProjectTopology) error {
		return s.clusters.AddMember(t, clusterID, nodeID)
	})
}

// RemoveClusterMember takes a node out of a cluster.
func (s *Service) RemoveClusterMember(ctx context.Context, topologyID, clusterID, nodeID string) error {
	return s.mutateClusters(ctx, topologyID, func(t *topology.ProjectTopology) error {
		return s.clusters.RemoveMember(t, clusterID, nodeID)
	})
}
