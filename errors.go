package topology

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound     = errors.New("topology: node not found")
	ErrEdgeNotFound     = errors.New("topology: edge not found")
	ErrTopologyNotFound = errors.New("topology: topology not found")
	ErrTopologyExists   = errors.New("topology: topology already exists")
	ErrDuplicateNode    = errors.New("topology: duplicate node id")
	ErrDuplicateEdge    = errors.New("topology: duplicate edge id")
	ErrInvalidWeight    = errors.New("topology: weight must be non-negative")
	ErrInvalidStatus    = errors.New("topology: invalid status")
	ErrCycleDetected    = errors.New("topology: edge would create a cycle")

	ErrCluster = errors.New("topology: cluster error")
	ErrRouting = errors.New("topology: routing error")
	ErrNoPath  = errors.New("topology: no path found")
)

// NodeNotFoundError names the node id that could not be resolved.
type NodeNotFoundError struct {
	ID string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("topology: node not found: %s", e.ID)
}

func (e *NodeNotFoundError) Unwrap() error { return ErrNodeNotFound }

// ClusterError covers unknown clusters, unsatisfiable formation requests and
// contradictory split/merge requests.
type ClusterError struct {
	Message string
}

func (e *ClusterError) Error() string {
	return "topology: cluster error: " + e.Message
}

func (e *ClusterError) Unwrap() error { return ErrCluster }

// RoutingError is returned when a goal cannot be planned at all, e.g. no agents.
type RoutingError struct {
	Message string
}

func (e *RoutingError) Error() string {
	return "topology: routing error: " + e.Message
}

func (e *RoutingError) Unwrap() error { return ErrRouting }

// NoPathError is the recoverable "nothing connects these" outcome.
type NoPathError struct {
	From string
	To   string
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("topology: no path found from %s to %s", e.From, e.To)
}

func (e *NoPathError) Unwrap() error { return ErrNoPath }

// Clusterf builds a ClusterError.
func Clusterf(format string, args ...any) error {
	return &ClusterError{Message: fmt.Sprintf(format, args...)}
}

// Routingf builds a RoutingError.
func Routingf(format string, args ...any) error {
	return &RoutingError{Message: fmt.Sprintf(format, args...)}
}
