// Package engine implements pathfinding and structural analysis over a
// topology.Graph.
//
// Every function takes a read-only graph and has no side effects, so callers
// may run them concurrently over independent clones of a snapshot.
//
// Traversal rules shared by the path functions: an edge is followed when its
// status is active (degraded edges included) and its destination node is
// active. Structural functions (components, orphans, dead ends) look at every
// edge regardless of status.
//
// Diameter and AveragePathLength run Dijkstra from every node, which is
// O(V·(V+E)·log V). That is fine for the tens to low hundreds of nodes an
// organisation's agents and tasks produce; it is not meant for web-scale graphs.
package engine
