// Package tools exposes the service operations as MCP tools so an LLM client
// can query and reshape topologies.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/meikuraledutech/topology/auth"
	"github.com/meikuraledutech/topology/cluster"
	"github.com/meikuraledutech/topology/service"
)

// TopologyParams identify the topology a call targets. Token is required
// when the server has a JWT secret.
type TopologyParams struct {
	TopologyID string `json:"topology_id"`
	Token      string `json:"token,omitempty"`
}

// Parameter structs are flat; the SDK derives each tool's input schema
// from them.

type ListNodesParams struct {
	TopologyID string `json:"topology_id"`
	Token      string `json:"token,omitempty"`
	NodeType   string `json:"node_type,omitempty"`
	Status     string `json:"status,omitempty"`
	Capability string `json:"capability,omitempty"`
}

type ListEdgesParams struct {
	TopologyID string `json:"topology_id"`
	Token      string `json:"token,omitempty"`
	EdgeType   string `json:"edge_type,omitempty"`
	Status     string `json:"status,omitempty"`
	NodeID     string `json:"node_id,omitempty"`
}

type FindPathParams struct {
	TopologyID string `json:"topology_id"`
	Token      string `json:"token,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type DetectIssuesParams struct {
	TopologyID           string   `json:"topology_id"`
	Token                string   `json:"token,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
}

type CreateClusterParams struct {
	TopologyID           string   `json:"topology_id"`
	Token                string   `json:"token,omitempty"`
	Name                 string   `json:"name"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	MinNodes             int      `json:"min_nodes"`
	MaxNodes             int      `json:"max_nodes,omitempty"`
	NodeTypes            []string `json:"node_types,omitempty"`
	Purpose              string   `json:"purpose,omitempty"`
}

type VerifyAccessParams struct {
	TopologyID string `json:"topology_id"`
	Token      string `json:"token"`
}

// NewServer returns an MCP server with every topology tool registered.
func NewServer(svc *service.Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "topology-mcp", Version: version}, &mcp.ServerOptions{})
	Register(server, svc)
	return server
}

// Register adds every topology tool to server.
func Register(server *mcp.Server, svc *service.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_nodes",
		Description: "List nodes of a topology. Optional filters: node_type, status, capability.",
	}, listNodesHandler(svc))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_edges",
		Description: "List edges of a topology. Optional filters: edge_type, status, node_id (either endpoint).",
	}, listEdgesHandler(svc))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_path",
		Description: "Cheapest route between two nodes over active nodes and edges, with alternatives.",
	}, findPathHandler(svc))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_issues",
		Description: "Find bottlenecks, single points of failure, orphans, dead ends, hubs, degraded paths and capability holes, with a health score.",
	}, detectIssuesHandler(svc))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_topology_summary",
		Description: "Node and edge counts by type and status, component count, acyclicity and health score.",
	}, summaryHandler(svc))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_cluster",
		Description: "Form a cluster from the best active nodes for required_capabilities, min_nodes, max_nodes and node_types.",
	}, createClusterHandler(svc))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "verify_access",
		Description: "Check whether a bearer token grants access to a topology.",
	}, verifyAccessHandler(svc))
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) (*mcp.CallToolResultFor[any], error) {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: "error: " + err.Error()}},
		IsError: true,
	}, nil
}

// authorize checks p against the service's verifier when auth is on.
func authorize(ctx context.Context, svc *service.Service, p TopologyParams) (context.Context, error) {
	if p.TopologyID == "" {
		return ctx, fmt.Errorf("topology_id is required")
	}
	if !svc.AuthEnabled() {
		return ctx, nil
	}
	principal, err := svc.Authenticate(p.Token)
	if err != nil {
		return ctx, err
	}
	ctx = auth.WithPrincipal(ctx, principal)
	return ctx, service.Authorize(ctx, p.TopologyID)
}

func listNodesHandler(svc *service.Service) mcp.ToolHandlerFor[ListNodesParams, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListNodesParams]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		ctx, err := authorize(ctx, svc, TopologyParams{TopologyID: args.TopologyID, Token: args.Token})
		if err != nil {
			return errorResult(err)
		}
		nodes, err := svc.ListNodes(ctx, args.TopologyID, service.NodeFilter{
			Type:       args.NodeType,
			Status:     args.Status,
			Capability: args.Capability,
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(nodes)
	}
}

func listEdgesHandler(svc *service.Service) mcp.ToolHandlerFor[ListEdgesParams, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListEdgesParams]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		ctx, err := authorize(ctx, svc, TopologyParams{TopologyID: args.TopologyID, Token: args.Token})
		if err != nil {
			return errorResult(err)
		}
		edges, err := svc.ListEdges(ctx, args.TopologyID, service.EdgeFilter{
			Type:   args.EdgeType,
			Status: args.Status,
			NodeID: args.NodeID,
		})
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(edges)
	}
}

func findPathHandler(svc *service.Service) mcp.ToolHandlerFor[FindPathParams, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[FindPathParams]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		ctx, err := authorize(ctx, svc, TopologyParams{TopologyID: args.TopologyID, Token: args.Token})
		if err != nil {
			return errorResult(err)
		}
		if args.From == "" || args.To == "" {
			return errorResult(fmt.Errorf("from and to are required"))
		}
		res, err := svc.FindPath(ctx, args.TopologyID, args.From, args.To)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(res)
	}
}

func detectIssuesHandler(svc *service.Service) mcp.ToolHandlerFor[DetectIssuesParams, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[DetectIssuesParams]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		ctx, err := authorize(ctx, svc, TopologyParams{TopologyID: args.TopologyID, Token: args.Token})
		if err != nil {
			return errorResult(err)
		}
		report, err := svc.DetectIssues(ctx, args.TopologyID, args.RequiredCapabilities)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(report)
	}
}

func summaryHandler(svc *service.Service) mcp.ToolHandlerFor[TopologyParams, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[TopologyParams]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		ctx, err := authorize(ctx, svc, args)
		if err != nil {
			return errorResult(err)
		}
		sum, err := svc.GetTopologySummary(ctx, args.TopologyID)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(sum)
	}
}

func createClusterHandler(svc *service.Service) mcp.ToolHandlerFor[CreateClusterParams, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[CreateClusterParams]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		ctx, err := authorize(ctx, svc, TopologyParams{TopologyID: args.TopologyID, Token: args.Token})
		if err != nil {
			return errorResult(err)
		}
		res, err := svc.CreateCluster(ctx, args.TopologyID, cluster.Requirements{
			Capabilities: args.RequiredCapabilities,
			MinNodes:     args.MinNodes,
			MaxNodes:     args.MaxNodes,
			NodeTypes:    args.NodeTypes,
			Purpose:      args.Purpose,
		}, args.Name)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(res)
	}
}

func verifyAccessHandler(svc *service.Service) mcp.ToolHandlerFor[VerifyAccessParams, any] {
	return func(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[VerifyAccessParams]) (*mcp.CallToolResultFor[any], error) {
		args := params.Arguments
		res, err := svc.VerifyAccess(ctx, args.Token, args.TopologyID)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(res)
	}
}
