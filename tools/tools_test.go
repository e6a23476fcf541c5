package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/auth"
	"github.com/meikuraledutech/topology/cluster"
	"github.com/meikuraledutech/topology/patterns"
	"github.com/meikuraledutech/topology/service"
	"github.com/meikuraledutech/topology/sqlite"
)

func newService(t *testing.T, opts service.Options) *service.Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "topology.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	require.NoError(t, store.CreateSchema(ctx))

	svc := service.New(store, opts)
	_, err = svc.CreateTopology(ctx, "ops")
	require.NoError(t, err)
	for _, n := range []topology.GraphNode{
		topology.NewNode("a1", topology.TypeAgent, "agent-1", "compute"),
		topology.NewNode("t1", topology.TypeTask, "task-1"),
	} {
		_, err := svc.AddNode(ctx, "ops", n)
		require.NoError(t, err)
	}
	_, err = svc.AddEdge(ctx, "ops", topology.NewEdge("e1", "a1", "t1", topology.EdgeCanExecute))
	require.NoError(t, err)
	return svc
}

func call[T any](t *testing.T, h mcp.ToolHandlerFor[T, any], args T) (string, bool) {
	t.Helper()
	res, err := h(context.Background(), nil, &mcp.CallToolParamsFor[T]{Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestListTools(t *testing.T) {
	svc := newService(t, service.DefaultOptions())

	out, isErr := call(t, listNodesHandler(svc), ListNodesParams{TopologyID: "ops", NodeType: topology.TypeAgent})
	require.False(t, isErr, out)
	var nodes []topology.GraphNode
	require.NoError(t, json.Unmarshal([]byte(out), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "a1", nodes[0].ID)

	out, isErr = call(t, listEdgesHandler(svc), ListEdgesParams{TopologyID: "ops", NodeID: "t1"})
	require.False(t, isErr, out)
	var edges []topology.GraphEdge
	require.NoError(t, json.Unmarshal([]byte(out), &edges))
	assert.Len(t, edges, 1)

	out, isErr = call(t, listNodesHandler(svc), ListNodesParams{TopologyID: "missing"})
	assert.True(t, isErr)
	assert.Contains(t, out, "not found")

	_, isErr = call(t, listNodesHandler(svc), ListNodesParams{})
	assert.True(t, isErr)
}

func TestAnalysisTools(t *testing.T) {
	svc := newService(t, service.DefaultOptions())

	out, isErr := call(t, findPathHandler(svc), FindPathParams{TopologyID: "ops", From: "a1", To: "t1"})
	require.False(t, isErr, out)
	var path service.PathResult
	require.NoError(t, json.Unmarshal([]byte(out), &path))
	assert.Equal(t, []string{"a1", "t1"}, path.Path.Nodes)

	out, isErr = call(t, findPathHandler(svc), FindPathParams{TopologyID: "ops", From: "t1", To: "a1"})
	assert.True(t, isErr)
	assert.Contains(t, out, "no path")

	out, isErr = call(t, detectIssuesHandler(svc), DetectIssuesParams{TopologyID: "ops", RequiredCapabilities: []string{"gpu"}})
	require.False(t, isErr, out)
	var report patterns.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Holes, 1)
	assert.Equal(t, "gpu", report.Holes[0].Capability)

	out, isErr = call(t, summaryHandler(svc), TopologyParams{TopologyID: "ops"})
	require.False(t, isErr, out)
	assert.Contains(t, out, `"node_count": 2`)
}

func TestCreateClusterTool(t *testing.T) {
	svc := newService(t, service.DefaultOptions())

	out, isErr := call(t, createClusterHandler(svc), CreateClusterParams{
		TopologyID:           "ops",
		Name:                 "crew",
		RequiredCapabilities: []string{"compute"},
		MinNodes:             1,
	})
	require.False(t, isErr, out)
	var res cluster.FormationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"a1"}, res.Cluster.Members)
	assert.Equal(t, 1.0, res.Coverage)

	_, isErr = call(t, createClusterHandler(svc), CreateClusterParams{TopologyID: "ops", MinNodes: 5})
	assert.True(t, isErr)
}

func TestToolsRequireTokenWhenAuthIsOn(t *testing.T) {
	opts := service.DefaultOptions()
	opts.Verifier = auth.NewVerifier("secret")
	svc := newService(t, opts)
	token, err := auth.Issue("secret", auth.Principal{Subject: "bot", Topologies: []string{"ops"}}, time.Hour)
	require.NoError(t, err)

	out, isErr := call(t, summaryHandler(svc), TopologyParams{TopologyID: "ops"})
	assert.True(t, isErr)
	assert.Contains(t, out, "invalid credentials")

	_, isErr = call(t, summaryHandler(svc), TopologyParams{TopologyID: "ops", Token: token})
	assert.False(t, isErr)

	out, isErr = call(t, verifyAccessHandler(svc), VerifyAccessParams{TopologyID: "other", Token: token})
	require.False(t, isErr, out)
	var access service.AccessResult
	require.NoError(t, json.Unmarshal([]byte(out), &access))
	assert.False(t, access.Allowed)
	assert.Equal(t, "bot", access.Subject)
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(newService(t, service.DefaultOptions()), "test"))
}
