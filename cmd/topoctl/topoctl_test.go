package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/topology/auth"
	"github.com/meikuraledutech/topology/route"
	"github.com/meikuraledutech/topology/service"
)

const doc = `id: ops
nodes:
  - {id: a1, node_type: agent, capabilities: [compute]}
  - {id: a2, node_type: agent, capabilities: [compute]}
  - {id: r1, node_type: resource}
  - {id: t1, node_type: task}
edges:
  - {id: a1-r1, from: a1, to: r1, edge_type: can_execute}
  - {id: r1-t1, from: r1, to: t1, edge_type: can_execute}
  - {id: a2-t1, from: a2, to: t1, edge_type: can_execute, weight: 5}
`

type harness struct {
	t   *testing.T
	db  string
	dir string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	h := &harness{t: t, db: filepath.Join(dir, "topology.db"), dir: dir}
	file := filepath.Join(dir, "ops.yaml")
	require.NoError(t, os.WriteFile(file, []byte(doc), 0o644))
	out, err := h.run("import", file)
	require.NoError(t, err)
	require.Contains(t, out, "imported ops: 4 nodes, 3 edges")
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--sqlite-path", h.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestListAndExport(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `["ops"]`, out)

	out, err = h.run("list")
	require.NoError(t, err)
	assert.Contains(t, out, "ops")

	out, err = h.run("export", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "from: a2")

	file := filepath.Join(h.dir, "again.yaml")
	_, err = h.run("export", "ops", "-o", file)
	require.NoError(t, err)
	_, err = h.run("import", file, "--id", "copy")
	require.NoError(t, err)
	out, err = h.run("list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `["ops","copy"]`, out)
}

func TestAnalyzeAndPath(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("analyze", "ops", "--require", "compute,gpu")
	require.NoError(t, err)
	assert.Contains(t, out, "capability hole")
	assert.Contains(t, out, "gpu")

	out, err = h.run("path", "ops", "a1", "t1", "--json")
	require.NoError(t, err)
	var res service.PathResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"a1", "r1", "t1"}, res.Path.Nodes)

	_, err = h.run("path", "ops", "t1", "a1")
	assert.Error(t, err)

	_, err = h.run("analyze", "missing")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("plan", "ops", "--task", "t1", "--json")
	require.NoError(t, err)
	var plan route.ExecutionPlan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, []string{"a1", "r1", "t1"}, plan.Path.Nodes)
	require.Len(t, plan.Alternatives, 0)

	out, err = h.run("plan", "ops", "--type", "find_agent", "--capabilities", "compute")
	require.NoError(t, err)
	assert.Contains(t, out, "assign")

	_, err = h.run("plan", "ops", "--type", "connect_nodes", "--from", "a1")
	assert.ErrorIs(t, err, route.ErrInvalidGoal)
}

func TestClusters(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("clusters", "form", "ops", "--name", "crew", "--require", "compute", "--min", "2", "--types", "agent")
	require.NoError(t, err)
	assert.Contains(t, out, "coverage 100%")

	out, err = h.run("clusters", "list", "ops", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "crew"`)

	out, err = h.run("clusters", "discover", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "execution_team")

	_, err = h.run("clusters", "form", "ops", "--min", "0")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("token", "--subject", "bot")
	assert.ErrorIs(t, err, auth.ErrNoSecret)

	t.Setenv("TOPOLOGY_JWT_SECRET", "secret")
	out, err := h.run("token", "--subject", "bot", "--topology", "ops")
	require.NoError(t, err)

	p, err := auth.NewVerifier("secret").Verify(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "bot", p.Subject)
	assert.True(t, p.CanAccess("ops"))
}
