package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/auth"
	"github.com/meikuraledutech/topology/cluster"
	"github.com/meikuraledutech/topology/route"
	"github.com/meikuraledutech/topology/service"
	"github.com/meikuraledutech/topology/snapshot"
)

type handler struct {
	svc *service.Service
	log *slog.Logger
}

// newApp builds the HTTP surface over svc.
func newApp(svc *service.Service, log *slog.Logger) *fiber.App {
	h := &handler{svc: svc, log: log}
	app := fiber.New()
	app.Use(recoverer.New())
	app.Use(h.accessLog)
	if svc.AuthEnabled() {
		app.Use("/topologies", h.bearer)
	}

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", h.createSchema)
	app.Delete("/schema", h.dropSchema)

	// ── Topologies ────────────────────────────────────────────────────
	app.Get("/topologies", h.listTopologies)
	app.Post("/topologies", h.createTopology)
	app.Get("/topologies/:id", h.getTopology)
	app.Put("/topologies/:id", h.importTopology)
	app.Delete("/topologies/:id", h.deleteTopology)

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Get("/topologies/:id/nodes", h.listNodes)
	app.Post("/topologies/:id/nodes", h.addNode)
	app.Delete("/topologies/:id/nodes/:node", h.removeNode)
	app.Put("/topologies/:id/nodes/:node/status", h.setNodeStatus)

	// ── Edges ─────────────────────────────────────────────────────────
	app.Get("/topologies/:id/edges", h.listEdges)
	app.Post("/topologies/:id/edges", h.addEdge)
	app.Delete("/topologies/:id/edges/:edge", h.removeEdge)
	app.Put("/topologies/:id/edges/:edge/status", h.setEdgeStatus)

	// ── Analysis ──────────────────────────────────────────────────────
	app.Get("/topologies/:id/path", h.findPath)
	app.Get("/topologies/:id/issues", h.detectIssues)
	app.Get("/topologies/:id/summary", h.summary)
	app.Get("/topologies/:id/order", h.order)

	// ── Clusters ──────────────────────────────────────────────────────
	app.Get("/topologies/:id/clusters", h.listClusters)
	app.Post("/topologies/:id/clusters", h.createCluster)
	app.Get("/topologies/:id/clusters/discover", h.discoverClusters)
	app.Post("/topologies/:id/clusters/merge", h.mergeClusters)
	app.Delete("/topologies/:id/clusters/:cluster", h.dissolveCluster)
	app.Post("/topologies/:id/clusters/:cluster/split", h.splitCluster)
	app.Post("/topologies/:id/clusters/:cluster/members", h.addMember)
	app.Delete("/topologies/:id/clusters/:cluster/members/:node", h.removeMember)

	// ── Routing ───────────────────────────────────────────────────────
	app.Post("/topologies/:id/plan", h.plan)
	app.Post("/topologies/:id/reroute", h.reroute)

	// ── Access ────────────────────────────────────────────────────────
	app.Post("/topologies/:id/verify-access", h.verifyAccess)

	return app
}

// ── Middleware ────────────────────────────────────────────────────────

func (h *handler) accessLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	h.log.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"took", time.Since(start),
	)
	return err
}

// bearer authenticates the caller. verify-access checks a token passed in
// the body, so it skips the header requirement.
func (h *handler) bearer(c fiber.Ctx) error {
	if strings.HasSuffix(c.Path(), "/verify-access") {
		return c.Next()
	}
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return fail(c, auth.ErrUnauthorized)
	}
	p, err := h.svc.Authenticate(token)
	if err != nil {
		return fail(c, err)
	}
	c.SetContext(auth.WithPrincipal(c.Context(), p))
	return c.Next()
}

// topologyID returns the :id param after checking the caller may use it.
func (h *handler) topologyID(c fiber.Ctx) (string, error) {
	id := c.Params("id")
	if err := service.Authorize(c.Context(), id); err != nil {
		return "", err
	}
	return id, nil
}

// ── Schema ────────────────────────────────────────────────────────────

func (h *handler) createSchema(c fiber.Ctx) error {
	if err := h.svc.Store().CreateSchema(c.Context()); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (h *handler) dropSchema(c fiber.Ctx) error {
	if err := h.svc.Store().DropSchema(c.Context()); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

// ── Topologies ────────────────────────────────────────────────────────

func (h *handler) listTopologies(c fiber.Ctx) error {
	ids, err := h.svc.ListTopologies(c.Context())
	if err != nil {
		return fail(c, err)
	}
	out := []string{}
	for _, id := range ids {
		if service.Authorize(c.Context(), id) == nil {
			out = append(out, id)
		}
	}
	return c.JSON(out)
}

func (h *handler) createTopology(c fiber.Ctx) error {
	var body struct {
		ID string `json:"id"`
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return badBody(c)
		}
	}
	if body.ID != "" {
		if err := service.Authorize(c.Context(), body.ID); err != nil {
			return fail(c, err)
		}
	}
	t, err := h.svc.CreateTopology(c.Context(), body.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *handler) getTopology(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	t, err := h.svc.GetTopology(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(t)
}

// importTopology replaces the topology with a snapshot document.
func (h *handler) importTopology(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var doc snapshot.Document
	if err := c.Bind().JSON(&doc); err != nil {
		return badBody(c)
	}
	doc.ID = id
	t, err := doc.Topology()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.svc.ImportTopology(c.Context(), t); err != nil {
		return fail(c, err)
	}
	return c.JSON(t)
}

func (h *handler) deleteTopology(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.svc.DeleteTopology(c.Context(), id); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Nodes ─────────────────────────────────────────────────────────────

func (h *handler) listNodes(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var f service.NodeFilter
	if err := c.Bind().Query(&f); err != nil {
		return badBody(c)
	}
	nodes, err := h.svc.ListNodes(c.Context(), id, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(nodes)
}

func (h *handler) addNode(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	node := topology.GraphNode{Weight: 1}
	if err := c.Bind().JSON(&node); err != nil {
		return badBody(c)
	}
	added, err := h.svc.AddNode(c.Context(), id, node)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(added)
}

func (h *handler) removeNode(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.svc.RemoveNode(c.Context(), id, c.Params("node")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *handler) setNodeStatus(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var body statusBody
	if err := c.Bind().JSON(&body); err != nil {
		return badBody(c)
	}
	n, err := h.svc.SetNodeStatus(c.Context(), id, c.Params("node"), topology.NodeStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(n)
}

// ── Edges ─────────────────────────────────────────────────────────────

func (h *handler) listEdges(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var f service.EdgeFilter
	if err := c.Bind().Query(&f); err != nil {
		return badBody(c)
	}
	edges, err := h.svc.ListEdges(c.Context(), id, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(edges)
}

func (h *handler) addEdge(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	edge := topology.GraphEdge{Weight: 1}
	if err := c.Bind().JSON(&edge); err != nil {
		return badBody(c)
	}
	added, err := h.svc.AddEdge(c.Context(), id, edge)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(added)
}

func (h *handler) removeEdge(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.svc.RemoveEdge(c.Context(), id, c.Params("edge")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) setEdgeStatus(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var body statusBody
	if err := c.Bind().JSON(&body); err != nil {
		return badBody(c)
	}
	e, err := h.svc.SetEdgeStatus(c.Context(), id, c.Params("edge"), topology.EdgeStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(e)
}

// ── Analysis ──────────────────────────────────────────────────────────

func (h *handler) findPath(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from and to are required"})
	}
	res, err := h.svc.FindPath(c.Context(), id, from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

// detectIssues takes required capabilities as ?require=a,b.
func (h *handler) detectIssues(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var required []string
	for _, capability := range strings.Split(c.Query("require"), ",") {
		if capability = strings.TrimSpace(capability); capability != "" {
			required = append(required, capability)
		}
	}
	report, err := h.svc.DetectIssues(c.Context(), id, required)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

func (h *handler) summary(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	sum, err := h.svc.GetTopologySummary(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sum)
}

func (h *handler) order(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	order, ok, err := h.svc.TopologicalOrder(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"acyclic": ok, "order": order})
}

// ── Clusters ──────────────────────────────────────────────────────────

func (h *handler) listClusters(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	clusters, err := h.svc.ListClusters(c.Context(), id, c.Query("active") == "true")
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(clusters)
}

func (h *handler) createCluster(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Name string `json:"name"`
		cluster.Requirements
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badBody(c)
	}
	res, err := h.svc.CreateCluster(c.Context(), id, body.Requirements, body.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *handler) discoverClusters(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	suggestions, err := h.svc.DiscoverClusters(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(suggestions)
}

func (h *handler) mergeClusters(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		A    string `json:"a"`
		B    string `json:"b"`
		Name string `json:"name"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badBody(c)
	}
	merged, err := h.svc.MergeClusters(c.Context(), id, body.A, body.B, body.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(merged)
}

func (h *handler) dissolveCluster(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.svc.DissolveCluster(c.Context(), id, c.Params("cluster")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) splitCluster(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Members []string `json:"members"`
		Name    string   `json:"name"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badBody(c)
	}
	kept, split, err := h.svc.SplitCluster(c.Context(), id, c.Params("cluster"), body.Members, body.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"kept": kept, "split": split})
}

func (h *handler) addMember(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		NodeID string `json:"node_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badBody(c)
	}
	if err := h.svc.AddClusterMember(c.Context(), id, c.Params("cluster"), body.NodeID); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) removeMember(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.svc.RemoveClusterMember(c.Context(), id, c.Params("cluster"), c.Params("node")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Routing ───────────────────────────────────────────────────────────

// plan accepts a goal document such as {"type":"execute_task","task_id":"t1"}.
func (h *handler) plan(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	goal, err := route.ParseGoal(c.Body())
	if err != nil {
		return fail(c, err)
	}
	plan, err := h.svc.PlanRoute(c.Context(), id, goal)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(plan)
}

func (h *handler) reroute(c fiber.Ctx) error {
	id, err := h.topologyID(c)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Plan         *route.ExecutionPlan `json:"plan"`
		FailedNodeID string               `json:"failed_node_id"`
	}
	if err := c.Bind().JSON(&body); err != nil || body.Plan == nil {
		return badBody(c)
	}
	plan, err := h.svc.Reroute(c.Context(), id, body.Plan, body.FailedNodeID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(plan)
}

// ── Access ────────────────────────────────────────────────────────────

func (h *handler) verifyAccess(c fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badBody(c)
	}
	res, err := h.svc.VerifyAccess(c.Context(), body.Token, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}
