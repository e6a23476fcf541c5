// Package service is the operation surface shared by the HTTP server, the MCP
// tools and the CLI. Each call loads a topology snapshot from the Store, runs
// one engine operation and writes any change back. Writers on the same
// topology are serialised; the engine itself is single-writer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/auth"
	"github.com/meikuraledutech/topology/cluster"
	"github.com/meikuraledutech/topology/config"
	"github.com/meikuraledutech/topology/logger"
	"github.com/meikuraledutech/topology/patterns"
	"github.com/meikuraledutech/topology/route"
)

// Options tune the engine components behind a Service.
type Options struct {
	Detector               patterns.Config
	MaxAlternatives        int
	MaxDepth               int
	RejectDependencyCycles bool
	// Verifier is nil when no JWT secret is configured.
	Verifier *auth.Verifier
	Logger   *slog.Logger
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		Detector:               patterns.DefaultConfig(),
		MaxAlternatives:        3,
		MaxDepth:               10,
		RejectDependencyCycles: true,
	}
}

// OptionsFromConfig maps process configuration onto Options.
func OptionsFromConfig(cfg *config.Config, log *slog.Logger) Options {
	opts := Options{
		Detector: patterns.Config{
			BottleneckThreshold: cfg.BottleneckThreshold,
			HubThreshold:        cfg.HubThreshold,
		},
		MaxAlternatives:        cfg.MaxAlternatives,
		MaxDepth:               cfg.MaxPathDepth,
		RejectDependencyCycles: cfg.RejectDependencyCycles,
		Logger:                 log,
	}
	if cfg.JWTSecret != "" {
		opts.Verifier = auth.NewVerifier(cfg.JWTSecret)
	}
	return opts
}

// Service wires a Store to the analysis, cluster and routing components.
type Service struct {
	store        topology.Store
	detector     *patterns.Detector
	clusters     *cluster.Manager
	planner      *route.Planner
	verifier     *auth.Verifier
	rejectCycles bool
	log          *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Service over store.
func New(store topology.Store, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	detector := patterns.New(opts.Detector)
	detector.Logger = log
	planner := route.New(log)
	planner.MaxAlternatives = opts.MaxAlternatives
	planner.MaxDepth = opts.MaxDepth

	return &Service{
		store:        store,
		detector:     detector,
		clusters:     cluster.New(log),
		planner:      planner,
		verifier:     opts.Verifier,
		rejectCycles: opts.RejectDependencyCycles,
		log:          log,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Store returns the underlying store.
func (s *Service) Store() topology.Store {
	return s.store
}

// lock serialises writers on one topology and returns the unlock func.
func (s *Service) lock(topologyID string) func() {
	s.mu.Lock()
	l, ok := s.locks[topologyID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[topologyID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *Service) load(ctx context.Context, topologyID string) (*topology.ProjectTopology, error) {
	t, err := s.store.LoadTopology(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", topology.ErrTopologyNotFound, topologyID)
	}
	return t, nil
}

// CreateTopology stores a new empty topology. An empty id gets a UUID.
func (s *Service) CreateTopology(ctx context.Context, topologyID string) (*topology.ProjectTopology, error) {
	if topologyID == "" {
		topologyID = uuid.NewString()
	}
	defer s.lock(topologyID)()

	existing, err := s.store.LoadTopology(ctx, topologyID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", topology.ErrTopologyExists, topologyID)
	}
	t := topology.NewProjectTopology(topologyID)
	if err := s.store.SaveTopology(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info("topology created", "topology", topologyID)
	return t, nil
}

// ImportTopology stores t, replacing any topology with the same id.
func (s *Service) ImportTopology(ctx context.Context, t *topology.ProjectTopology) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	defer s.lock(t.ID)()
	if err := s.store.SaveTopology(ctx, t); err != nil {
		return err
	}
	s.log.Info("topology imported",
		"topology", t.ID,
		"nodes", t.Graph.NodeCount(),
		"edges", t.Graph.EdgeCount(),
		"clusters", len(t.Clusters),
	)
	return nil
}

// GetTopology loads a full snapshot.
func (s *Service) GetTopology(ctx context.Context, topologyID string) (*topology.ProjectTopology, error) {
	return s.load(ctx, topologyID)
}

// ListTopologies returns every stored topology id.
func (s *Service) ListTopologies(ctx context.Context) ([]string, error) {
	return s.store.ListTopologies(ctx)
}

// DeleteTopology removes a topology.
func (s *Service) DeleteTopology(ctx context.Context, topologyID string) error {
	defer s.lock(topologyID)()
	if _, err := s.load(ctx, topologyID); err != nil {
		return err
	}
	if err := s.store.DeleteTopology(ctx, topologyID); err != nil {
		return err
	}
	s.log.Info("topology deleted", "topology", topologyID)
	return nil
}
