// Package boolnet is the public entry point for enumerating candidate
// regulatory network topologies and reading back the persisted results.
package boolnet

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"boolnet/internal/errors"
	"boolnet/internal/hypothesis"
	"boolnet/internal/model"
	"boolnet/internal/netfile"
	"boolnet/internal/session"
	"boolnet/internal/stats"
	"boolnet/internal/storage"
	"boolnet/internal/synthesis"
)

const (
	defaultArtifactsDir = "boolnet-artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "boolnet.db"
)

type (
	Session          = model.Session
	TopologyResult   = model.TopologyResult
	ConsistencyMap   = model.ConsistencyMap
	Verdict          = model.Verdict
	Evaluator        = synthesis.Evaluator
	EvaluatorFactory = synthesis.EvaluatorFactory
	Definition       = netfile.Definition
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	// Factory evaluates regulation conditions. Nil marks every condition
	// unknown.
	Factory EvaluatorFactory
}

type Client struct {
	store   storage.Store
	factory EvaluatorFactory

	artifactsDir string
	exportsDir   string

	initOnce sync.Once
	initErr  error
}

type EnumerateRequest struct {
	// Exactly one of DefinitionPath, Source or Definition supplies the network.
	DefinitionPath string
	Source         []byte
	Definition     *Definition

	SessionID     string
	Reference     string
	OptionalAware bool
	MaxOptional   int
	Workers       int
	// Limit stops the run after that many topologies; 0 evaluates all.
	Limit int
	// Visit, when set, sees every result as it is persisted.
	Visit func(TopologyResult) error
}

type EnumerateSummary struct {
	SessionID    string
	Topologies   int
	Visited      int
	Stopped      bool
	ArtifactsDir string
}

type SessionsRequest struct {
	Limit int
}

type SessionItem struct {
	SessionID     string
	CreatedAtUTC  string
	Components    int
	Definite      int
	Optional      int
	Experiments   int
	Topologies    int
	Reference     string
	OptionalAware bool
}

type TopologiesRequest struct {
	SessionID string
	Latest    bool
	Limit     int
}

type ExportRequest struct {
	SessionID string
	Latest    bool
	OutDir    string
}

type ExportSummary struct {
	SessionID string
	Directory string
}

type DescribeRequest struct {
	DefinitionPath string
	Source         []byte
}

type Description struct {
	Components   string
	Interactions string
	Conditions   []string
	Experiments  int
	Topologies   int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		factory:      opts.Factory,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

// Open builds a client and initializes its store.
func Open(ctx context.Context, opts Options) (*Client, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Count returns the number of topologies produced by m optional interactions.
func Count(m int) (int, error) {
	return hypothesis.Count(m)
}

// Enumerate loads a network definition, evaluates every candidate topology
// and persists the results and artifacts.
func (c *Client) Enumerate(ctx context.Context, req EnumerateRequest) (EnumerateSummary, error) {
	if err := c.Init(ctx); err != nil {
		return EnumerateSummary{}, err
	}
	if req.Limit < 0 {
		return EnumerateSummary{}, errors.New("limit must be >= 0")
	}
	def, source, err := loadDefinition(req.DefinitionPath, req.Source, req.Definition)
	if err != nil {
		return EnumerateSummary{}, err
	}
	reference, err := synthesis.ParseReferenceMode(req.Reference)
	if err != nil {
		return EnumerateSummary{}, err
	}

	s, err := session.FromDefinition(session.Config{
		ID:            req.SessionID,
		Store:         c.store,
		Factory:       c.factory,
		Reference:     reference,
		OptionalAware: req.OptionalAware,
		MaxOptional:   req.MaxOptional,
		Workers:       req.Workers,
	}, def)
	if err != nil {
		return EnumerateSummary{}, err
	}

	visited := 0
	runSummary, err := s.Run(ctx, func(step hypothesis.Step) error {
		if req.Visit != nil {
			if err := req.Visit(TopologyResult{
				VersionedRecord: storage.CurrentVersion(),
				SessionID:       s.ID(),
				Index:           step.Index,
				Topology:        step.Topology,
				Components:      step.Components,
				Consistency:     step.Consistency,
			}); err != nil {
				return err
			}
		}
		visited++
		if req.Limit > 0 && visited >= req.Limit {
			return session.ErrStop
		}
		return nil
	})
	if err != nil {
		return EnumerateSummary{}, err
	}

	summary := EnumerateSummary{
		SessionID:  runSummary.SessionID,
		Topologies: runSummary.Topologies,
		Visited:    runSummary.Visited,
		Stopped:    runSummary.Stopped,
	}
	dir, err := c.writeArtifacts(ctx, s.ID(), runSummary, source)
	if err != nil {
		return EnumerateSummary{}, err
	}
	summary.ArtifactsDir = dir
	return summary, nil
}

func (c *Client) writeArtifacts(ctx context.Context, sessionID string, runSummary session.Summary, source []byte) (string, error) {
	record, ok, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Newf("session %s was not persisted", sessionID)
	}
	results, err := c.store.ListTopologyResults(ctx, sessionID)
	if err != nil {
		return "", err
	}

	summary := stats.SessionSummary{
		SessionID:  runSummary.SessionID,
		Topologies: runSummary.Topologies,
		Visited:    runSummary.Visited,
		Stopped:    runSummary.Stopped,
	}
	dir, err := stats.WriteSessionArtifacts(c.artifactsDir, stats.SessionArtifacts{
		Session: record,
		Summary: summary,
		Results: results,
	})
	if err != nil {
		return "", err
	}
	if len(source) > 0 {
		if err := stats.WriteDefinitionSource(dir, source); err != nil {
			return "", err
		}
	}
	if err := stats.AppendSessionIndex(c.artifactsDir, stats.IndexEntryFor(record, summary)); err != nil {
		return "", err
	}
	return filepath.Clean(dir), nil
}

// Sessions lists persisted sessions, newest first.
func (c *Client) Sessions(ctx context.Context, req SessionsRequest) ([]SessionItem, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	sessions, err := c.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) > req.Limit {
		sessions = sessions[:req.Limit]
	}

	out := make([]SessionItem, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionItem{
			SessionID:     s.ID,
			CreatedAtUTC:  s.CreatedAtUTC,
			Components:    len(s.Components),
			Definite:      len(s.Definite),
			Optional:      len(s.Optional),
			Experiments:   len(s.Experiments),
			Topologies:    s.TopologyCount,
			Reference:     s.Reference,
			OptionalAware: s.OptionalAware,
		})
	}
	return out, nil
}

// Topologies returns the persisted results of a session in enumeration order.
func (c *Client) Topologies(ctx context.Context, req TopologiesRequest) ([]TopologyResult, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	sessionID, err := c.resolveSession(ctx, req.SessionID, req.Latest)
	if err != nil {
		return nil, err
	}

	results, err := c.sessionResults(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.SessionID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either session id or latest")
	}
	if req.SessionID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires session id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	sessionID := req.SessionID
	if req.Latest {
		entries, err := stats.ListSessionIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no sessions available to export")
		}
		sessionID = entries[0].SessionID
	}

	exportedDir, err := stats.ExportSessionArtifacts(c.artifactsDir, sessionID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{SessionID: sessionID, Directory: filepath.Clean(exportedDir)}, nil
}

// Describe loads a definition without evaluating it and reports the wiring it
// declares.
func (c *Client) Describe(_ context.Context, req DescribeRequest) (Description, error) {
	def, _, err := loadDefinition(req.DefinitionPath, req.Source, nil)
	if err != nil {
		return Description{}, err
	}
	s, err := session.FromDefinition(session.Config{ID: "describe"}, def)
	if err != nil {
		return Description{}, err
	}
	count, err := s.Enumerator().Len()
	if err != nil {
		return Description{}, err
	}
	return Description{
		Components:   s.Registry().Describe(),
		Interactions: s.Ledger().Describe(),
		Conditions:   s.Library().Names(),
		Experiments:  s.Timeline().Len(),
		Topologies:   count,
	}, nil
}

func (c *Client) resolveSession(ctx context.Context, sessionID string, latest bool) (string, error) {
	if sessionID != "" && latest {
		return "", errors.New("use either session id or latest")
	}
	if sessionID != "" {
		return sessionID, nil
	}
	if !latest {
		return "", errors.New("session id or latest is required")
	}
	sessions, err := c.store.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	if len(sessions) > 0 {
		return sessions[0].ID, nil
	}
	entries, err := stats.ListSessionIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no sessions available")
	}
	return entries[0].SessionID, nil
}

// sessionResults reads results from the store, falling back to the artifacts
// directory for sessions the store does not hold (a memory store only knows
// the sessions of the current process).
func (c *Client) sessionResults(ctx context.Context, sessionID string) ([]TopologyResult, error) {
	if _, ok, err := c.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	} else if ok {
		return c.store.ListTopologyResults(ctx, sessionID)
	}
	artifacts, ok, err := stats.ReadSessionArtifacts(c.artifactsDir, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Newf("session not found: %s", sessionID)
	}
	return artifacts.Results, nil
}

func loadDefinition(path string, source []byte, def *Definition) (Definition, []byte, error) {
	given := 0
	for _, set := range []bool{path != "", len(source) > 0, def != nil} {
		if set {
			given++
		}
	}
	if given != 1 {
		return Definition{}, nil, errors.New("exactly one of definition path, source or definition is required")
	}
	if def != nil {
		return *def, nil, nil
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Definition{}, nil, errors.Wrapf(err, "read network definition %s", path)
		}
		source = data
	}
	parsed, err := netfile.Parse(source)
	if err != nil {
		return Definition{}, nil, err
	}
	return parsed, source, nil
}
