// Package session binds a component registry, interaction ledger, condition
// library and experiment timeline into one enumeration run whose results are
// persisted to a storage.Store.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"boolnet/internal/errors"
	"boolnet/internal/experiment"
	"boolnet/internal/hypothesis"
	"boolnet/internal/logging"
	"boolnet/internal/model"
	"boolnet/internal/netfile"
	"boolnet/internal/network"
	"boolnet/internal/storage"
	"boolnet/internal/synthesis"
)

// ErrStop may be returned by a visitor to end Run early without an error.
var ErrStop = errors.New("session stopped by visitor")

type Config struct {
	// ID names the session; a random UUID is used when empty.
	ID    string
	Store storage.Store
	// Factory builds the per-component evaluators. Nil selects
	// synthesis.Undetermined.
	Factory       synthesis.EvaluatorFactory
	Reference     synthesis.ReferenceMode
	OptionalAware bool
	MaxOptional   int
	// Workers > 1 evaluates topologies concurrently on cloned registries.
	Workers int
	Now     func() time.Time
}

// Visitor receives every evaluated topology in enumeration order.
type Visitor func(step hypothesis.Step) error

type Summary struct {
	SessionID  string `json:"session_id"`
	Topologies int    `json:"topologies"`
	Visited    int    `json:"visited"`
	Stopped    bool   `json:"stopped"`
}

type Session struct {
	id  string
	cfg Config
	log *zap.SugaredLogger

	registry    *network.Registry
	ledger      *network.Ledger
	library     *experiment.Library
	timeline    *experiment.Timeline
	coordinator *synthesis.Coordinator
	enumerator  *hypothesis.Enumerator
}

var _ netfile.Sink = (*Session)(nil)

func New(cfg Config) (*Session, error) {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	if cfg.Factory == nil {
		cfg.Factory = synthesis.Undetermined{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	registry := network.NewRegistry()
	ledger := network.NewLedger(registry)
	library := experiment.NewLibrary()
	timeline := experiment.NewTimeline(library)

	coordinator, err := synthesis.New(synthesis.Config{
		Registry:      registry,
		Ledger:        ledger,
		Timeline:      timeline,
		Factory:       cfg.Factory,
		Reference:     cfg.Reference,
		OptionalAware: cfg.OptionalAware,
	})
	if err != nil {
		return nil, err
	}
	enumerator, err := hypothesis.New(registry, ledger, coordinator, hypothesis.WithMaxOptional(cfg.MaxOptional))
	if err != nil {
		return nil, err
	}

	return &Session{
		id:          id,
		cfg:         cfg,
		log:         logging.Named("session").With(logging.FieldSession, id),
		registry:    registry,
		ledger:      ledger,
		library:     library,
		timeline:    timeline,
		coordinator: coordinator,
		enumerator:  enumerator,
	}, nil
}

// FromDefinition creates a session and loads def into it.
func FromDefinition(cfg Config, def netfile.Definition) (*Session, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := netfile.Apply(def, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }
func (s *Session) Registry() *network.Registry { return s.registry }
func (s *Session) Ledger() *network.Ledger { return s.ledger }
func (s *Session) Library() *experiment.Library { return s.library }
func (s *Session) Timeline() *experiment.Timeline { return s.timeline }
func (s *Session) Coordinator() *synthesis.Coordinator { return s.coordinator }
func (s *Session) Enumerator() *hypothesis.Enumerator { return s.enumerator }

func (s *Session) Register(name, rules string) error {
	return s.registry.Register(name, rules)
}

func (s *Session) RecordFields(fields []string) error {
	return s.ledger.RecordFields(fields)
}

func (s *Session) DefineCondition(name string, terms []string) error {
	return s.library.Define(name, terms)
}

func (s *Session) AppendExperiment(tokens []string) (int, error) {
	return s.timeline.Append(tokens)
}

// Record describes the session as it would be persisted right now.
func (s *Session) Record() (model.Session, error) {
	count, err := s.enumerator.Len()
	if err != nil {
		return model.Session{}, err
	}
	definite, optional := s.ledger.Snapshot()
	return model.Session{
		VersionedRecord: storage.CurrentVersion(),
		ID:              s.id,
		CreatedAtUTC:    s.cfg.Now().UTC().Format(time.RFC3339Nano),
		Components:      s.registry.Components(),
		Definite:        definite,
		Optional:        optional,
		Experiments:     s.timeline.Experiments(),
		TopologyCount:   count,
		Reference:       string(s.coordinator.Reference()),
		OptionalAware:   s.coordinator.OptionalAware(),
	}, nil
}

// Run evaluates every candidate topology from the start of the enumeration,
// persisting each result before handing it to visit. visit may be nil.
// Returning ErrStop from visit ends the run successfully.
func (s *Session) Run(ctx context.Context, visit Visitor) (Summary, error) {
	record, err := s.Record()
	if err != nil {
		return Summary{}, err
	}
	if s.cfg.Store != nil {
		if err := s.cfg.Store.SaveSession(ctx, record); err != nil {
			return Summary{}, errors.Wrap(err, "save session")
		}
	}

	summary := Summary{SessionID: s.id, Topologies: record.TopologyCount}
	started := time.Now()
	s.log.Infow("session started",
		logging.FieldTotal, record.TopologyCount,
		logging.FieldExperiment, len(record.Experiments),
		"workers", s.cfg.Workers,
	)

	handle := func(step hypothesis.Step) error {
		if err := s.persist(ctx, step); err != nil {
			return err
		}
		summary.Visited++
		if visit == nil {
			return nil
		}
		return visit(step)
	}

	if s.cfg.Workers > 1 {
		err = s.sweep(ctx, handle)
	} else {
		err = s.advance(ctx, handle)
	}
	if errors.Is(err, ErrStop) {
		summary.Stopped = true
		err = nil
	}
	if err != nil {
		s.log.Warnw("session failed", logging.FieldCount, summary.Visited, logging.FieldError, err)
		return summary, err
	}

	s.log.Infow("session finished",
		logging.FieldCount, summary.Visited,
		logging.FieldDurationMS, time.Since(started).Milliseconds(),
		"stopped", summary.Stopped,
	)
	return summary, nil
}

func (s *Session) advance(ctx context.Context, handle func(hypothesis.Step) error) error {
	s.enumerator.Rewind()
	for {
		step, err := s.enumerator.Advance(ctx)
		if errors.IsExhausted(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handle(step); err != nil {
			return err
		}
	}
}

func (s *Session) sweep(ctx context.Context, handle func(hypothesis.Step) error) error {
	definite, optional := s.ledger.Snapshot()
	return hypothesis.Sweep(ctx, hypothesis.SweepConfig{
		Registry:    s.registry,
		Definite:    definite,
		Optional:    optional,
		MaxOptional: s.cfg.MaxOptional,
		Workers:     s.cfg.Workers,
		NewSynthesizer: func(registry *network.Registry) hypothesis.Synthesizer {
			return s.coordinator.WithRegistry(registry)
		},
	}, handle)
}

func (s *Session) persist(ctx context.Context, step hypothesis.Step) error {
	if s.cfg.Store == nil {
		return nil
	}
	result := model.TopologyResult{
		VersionedRecord: storage.CurrentVersion(),
		SessionID:       s.id,
		Index:           step.Index,
		Topology:        step.Topology,
		Components:      step.Components,
		Consistency:     step.Consistency,
	}
	if err := s.cfg.Store.SaveTopologyResult(ctx, result); err != nil {
		return errors.Wrapf(err, "save topology %d", step.Index)
	}
	return nil
}
