package hypothesis

import (
	"context"
	"sync"

	"boolnet/internal/errors"
	"boolnet/internal/logging"
	"boolnet/internal/metrics"
	"boolnet/internal/model"
	"boolnet/internal/network"
)

// Synthesizer rebuilds the consistency map for the topology currently
// installed in a registry.
type Synthesizer interface {
	Synthesize(ctx context.Context) (model.ConsistencyMap, error)
}

// Step is the outcome of installing one candidate topology.
type Step struct {
	Index       int                  `json:"index"`
	Topology    model.Topology       `json:"topology"`
	SelfLoops   []string             `json:"self_loops,omitempty"`
	Components  []model.Component    `json:"components"`
	Consistency model.ConsistencyMap `json:"consistency"`
}

type Option func(*Enumerator)

// WithMaxOptional bounds the number of optional interactions the enumerator
// accepts. Values <= 0 fall back to MaxOptionalLimit.
func WithMaxOptional(n int) Option {
	return func(e *Enumerator) {
		if n <= 0 || n > MaxOptionalLimit {
			n = MaxOptionalLimit
		}
		e.maxOptional = n
	}
}

// Enumerator steps through every candidate topology of a ledger, installing
// each one into the registry in turn. The enumeration is computed on first
// use and recomputed (with the cursor rewound) whenever the ledger records a
// new interaction.
type Enumerator struct {
	registry    *network.Registry
	ledger      *network.Ledger
	synthesizer Synthesizer
	maxOptional int

	mu         sync.Mutex
	computed   bool
	version    uint64
	topologies []model.Topology
	cursor     int
}

// New builds an enumerator. synthesizer may be nil, in which case steps carry
// no consistency map.
func New(registry *network.Registry, ledger *network.Ledger, synthesizer Synthesizer, opts ...Option) (*Enumerator, error) {
	if registry == nil {
		return nil, errors.New("enumerator registry is required")
	}
	if ledger == nil {
		return nil, errors.New("enumerator ledger is required")
	}
	e := &Enumerator{
		registry:    registry,
		ledger:      ledger,
		synthesizer: synthesizer,
		maxOptional: MaxOptionalLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Advance installs the next topology and synthesizes its consistency map.
// After the last topology it returns ErrExhausted. When synthesis fails the
// topology stays installed and the cursor is not moved.
func (e *Enumerator) Advance(ctx context.Context) (Step, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.refreshLocked(); err != nil {
		return Step{}, err
	}
	if e.cursor >= len(e.topologies) {
		return Step{}, errors.Wrapf(ErrExhausted, "after %d topologies", len(e.topologies))
	}
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}

	topology := e.topologies[e.cursor]
	selfLoops, err := Install(e.registry, topology)
	if err != nil {
		return Step{}, err
	}
	metrics.TopologiesInstalled.Inc()

	step := Step{
		Index:      e.cursor,
		Topology:   topology.Clone(),
		SelfLoops:  selfLoops,
		Components: e.registry.Components(),
	}
	if e.synthesizer != nil {
		consistency, err := e.synthesizer.Synthesize(ctx)
		if err != nil {
			return Step{}, errors.Wrapf(err, "synthesize topology %d", e.cursor)
		}
		step.Consistency = consistency
	}

	logging.Logger.Debugw("installed topology",
		logging.FieldTopology, e.cursor,
		logging.FieldTotal, len(e.topologies),
		logging.FieldCount, len(topology),
		"self_loops", selfLoops,
	)
	e.cursor++
	return step, nil
}

// HasNext reports whether Advance would install another topology.
func (e *Enumerator) HasNext() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.refreshLocked(); err != nil {
		return false, err
	}
	return e.cursor < len(e.topologies), nil
}

// Len returns the size of the current enumeration.
func (e *Enumerator) Len() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.refreshLocked(); err != nil {
		return 0, err
	}
	return len(e.topologies), nil
}

// Cursor returns the index of the next topology Advance will install.
func (e *Enumerator) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cursor
}

// Rewind moves the cursor back to the first topology.
func (e *Enumerator) Rewind() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cursor = 0
}

// Topologies returns a copy of the current enumeration.
func (e *Enumerator) Topologies() ([]model.Topology, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.refreshLocked(); err != nil {
		return nil, err
	}
	out := make([]model.Topology, len(e.topologies))
	for i, t := range e.topologies {
		out[i] = t.Clone()
	}
	return out, nil
}

func (e *Enumerator) refreshLocked() error {
	version := e.ledger.Version()
	if e.computed && version == e.version {
		return nil
	}
	definite, optional := e.ledger.Snapshot()
	if len(optional) > e.maxOptional {
		return errors.WithHintf(
			errors.Wrapf(ErrTooManyOptional, "%d optional interactions exceed the limit of %d", len(optional), e.maxOptional),
			"raise enumeration.max_optional or declare some interactions as definite",
		)
	}
	topologies, err := Enumerate(definite, optional)
	if err != nil {
		return err
	}
	if e.computed {
		logging.Logger.Infow("interaction ledger changed, enumeration recomputed",
			logging.FieldTotal, len(topologies),
			"discarded_cursor", e.cursor,
		)
	}
	e.topologies = topologies
	e.version = version
	e.computed = true
	e.cursor = 0
	metrics.EnumerationRefreshes.Inc()
	metrics.EnumerationSize.Set(float64(len(topologies)))
	return nil
}
