package synthesis

import (
	"context"
	"sync"
	"time"

	"boolnet/internal/errors"
	"boolnet/internal/experiment"
	"boolnet/internal/logging"
	"boolnet/internal/metrics"
	"boolnet/internal/model"
	"boolnet/internal/network"
)

// ReferenceMode selects which experiment is handed to the evaluator as the
// reference time series.
type ReferenceMode string

const (
	// ReferenceFirst shares experiment 0 across every step index.
	ReferenceFirst ReferenceMode = "first"
	// ReferencePerExperiment hands experiment k to the evaluator for step k.
	ReferencePerExperiment ReferenceMode = "per_experiment"
)

// ParseReferenceMode accepts the configuration spelling of a ReferenceMode.
// An empty string selects ReferenceFirst.
func ParseReferenceMode(raw string) (ReferenceMode, error) {
	switch ReferenceMode(raw) {
	case "", ReferenceFirst:
		return ReferenceFirst, nil
	case ReferencePerExperiment:
		return ReferencePerExperiment, nil
	default:
		return "", errors.Newf("unknown synthesis reference mode %q", raw)
	}
}

type Config struct {
	Registry      *network.Registry
	Ledger        *network.Ledger
	Timeline      *experiment.Timeline
	Factory       EvaluatorFactory
	Reference     ReferenceMode
	OptionalAware bool
}

// Coordinator builds the regulation-consistency map for whatever topology is
// currently installed in its registry. Every call replaces the previous map.
type Coordinator struct {
	registry      *network.Registry
	ledger        *network.Ledger
	timeline      *experiment.Timeline
	factory       EvaluatorFactory
	reference     ReferenceMode
	optionalAware bool

	mu     sync.RWMutex
	latest model.ConsistencyMap
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Registry == nil {
		return nil, errors.New("synthesis registry is required")
	}
	if cfg.Timeline == nil {
		return nil, errors.New("synthesis timeline is required")
	}
	if cfg.Factory == nil {
		return nil, errors.New("synthesis evaluator factory is required")
	}
	if cfg.OptionalAware && cfg.Ledger == nil {
		return nil, errors.New("optional-aware synthesis requires a ledger")
	}
	mode, err := ParseReferenceMode(string(cfg.Reference))
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		registry:      cfg.Registry,
		ledger:        cfg.Ledger,
		timeline:      cfg.Timeline,
		factory:       cfg.Factory,
		reference:     mode,
		optionalAware: cfg.OptionalAware,
	}, nil
}

// WithRegistry returns a coordinator that reads wiring from registry and
// shares everything else with c.
func (c *Coordinator) WithRegistry(registry *network.Registry) *Coordinator {
	return &Coordinator{
		registry:      registry,
		ledger:        c.ledger,
		timeline:      c.timeline,
		factory:       c.factory,
		reference:     c.reference,
		optionalAware: c.optionalAware,
	}
}

func (c *Coordinator) OptionalAware() bool {
	return c.optionalAware
}

func (c *Coordinator) Reference() ReferenceMode {
	return c.reference
}

// Synthesize runs the variant selected by Config.OptionalAware.
func (c *Coordinator) Synthesize(ctx context.Context) (model.ConsistencyMap, error) {
	if c.optionalAware {
		return c.SynthesizeOptional(ctx)
	}
	return c.SynthesizePlain(ctx)
}

// SynthesizePlain evaluates every component against every experiment index
// without edge information.
func (c *Coordinator) SynthesizePlain(ctx context.Context) (model.ConsistencyMap, error) {
	return c.synthesize(ctx, "plain", func(string) []model.Edge { return nil })
}

// SynthesizeOptional additionally hands each component the optional edges
// that target it.
func (c *Coordinator) SynthesizeOptional(ctx context.Context) (model.ConsistencyMap, error) {
	if c.ledger == nil {
		return nil, errors.New("optional-aware synthesis requires a ledger")
	}
	return c.synthesize(ctx, "optional", func(name string) []model.Edge {
		edges := c.ledger.OptionalEdges(name)
		if edges == nil {
			edges = []model.Edge{}
		}
		return edges
	})
}

// Latest returns the map produced by the most recent successful call.
func (c *Coordinator) Latest() model.ConsistencyMap {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.latest
}

func (c *Coordinator) synthesize(ctx context.Context, variant string, edgesFor func(string) []model.Edge) (model.ConsistencyMap, error) {
	start := time.Now()
	experiments := c.timeline.Experiments()
	components := c.registry.Components()
	result := make(model.ConsistencyMap, len(components)*len(experiments))

	for _, component := range components {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edges := edgesFor(component.Name)
		for k := range experiments {
			reference := experiments[0]
			if c.reference == ReferencePerExperiment {
				reference = experiments[k]
			}
			verdicts, err := c.evaluate(component, reference, edges, k)
			if err != nil {
				metrics.EvaluatorFailures.Inc()
				return nil, errors.WithDetailf(err, "component %s step %d", component.Name, k)
			}
			result[model.ConsistencyKey(component.Name, k)] = verdicts
		}
	}

	elapsed := time.Since(start)
	metrics.SynthesisDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
	logging.Logger.Debugw("synthesized regulation conditions",
		"variant", variant,
		logging.FieldCount, len(result),
		logging.FieldDurationMS, elapsed.Milliseconds(),
	)

	c.mu.Lock()
	c.latest = result
	c.mu.Unlock()
	return result, nil
}

func (c *Coordinator) evaluate(component model.Component, reference model.Experiment, edges []model.Edge, step int) (map[int]model.Verdict, error) {
	evaluator, err := c.factory.NewEvaluator(component, reference.Clone(), edges)
	if err != nil {
		return nil, err
	}
	verdicts, err := evaluator.EvalDict(step)
	if err != nil {
		return nil, err
	}
	if verdicts == nil {
		verdicts = map[int]model.Verdict{}
	}
	return verdicts, nil
}
