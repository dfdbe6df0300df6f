package hypothesis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"boolnet/internal/errors"
	"boolnet/internal/metrics"
	"boolnet/internal/model"
	"boolnet/internal/network"
)

// SweepConfig describes a parallel evaluation of every candidate topology.
type SweepConfig struct {
	Registry    *network.Registry
	Definite    []model.Interaction
	Optional    []model.Interaction
	MaxOptional int
	Workers     int
	// NewSynthesizer builds a synthesizer bound to a worker's private
	// registry. It may be nil.
	NewSynthesizer func(registry *network.Registry) Synthesizer
}

// Sweep installs and synthesizes every topology using cfg.Workers goroutines,
// each with its own clone of cfg.Registry. visit receives the steps in
// enumeration order; returning an error from visit stops the sweep. The
// caller's registry is never modified.
func Sweep(ctx context.Context, cfg SweepConfig, visit func(Step) error) error {
	if cfg.Registry == nil {
		return errors.New("sweep registry is required")
	}
	limit := cfg.MaxOptional
	if limit <= 0 || limit > MaxOptionalLimit {
		limit = MaxOptionalLimit
	}
	if len(cfg.Optional) > limit {
		return errors.Wrapf(ErrTooManyOptional, "%d optional interactions exceed the limit of %d", len(cfg.Optional), limit)
	}
	topologies, err := Enumerate(cfg.Definite, cfg.Optional)
	if err != nil {
		return err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(topologies) {
		workers = len(topologies)
	}

	results := make([]Step, len(topologies))
	ready := make([]chan struct{}, len(topologies))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range topologies {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		registry := cfg.Registry.Clone()
		var synthesizer Synthesizer
		if cfg.NewSynthesizer != nil {
			synthesizer = cfg.NewSynthesizer(registry)
		}
		g.Go(func() error {
			for i := range jobs {
				step, err := evaluateTopology(gctx, registry, synthesizer, i, topologies[i])
				if err != nil {
					return err
				}
				results[i] = step
				close(ready[i])
			}
			return nil
		})
	}

	g.Go(func() error {
		for i := range topologies {
			select {
			case <-ready[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			if err := visit(results[i]); err != nil {
				return err
			}
			results[i] = Step{}
		}
		return nil
	})

	return g.Wait()
}

func evaluateTopology(ctx context.Context, registry *network.Registry, synthesizer Synthesizer, index int, topology model.Topology) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	selfLoops, err := Install(registry, topology)
	if err != nil {
		return Step{}, err
	}
	metrics.TopologiesInstalled.Inc()
	step := Step{
		Index:      index,
		Topology:   topology.Clone(),
		SelfLoops:  selfLoops,
		Components: registry.Components(),
	}
	if synthesizer != nil {
		consistency, err := synthesizer.Synthesize(ctx)
		if err != nil {
			return Step{}, errors.Wrapf(err, "synthesize topology %d", index)
		}
		step.Consistency = consistency
	}
	return step, nil
}
