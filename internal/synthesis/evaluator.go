package synthesis

import (
	"boolnet/internal/model"
)

// Evaluator reports, for one component and reference experiment, which
// regulation conditions are consistent with the observed transition at a
// given step.
type Evaluator interface {
	EvalDict(step int) (map[int]model.Verdict, error)
}

// EvaluatorFactory builds an Evaluator for a component. edges is nil for the
// plain variant; the optional-aware variant passes the optional (source, sign)
// edges that target the component. reference holds every timestep of the
// chosen experiment; reference[0].Assignment is the initial state.
type EvaluatorFactory interface {
	NewEvaluator(component model.Component, reference model.Experiment, edges []model.Edge) (Evaluator, error)
}

// FactoryFunc adapts a function to EvaluatorFactory.
type FactoryFunc func(component model.Component, reference model.Experiment, edges []model.Edge) (Evaluator, error)

func (f FactoryFunc) NewEvaluator(component model.Component, reference model.Experiment, edges []model.Edge) (Evaluator, error) {
	return f(component, reference, edges)
}

// EvalFunc adapts a function to Evaluator.
type EvalFunc func(step int) (map[int]model.Verdict, error)

func (f EvalFunc) EvalDict(step int) (map[int]model.Verdict, error) {
	return f(step)
}

// Undetermined is a factory whose evaluators mark every admissible condition
// as unknown, leaving the decision to the downstream solver.
type Undetermined struct{}

func (Undetermined) NewEvaluator(component model.Component, _ model.Experiment, _ []model.Edge) (Evaluator, error) {
	rules := append([]int(nil), component.Rules...)
	return EvalFunc(func(int) (map[int]model.Verdict, error) {
		out := make(map[int]model.Verdict, len(rules))
		for _, id := range rules {
			out[id] = model.VerdictUnknown
		}
		return out, nil
	}), nil
}
