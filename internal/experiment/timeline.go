package experiment

import (
	"strings"
	"sync"
	"unicode"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

// Timeline assembles experiments from token sequences such as
// ["0", "condA", "18", "condB"]: a numeric token opens a timestamp and the
// snippet names that follow it are merged into that timestamp's assignment.
type Timeline struct {
	library *Library

	mu          sync.RWMutex
	experiments []model.Experiment
}

func NewTimeline(library *Library) *Timeline {
	return &Timeline{library: library}
}

// Append parses tokens into one experiment and stores it. It returns the index
// of the new experiment. Nothing is stored when parsing fails.
func (t *Timeline) Append(tokens []string) (int, error) {
	exp, err := t.Parse(tokens)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.experiments = append(t.experiments, exp)
	return len(t.experiments) - 1, nil
}

// AppendExpr splits line on whitespace and appends it.
func (t *Timeline) AppendExpr(line string) (int, error) {
	return t.Append(strings.Fields(line))
}

// Parse builds an experiment without storing it. A timestamp repeated in the
// same sequence merges into its first occurrence.
func (t *Timeline) Parse(tokens []string) (model.Experiment, error) {
	if t.library == nil {
		return nil, errors.New("timeline has no condition library")
	}
	if len(tokens) == 0 {
		return nil, errors.Wrap(ErrMalformedTimeline, "empty token sequence")
	}
	if !IsTimestamp(tokens[0]) {
		return nil, errors.Wrapf(ErrMalformedTimeline, "sequence starts with %q, want a numeric timestamp", tokens[0])
	}

	var exp model.Experiment
	position := make(map[string]int)
	current := -1
	for _, token := range tokens {
		if IsTimestamp(token) {
			pos, seen := position[token]
			if !seen {
				pos = len(exp)
				position[token] = pos
				exp = append(exp, model.Timestep{Label: token, Assignment: model.Assignment{}})
			}
			current = pos
			continue
		}
		snippet, err := t.library.Lookup(token)
		if err != nil {
			return nil, errors.Wrapf(err, "timestamp %s", exp[current].Label)
		}
		exp[current].Assignment.Merge(snippet)
	}
	return exp, nil
}

// IsTimestamp reports whether token is a non-empty run of decimal digits.
func IsTimestamp(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.experiments)
}

// Experiment returns a copy of experiment i.
func (t *Timeline) Experiment(i int) (model.Experiment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i < 0 || i >= len(t.experiments) {
		return nil, errors.Newf("experiment %d out of range [0,%d)", i, len(t.experiments))
	}
	return t.experiments[i].Clone(), nil
}

// Experiments returns copies of every stored experiment in append order.
func (t *Timeline) Experiments() []model.Experiment {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.Experiment, len(t.experiments))
	for i, exp := range t.experiments {
		out[i] = exp.Clone()
	}
	return out
}
