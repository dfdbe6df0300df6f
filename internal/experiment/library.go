package experiment

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

var (
	ErrMalformedCondition      = errors.ErrMalformedCondition
	ErrMalformedTimeline       = errors.ErrMalformedTimeline
	ErrUnknownSnippetReference = errors.ErrUnknownSnippetReference
)

// connective is skipped when parsing condition terms.
const connective = "and"

// Library stores named condition snippets: partial assignments of observed
// component values that experiments are assembled from.
type Library struct {
	mu         sync.RWMutex
	conditions map[string]model.Assignment
}

func NewLibrary() *Library {
	return &Library{conditions: make(map[string]model.Assignment)}
}

// Define parses terms such as ["S1=1", "and", "B=0"]. Each term other than
// the connective ends in a two rune relation+value suffix: the name is
// everything before it and the value is the final character. Redefining a
// name replaces the earlier snippet.
func (l *Library) Define(name string, terms []string) error {
	if name == "" {
		return errors.Wrap(ErrMalformedCondition, "condition name is required")
	}
	snippet, err := ParseTerms(terms)
	if err != nil {
		return errors.Wrapf(err, "condition %s", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.conditions[name] = snippet
	return nil
}

// DefineExpr splits expr on whitespace and defines it, e.g. "A=1 and B=0".
func (l *Library) DefineExpr(name, expr string) error {
	return l.Define(name, strings.Fields(expr))
}

// ParseTerms converts equation terms into an assignment.
func ParseTerms(terms []string) (model.Assignment, error) {
	snippet := make(model.Assignment, len(terms))
	for _, term := range terms {
		if term == connective {
			continue
		}
		if utf8.RuneCountInString(term) < 3 {
			return nil, errors.Wrapf(ErrMalformedCondition, "term %q is too short", term)
		}
		_, valueSize := utf8.DecodeLastRuneInString(term)
		rest := term[:len(term)-valueSize]
		_, relopSize := utf8.DecodeLastRuneInString(rest)
		snippet[rest[:len(rest)-relopSize]] = term[len(term)-valueSize:]
	}
	return snippet, nil
}

// Lookup returns a copy of the named snippet.
func (l *Library) Lookup(name string) (model.Assignment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snippet, ok := l.conditions[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSnippetReference, "%s", name)
	}
	return snippet.Clone(), nil
}

func (l *Library) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.conditions[name]
	return ok
}

// Names returns the defined snippet names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.conditions))
	for name := range l.conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
