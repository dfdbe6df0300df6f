package network

import (
	"fmt"
	"strings"
	"sync"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

// Registry owns the components of a regulatory network. Components are kept
// in registration order and addressed by name; each component carries an
// ordered list of installed sources. Cycles, including self-regulation, are
// legal, so the graph is stored as adjacency by name rather than by pointer.
type Registry struct {
	mu    sync.RWMutex
	nodes []node
	index map[string]int
}

type node struct {
	name        string
	rules       []int
	sources     []model.Source
	sourceIndex map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register parses spec and adds a component named name.
func (r *Registry) Register(name, spec string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Wrap(ErrMalformedSpec, "component name is required")
	}
	rules, err := ParseRuleSpec(spec)
	if err != nil {
		return errors.Wrapf(err, "register %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[name]; exists {
		return errors.Wrapf(ErrDuplicateComponent, "%s", name)
	}
	r.index[name] = len(r.nodes)
	r.nodes = append(r.nodes, node{
		name:        name,
		rules:       rules,
		sourceIndex: make(map[string]int),
	})
	return nil
}

// InstallSource wires source into target. Installing the same source twice
// replaces the earlier entry in place.
func (r *Registry) InstallSource(target, source string, sign model.Sign, optional bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.lookupLocked(target)
	if err != nil {
		return err
	}
	entry := model.Source{Name: source, Sign: sign, Optional: optional}
	if pos, ok := n.sourceIndex[source]; ok {
		n.sources[pos] = entry
		return nil
	}
	n.sourceIndex[source] = len(n.sources)
	n.sources = append(n.sources, entry)
	return nil
}

// Reset clears every source installed on target.
func (r *Registry) Reset(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.lookupLocked(target)
	if err != nil {
		return err
	}
	n.clear()
	return nil
}

// ResetAll clears the sources of every component.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.nodes {
		r.nodes[i].clear()
	}
}

// DefaultSelfLoop gives target a positive, non-optional self-regulation when
// it has no sources. It reports whether the self-loop was installed.
func (r *Registry) DefaultSelfLoop(target string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.lookupLocked(target)
	if err != nil {
		return false, err
	}
	if len(n.sources) > 0 {
		return false, nil
	}
	n.sourceIndex[n.name] = 0
	n.sources = append(n.sources, model.Source{Name: n.name, Sign: model.SignPositive})
	return true, nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[name]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.nodes)
}

// Names returns component names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		names[i] = n.name
	}
	return names
}

// Component returns a copy of the named component.
func (r *Registry) Component(name string) (model.Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[name]
	if !ok {
		return model.Component{}, false
	}
	return r.nodes[pos].snapshot(), true
}

// Components returns copies of every component in registration order.
func (r *Registry) Components() []model.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Component, len(r.nodes))
	for i := range r.nodes {
		out[i] = r.nodes[i].snapshot()
	}
	return out
}

// Clone returns an independent copy, used to give parallel workers their own
// wiring state.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := &Registry{
		nodes: make([]node, len(r.nodes)),
		index: make(map[string]int, len(r.index)),
	}
	for name, pos := range r.index {
		clone.index[name] = pos
	}
	for i, n := range r.nodes {
		c := node{
			name:        n.name,
			rules:       append([]int(nil), n.rules...),
			sources:     append([]model.Source(nil), n.sources...),
			sourceIndex: make(map[string]int, len(n.sourceIndex)),
		}
		for k, v := range n.sourceIndex {
			c.sourceIndex[k] = v
		}
		clone.nodes[i] = c
	}
	return clone
}

// Describe renders every component with its rules and installed sources.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, c := range r.Components() {
		fmt.Fprintf(&b, "%s rules=%v", c.Name, c.Rules)
		if len(c.Sources) == 0 {
			b.WriteString(" sources={}\n")
			continue
		}
		b.WriteString(" sources={")
		for i, src := range c.Sources {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s:(%s, %t)", src.Name, src.Sign, src.Optional)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func (r *Registry) lookupLocked(name string) (*node, error) {
	pos, ok := r.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownComponent, "%s", name)
	}
	return &r.nodes[pos], nil
}

func (n *node) clear() {
	n.sources = nil
	n.sourceIndex = make(map[string]int)
}

func (n *node) snapshot() model.Component {
	return model.Component{
		Name:    n.name,
		Rules:   append([]int(nil), n.rules...),
		Sources: append([]model.Source(nil), n.sources...),
	}
}
