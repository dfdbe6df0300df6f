package network

import (
	"fmt"
	"strings"
	"sync"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

// OptionalMarker is the literal that flags an interaction record as possible.
const OptionalMarker = "True"

// Ledger records the declared interactions of a network, split into definite
// and optional lists. Recording also wires the interaction into the registry
// so a freshly declared network is usable before any topology is installed.
type Ledger struct {
	registry *Registry

	mu       sync.RWMutex
	definite []model.Interaction
	optional []model.Interaction
	version  uint64
}

func NewLedger(registry *Registry) *Ledger {
	return &Ledger{registry: registry}
}

// Record stores an interaction and installs it on the target component.
func (l *Ledger) Record(source, target string, sign model.Sign, possible bool) error {
	if l.registry == nil {
		return errors.New("ledger has no registry")
	}
	if !l.registry.Has(source) {
		return errors.Wrapf(ErrUnknownComponent, "interaction source %s", source)
	}
	if err := l.registry.InstallSource(target, source, sign, possible); err != nil {
		return errors.Wrapf(err, "interaction %s -> %s", source, target)
	}

	interaction := model.Interaction{Source: source, Target: target, Sign: sign, Optional: possible}

	l.mu.Lock()
	defer l.mu.Unlock()

	if possible {
		l.optional = append(l.optional, interaction)
	} else {
		l.definite = append(l.definite, interaction)
	}
	l.version++
	return nil
}

// RecordFields records an interaction given as the external 4-tuple
// (source, target, sign, marker). The marker is OptionalMarker for a possible
// interaction; any other value means definite.
func (l *Ledger) RecordFields(fields []string) error {
	source, target, sign, possible, err := ParseInteractionFields(fields)
	if err != nil {
		return err
	}
	return l.Record(source, target, sign, possible)
}

// ParseInteractionFields converts the string-typed interaction record into
// typed values.
func ParseInteractionFields(fields []string) (string, string, model.Sign, bool, error) {
	if len(fields) != 4 {
		return "", "", 0, false, errors.Wrapf(ErrMalformedInteraction, "expected 4 fields, got %d", len(fields))
	}
	source := strings.TrimSpace(fields[0])
	target := strings.TrimSpace(fields[1])
	if source == "" || target == "" {
		return "", "", 0, false, errors.Wrap(ErrMalformedInteraction, "source and target are required")
	}
	sign, ok := model.ParseSign(fields[2])
	if !ok {
		return "", "", 0, false, errors.Wrapf(ErrMalformedInteraction, "unknown sign %q", fields[2])
	}
	return source, target, sign, fields[3] == OptionalMarker, nil
}

// Snapshot returns copies of the definite and optional lists.
func (l *Ledger) Snapshot() (definite, optional []model.Interaction) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]model.Interaction(nil), l.definite...), append([]model.Interaction(nil), l.optional...)
}

// Version increases on every recorded interaction.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.version
}

// OptionalEdges lists the (source, sign) pairs of optional interactions that
// target the named component, in recording order.
func (l *Ledger) OptionalEdges(target string) []model.Edge {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var edges []model.Edge
	for _, i := range l.optional {
		if i.Target == target {
			edges = append(edges, model.Edge{Source: i.Source, Sign: i.Sign})
		}
	}
	return edges
}

func (l *Ledger) Registry() *Registry {
	return l.registry
}

func (l *Ledger) Describe() string {
	definite, optional := l.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "definite interactions (%d):\n", len(definite))
	for _, i := range definite {
		fmt.Fprintf(&b, "  %s\n", i)
	}
	fmt.Fprintf(&b, "possible interactions (%d):\n", len(optional))
	for _, i := range optional {
		fmt.Fprintf(&b, "  %s\n", i)
	}
	return b.String()
}
