package model

import (
	"sort"
	"strconv"
	"strings"

	"boolnet/internal/errors"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Sign is the effect a regulator has on its target.
type Sign int8

const (
	SignPositive Sign = iota
	SignNegative
)

func (s Sign) String() string {
	switch s {
	case SignPositive:
		return "positive"
	case SignNegative:
		return "negative"
	default:
		return "sign(" + strconv.Itoa(int(s)) + ")"
	}
}

// Symbol renders the sign as "+" or "-".
func (s Sign) Symbol() string {
	if s == SignNegative {
		return "-"
	}
	return "+"
}

func (s Sign) MarshalText() ([]byte, error) {
	if s != SignPositive && s != SignNegative {
		return nil, errors.Newf("invalid sign %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Sign) UnmarshalText(text []byte) error {
	parsed, ok := ParseSign(string(text))
	if !ok {
		return errors.Newf("invalid sign %q", string(text))
	}
	*s = parsed
	return nil
}

// ParseSign accepts positive/negative in any case and the shorthands +/-.
func ParseSign(raw string) (Sign, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "+", "pos":
		return SignPositive, true
	case "negative", "-", "neg":
		return SignNegative, true
	default:
		return 0, false
	}
}

// Source is one regulator wired into a component.
type Source struct {
	Name     string `json:"name"`
	Sign     Sign   `json:"sign"`
	Optional bool   `json:"optional"`
}

// Component is a named node with its admissible regulation conditions and the
// regulators installed by the current topology.
type Component struct {
	Name    string   `json:"name"`
	Rules   []int    `json:"rules"`
	Sources []Source `json:"sources,omitempty"`
}

func (c Component) Source(name string) (Source, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}

// Interaction is a directed signed edge. Optional interactions are only
// present in some candidate topologies.
type Interaction struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Sign     Sign   `json:"sign"`
	Optional bool   `json:"optional"`
}

func (i Interaction) String() string {
	s := i.Source + " -" + i.Sign.Symbol() + "-> " + i.Target
	if i.Optional {
		s += " (optional)"
	}
	return s
}

// Edge is a (source, sign) pair touching a component.
type Edge struct {
	Source string `json:"source"`
	Sign   Sign   `json:"sign"`
}

// Topology is one candidate selection of active interactions.
type Topology []Interaction

func (t Topology) Clone() Topology {
	if t == nil {
		return nil
	}
	out := make(Topology, len(t))
	copy(out, t)
	return out
}

// Assignment maps component names to observed values ("0"/"1").
type Assignment map[string]string

func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into a; keys already present are overwritten.
func (a Assignment) Merge(other Assignment) {
	for k, v := range other {
		a[k] = v
	}
}

// Timestep is one observation of an experiment.
type Timestep struct {
	Label      string     `json:"label"`
	Assignment Assignment `json:"assignment"`
}

// Experiment is an ordered time series of observations.
type Experiment []Timestep

func (e Experiment) Clone() Experiment {
	if e == nil {
		return nil
	}
	out := make(Experiment, len(e))
	for i, step := range e {
		out[i] = Timestep{Label: step.Label, Assignment: step.Assignment.Clone()}
	}
	return out
}

// Verdict is the ternary consistency result reported for one regulation condition.
type Verdict int8

const (
	VerdictInconsistent Verdict = iota
	VerdictConsistent
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictInconsistent:
		return "inconsistent"
	case VerdictConsistent:
		return "consistent"
	case VerdictUnknown:
		return "unknown"
	default:
		return "verdict(" + strconv.Itoa(int(v)) + ")"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	switch v {
	case VerdictInconsistent, VerdictConsistent, VerdictUnknown:
		return []byte(v.String()), nil
	default:
		return nil, errors.Newf("invalid verdict %d", int(v))
	}
}

func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "inconsistent", "false":
		*v = VerdictInconsistent
	case "consistent", "true":
		*v = VerdictConsistent
	case "unknown":
		*v = VerdictUnknown
	default:
		return errors.Newf("invalid verdict %q", string(text))
	}
	return nil
}

// ConsistencyMap is keyed by component name followed by the step index
// ("X0", "X1", ...) and maps each regulation condition to its verdict.
type ConsistencyMap map[string]map[int]Verdict

// ConsistencyKey builds the key used by ConsistencyMap.
func ConsistencyKey(component string, step int) string {
	return component + strconv.Itoa(step)
}

// Consistent returns the identifiers that were not ruled out for key, in
// ascending order.
func (m ConsistencyMap) Consistent(key string) []int {
	verdicts := m[key]
	out := make([]int, 0, len(verdicts))
	for id, v := range verdicts {
		if v != VerdictInconsistent {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Session describes one enumeration over a registered network.
type Session struct {
	VersionedRecord
	ID            string        `json:"id"`
	CreatedAtUTC  string        `json:"created_at_utc"`
	Components    []Component   `json:"components"`
	Definite      []Interaction `json:"definite"`
	Optional      []Interaction `json:"optional"`
	Experiments   []Experiment  `json:"experiments"`
	TopologyCount int           `json:"topology_count"`
	Reference     string        `json:"reference"`
	OptionalAware bool          `json:"optional_aware"`
}

// TopologyResult is the payload produced for one installed topology.
type TopologyResult struct {
	VersionedRecord
	SessionID   string         `json:"session_id"`
	Index       int            `json:"index"`
	Topology    Topology       `json:"topology"`
	Components  []Component    `json:"components"`
	Consistency ConsistencyMap `json:"consistency"`
}
