// Package netfile reads network definition documents: components, the
// interaction list, named condition snippets and experiment timelines.
//
//	components:
//	  - name: A
//	    rules: "0-3"
//	interactions:
//	  - [A, B, positive, "False"]
//	  - {source: B, target: A, sign: negative, optional: true}
//	conditions:
//	  high: [A_1, and, B_1]
//	  low: "A_0 and B_0"
//	experiments:
//	  - [0, high, 1, low]
//	  - "0 low 2 high"
package netfile

import (
	"bytes"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"boolnet/internal/errors"
	"boolnet/internal/network"
)

var definitionValidate = validator.New()

type Definition struct {
	Components   []ComponentDef       `yaml:"components" validate:"required,min=1,dive"`
	Interactions []InteractionDef     `yaml:"interactions"`
	Conditions   map[string]TokenList `yaml:"conditions"`
	Experiments  []TokenList          `yaml:"experiments"`
}

type ComponentDef struct {
	Name  string `yaml:"name" validate:"required"`
	Rules string `yaml:"rules" validate:"required"`
}

// InteractionDef is the four-field interaction record (source, target, sign,
// optional marker). It decodes from either a sequence or a mapping.
type InteractionDef struct {
	Fields []string
}

// TokenList decodes from a sequence of scalars or from a single
// whitespace-separated string.
type TokenList []string

func (l *TokenList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		tokens := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return errors.Newf("line %d: token must be a scalar", item.Line)
			}
			tokens = append(tokens, item.Value)
		}
		*l = tokens
		return nil
	default:
		return errors.Newf("line %d: expected a token list or string", node.Line)
	}
}

func (d *InteractionDef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var tokens TokenList
		if err := tokens.UnmarshalYAML(node); err != nil {
			return err
		}
		d.Fields = tokens
		return nil
	case yaml.MappingNode:
		var raw struct {
			Source   string `yaml:"source"`
			Target   string `yaml:"target"`
			Sign     string `yaml:"sign"`
			Optional bool   `yaml:"optional"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		marker := "False"
		if raw.Optional {
			marker = network.OptionalMarker
		}
		d.Fields = []string{raw.Source, raw.Target, raw.Sign, marker}
		return nil
	default:
		return errors.Newf("line %d: interaction must be a sequence or mapping", node.Line)
	}
}

// Load reads and parses a definition file.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, errors.Wrapf(err, "read network definition %s", path)
	}
	def, err := Parse(data)
	if err != nil {
		return Definition{}, errors.Wrapf(err, "parse %s", path)
	}
	return def, nil
}

// Parse decodes a definition document. Unknown top-level keys are rejected.
func Parse(data []byte) (Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, errors.Wrap(network.ErrMalformedSpec, "empty network definition")
		}
		return Definition{}, errors.Wrap(err, "decode network definition")
	}
	if err := definitionValidate.Struct(def); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return Definition{}, errors.Wrapf(network.ErrMalformedSpec, "%s failed %q", first.Namespace(), first.Tag())
		}
		return Definition{}, errors.Wrap(err, "validate network definition")
	}
	return def, nil
}

// Sink receives the contents of a definition in dependency order.
type Sink interface {
	Register(name, rules string) error
	RecordFields(fields []string) error
	DefineCondition(name string, terms []string) error
	AppendExperiment(tokens []string) (int, error)
}

// Apply feeds def into sink: components, then interactions, then conditions
// (by name), then experiments. It stops at the first failure.
func Apply(def Definition, sink Sink) error {
	for i, c := range def.Components {
		if err := sink.Register(c.Name, c.Rules); err != nil {
			return errors.Wrapf(err, "component %d (%s)", i, c.Name)
		}
	}
	for i, in := range def.Interactions {
		if err := sink.RecordFields(in.Fields); err != nil {
			return errors.Wrapf(err, "interaction %d", i)
		}
	}
	names := make([]string, 0, len(def.Conditions))
	for name := range def.Conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := sink.DefineCondition(name, def.Conditions[name]); err != nil {
			return errors.Wrapf(err, "condition %s", name)
		}
	}
	for i, tokens := range def.Experiments {
		if _, err := sink.AppendExperiment(tokens); err != nil {
			return errors.Wrapf(err, "experiment %d", i)
		}
	}
	return nil
}

// Marshal renders def back to YAML. Interactions are written as sequences.
func Marshal(def Definition) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(def); err != nil {
		return nil, errors.Wrap(err, "encode network definition")
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d InteractionDef) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, f := range d.Fields {
		node.Content = append(node.Content, scalar(f))
	}
	return node, nil
}

func (l TokenList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, token := range l {
		node.Content = append(node.Content, scalar(token))
	}
	return node, nil
}

func scalar(value string) *yaml.Node {
	// The encoder quotes values that would otherwise resolve to a non-string.
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
