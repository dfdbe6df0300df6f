package network

import (
	"strconv"
	"strings"

	"boolnet/internal/errors"
)

// maxRulesPerComponent bounds the size of a range spec.
const maxRulesPerComponent = 1 << 16

// ParseRuleSpec parses the admissible regulation conditions of a component.
// Two forms are accepted: an inclusive range "a-b" and an explicit list
// "a,b,c". Duplicates in a list are dropped; the first occurrence wins.
func ParseRuleSpec(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.Wrap(ErrMalformedSpec, "empty spec")
	}

	if strings.Contains(spec, "-") {
		if strings.Contains(spec, ",") {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q mixes range and list forms", spec)
		}
		bounds := strings.Split(spec, "-")
		if len(bounds) != 2 {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q is not a range a-b", spec)
		}
		lo, err := parseRuleID(bounds[0])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: %v", spec, err)
		}
		hi, err := parseRuleID(bounds[1])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: %v", spec, err)
		}
		if hi < lo {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: range end before start", spec)
		}
		if span := uint64(hi) - uint64(lo); span >= maxRulesPerComponent {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: range too large", spec)
		}
		rules := make([]int, 0, hi-lo+1)
		for id := lo; id <= hi; id++ {
			rules = append(rules, id)
		}
		return rules, nil
	}

	parts := strings.Split(spec, ",")
	rules := make([]int, 0, len(parts))
	seen := make(map[int]struct{}, len(parts))
	for _, part := range parts {
		id, err := parseRuleID(part)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedSpec, "%q: %v", spec, err)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rules = append(rules, id)
	}
	return rules, nil
}

func parseRuleID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("missing identifier")
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Newf("identifier %q is not an integer", raw)
	}
	return id, nil
}
