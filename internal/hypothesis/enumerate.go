package hypothesis

import (
	"boolnet/internal/errors"
	"boolnet/internal/model"
	"boolnet/internal/network"
)

// MaxOptionalLimit is the largest optional set whose enumeration size still
// fits in an int.
const MaxOptionalLimit = 62

var (
	ErrExhausted       = errors.ErrExhausted
	ErrTooManyOptional = errors.ErrTooManyOptional
)

// Count returns the number of candidate topologies for m optional
// interactions.
func Count(m int) (int, error) {
	if m < 0 {
		return 0, errors.Newf("negative optional count %d", m)
	}
	if m > MaxOptionalLimit {
		return 0, errors.Wrapf(ErrTooManyOptional, "%d optional interactions", m)
	}
	return 1 << m, nil
}

// Enumerate returns definite unioned with every subset of optional. Subsets are
// ordered by size, then lexicographically by position in optional, so the
// first topology is exactly the definite list.
func Enumerate(definite, optional []model.Interaction) ([]model.Topology, error) {
	total, err := Count(len(optional))
	if err != nil {
		return nil, err
	}
	out := make([]model.Topology, 0, total)
	for size := 0; size <= len(optional); size++ {
		forEachCombination(len(optional), size, func(picked []int) {
			topology := make(model.Topology, 0, len(definite)+size)
			topology = append(topology, definite...)
			for _, idx := range picked {
				topology = append(topology, optional[idx])
			}
			out = append(out, topology)
		})
	}
	return out, nil
}

// forEachCombination calls fn with every size-k combination of [0,n) in
// lexicographic order. fn must not retain picked.
func forEachCombination(n, k int, fn func(picked []int)) {
	if k > n {
		return
	}
	picked := make([]int, k)
	for i := range picked {
		picked[i] = i
	}
	for {
		fn(picked)
		i := k - 1
		for i >= 0 && picked[i] == i+n-k {
			i--
		}
		if i < 0 {
			return
		}
		picked[i]++
		for j := i + 1; j < k; j++ {
			picked[j] = picked[j-1] + 1
		}
	}
}

// Install wires topology into registry: every component is reset, each
// interaction installed on its target, and components left without sources
// receive a positive self-loop. It returns the names that got a self-loop.
func Install(registry *network.Registry, topology model.Topology) ([]string, error) {
	registry.ResetAll()
	for _, i := range topology {
		if err := registry.InstallSource(i.Target, i.Source, i.Sign, i.Optional); err != nil {
			return nil, errors.Wrapf(err, "install %s", i)
		}
	}
	var selfLoops []string
	for _, name := range registry.Names() {
		installed, err := registry.DefaultSelfLoop(name)
		if err != nil {
			return nil, err
		}
		if installed {
			selfLoops = append(selfLoops, name)
		}
	}
	return selfLoops, nil
}
