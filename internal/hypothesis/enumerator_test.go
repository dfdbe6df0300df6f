package hypothesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boolnet/internal/errors"
	"boolnet/internal/model"
	"boolnet/internal/network"
)

type countingSynth struct {
	registry *network.Registry
	calls    int
	fail     error
}

func (s *countingSynth) Synthesize(context.Context) (model.ConsistencyMap, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	out := model.ConsistencyMap{}
	for _, c := range s.registry.Components() {
		verdicts := map[int]model.Verdict{}
		for _, id := range c.Rules {
			verdicts[id] = model.VerdictConsistent
		}
		// Record the number of sources as an extra pseudo-rule so tests can
		// see which wiring was active during synthesis.
		verdicts[-len(c.Sources)] = model.VerdictUnknown
		out[model.ConsistencyKey(c.Name, 0)] = verdicts
	}
	return out, nil
}

func newNetwork(t *testing.T) (*network.Registry, *network.Ledger) {
	t.Helper()
	reg := network.NewRegistry()
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, reg.Register(name, "1"))
	}
	ledger := network.NewLedger(reg)
	require.NoError(t, ledger.Record("A", "B", model.SignPositive, false))
	require.NoError(t, ledger.Record("B", "C", model.SignNegative, true))
	require.NoError(t, ledger.Record("C", "A", model.SignPositive, true))
	return reg, ledger
}

func componentSources(t *testing.T, reg *network.Registry, name string) []model.Source {
	t.Helper()
	c, ok := reg.Component(name)
	require.True(t, ok)
	return c.Sources
}

func TestAdvanceInstallsEveryTopologyThenExhausts(t *testing.T) {
	reg, ledger := newNetwork(t)
	synth := &countingSynth{registry: reg}
	e, err := New(reg, ledger, synth)
	require.NoError(t, err)

	n, err := e.Len()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ctx := context.Background()
	step, err := e.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, step.Index)
	assert.Equal(t, model.Topology{{Source: "A", Target: "B", Sign: model.SignPositive}}, step.Topology)
	assert.Equal(t, []string{"A", "C"}, step.SelfLoops)
	assert.Equal(t, []model.Source{{Name: "A", Sign: model.SignPositive}}, componentSources(t, reg, "A"))
	assert.Equal(t, []model.Source{{Name: "A", Sign: model.SignPositive}}, componentSources(t, reg, "B"))
	assert.Equal(t, []model.Source{{Name: "C", Sign: model.SignPositive}}, componentSources(t, reg, "C"))
	assert.Contains(t, step.Consistency["B0"], -1)

	for i := 1; i < 4; i++ {
		step, err = e.Advance(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, step.Index)
	}
	assert.Equal(t, []model.Source{{Name: "C", Sign: model.SignPositive, Optional: true}}, componentSources(t, reg, "A"))
	assert.Equal(t, []model.Source{{Name: "B", Sign: model.SignNegative, Optional: true}}, componentSources(t, reg, "C"))
	assert.Empty(t, step.SelfLoops)

	hasNext, err := e.HasNext()
	require.NoError(t, err)
	assert.False(t, hasNext)

	_, err = e.Advance(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsExhausted(err))
	assert.Equal(t, 4, synth.calls)
}

func TestEveryComponentHasASourceAfterInstall(t *testing.T) {
	reg, ledger := newNetwork(t)
	e, err := New(reg, ledger, nil)
	require.NoError(t, err)

	for {
		step, err := e.Advance(context.Background())
		if errors.IsExhausted(err) {
			break
		}
		require.NoError(t, err)
		assert.Nil(t, step.Consistency)
		for _, c := range reg.Components() {
			require.NotEmpty(t, c.Sources, "component %s", c.Name)
			if len(c.Sources) == 1 && c.Sources[0].Name == c.Name {
				assert.Equal(t, model.SignPositive, c.Sources[0].Sign)
				assert.False(t, c.Sources[0].Optional)
			}
		}
	}
}

func TestInstallRoundTrip(t *testing.T) {
	reg, ledger := newNetwork(t)
	definite, optional := ledger.Snapshot()
	topologies, err := Enumerate(definite, optional)
	require.NoError(t, err)

	for _, topo := range topologies {
		_, err := Install(reg, topo)
		require.NoError(t, err)
		first := reg.Components()

		reg.ResetAll()
		_, err = Install(reg, topo)
		require.NoError(t, err)
		assert.Equal(t, first, reg.Components())
	}
}

func TestInstallUnknownTarget(t *testing.T) {
	reg, _ := newNetwork(t)
	_, err := Install(reg, model.Topology{{Source: "A", Target: "Q"}})
	assert.True(t, errors.Is(err, network.ErrUnknownComponent))
}

func TestEnumerationRefreshesWhenLedgerChanges(t *testing.T) {
	reg, ledger := newNetwork(t)
	e, err := New(reg, ledger, nil)
	require.NoError(t, err)

	_, err = e.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, e.Cursor())

	require.NoError(t, ledger.Record("A", "C", model.SignPositive, true))
	n, err := e.Len()
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 0, e.Cursor())

	count := 0
	for {
		_, err := e.Advance(context.Background())
		if errors.IsExhausted(err) {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 8, count)

	e.Rewind()
	hasNext, err := e.HasNext()
	require.NoError(t, err)
	assert.True(t, hasNext)
}

func TestMaxOptional(t *testing.T) {
	reg, ledger := newNetwork(t)
	e, err := New(reg, ledger, nil, WithMaxOptional(1))
	require.NoError(t, err)

	_, err = e.Advance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyOptional))
	assert.False(t, errors.IsExhausted(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestSynthesisFailureKeepsCursor(t *testing.T) {
	reg, ledger := newNetwork(t)
	boom := errors.New("evaluator exploded")
	synth := &countingSynth{registry: reg, fail: boom}
	e, err := New(reg, ledger, synth)
	require.NoError(t, err)

	_, err = e.Advance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 0, e.Cursor())

	synth.fail = nil
	step, err := e.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, step.Index)
}

func TestTopologiesReturnsCopies(t *testing.T) {
	reg, ledger := newNetwork(t)
	e, err := New(reg, ledger, nil)
	require.NoError(t, err)

	all, err := e.Topologies()
	require.NoError(t, err)
	all[0][0].Source = "Z"

	again, err := e.Topologies()
	require.NoError(t, err)
	assert.Equal(t, "A", again[0][0].Source)
}
