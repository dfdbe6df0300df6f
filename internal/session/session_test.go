package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boolnet/internal/errors"
	"boolnet/internal/hypothesis"
	"boolnet/internal/model"
	"boolnet/internal/netfile"
	"boolnet/internal/network"
	"boolnet/internal/storage"
	"boolnet/internal/synthesis"
)

const definition = `
components:
  - name: A
    rules: "0-1"
  - name: B
    rules: "2,3"
interactions:
  - [A, B, positive, "False"]
  - [B, A, negative, "True"]
  - [A, A, positive, "True"]
conditions:
  active: [A_1, and, B_1]
  idle: [A_0, and, B_0]
experiments:
  - [0, active, 5, idle]
  - [0, idle]
`

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func newStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return store
}

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	def, err := netfile.Parse([]byte(definition))
	require.NoError(t, err)
	if cfg.Now == nil {
		cfg.Now = fixedNow
	}
	s, err := FromDefinition(cfg, def)
	require.NoError(t, err)
	return s
}

func collect(t *testing.T, s *Session) []hypothesis.Step {
	t.Helper()
	var steps []hypothesis.Step
	_, err := s.Run(context.Background(), func(step hypothesis.Step) error {
		steps = append(steps, step)
		return nil
	})
	require.NoError(t, err)
	return steps
}

func TestNewGeneratesSessionID(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID())
	assert.NoError(t, err)

	named, err := New(Config{ID: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", named.ID())
}

func TestNewRejectsBadReference(t *testing.T) {
	_, err := New(Config{Reference: "sideways"})
	assert.Error(t, err)
}

func TestFromDefinitionLoadsEverything(t *testing.T) {
	s := newSession(t, Config{})

	assert.Equal(t, []string{"A", "B"}, s.Registry().Names())
	definite, optional := s.Ledger().Snapshot()
	assert.Len(t, definite, 1)
	assert.Len(t, optional, 2)
	assert.Equal(t, 2, s.Timeline().Len())
	assert.True(t, s.Library().Has("active"))
}

func TestFromDefinitionSurfacesRegistrationErrors(t *testing.T) {
	def, err := netfile.Parse([]byte(`
components:
  - name: A
    rules: "0"
interactions:
  - [A, Z, positive, "False"]
`))
	require.NoError(t, err)

	_, err = FromDefinition(Config{}, def)
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrUnknownComponent))
}

func TestRunPersistsEveryTopology(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	s := newSession(t, Config{ID: "s1", Store: store})

	summary, err := s.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{SessionID: "s1", Topologies: 4, Visited: 4}, summary)

	record, ok, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, record.TopologyCount)
	assert.Equal(t, "2024-03-01T12:00:00Z", record.CreatedAtUTC)
	assert.Equal(t, string(synthesis.ReferenceFirst), record.Reference)
	assert.Len(t, record.Experiments, 2)

	results, err := store.ListTopologyResults(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, result := range results {
		assert.Equal(t, i, result.Index)
		assert.Equal(t, storage.CurrentVersion(), result.VersionedRecord)
		assert.Len(t, result.Consistency, 4, "two components times two experiments")
		assert.Equal(t, model.VerdictUnknown, result.Consistency["B1"][3])
	}

	// Topology 0 is the definite interaction alone: A only regulates itself
	// through the default self-loop.
	assert.Len(t, results[0].Topology, 1)
	assert.Equal(t, []model.Source{{Name: "A", Sign: model.SignPositive}}, results[0].Components[0].Sources)
}

func TestRunStopsWhenVisitorAsks(t *testing.T) {
	s := newSession(t, Config{Store: newStore(t)})

	summary, err := s.Run(context.Background(), func(step hypothesis.Step) error {
		if step.Index == 1 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, summary.Stopped)
	assert.Equal(t, 2, summary.Visited)
}

func TestRunPropagatesVisitorErrors(t *testing.T) {
	s := newSession(t, Config{})
	boom := errors.New("boom")

	_, err := s.Run(context.Background(), func(hypothesis.Step) error { return boom })
	assert.True(t, errors.Is(err, boom))
}

func TestRunIsRepeatable(t *testing.T) {
	s := newSession(t, Config{})
	first := collect(t, s)
	second := collect(t, s)
	assert.Equal(t, first, second)
}

func TestParallelRunMatchesSequential(t *testing.T) {
	sequential := collect(t, newSession(t, Config{ID: "seq"}))
	parallel := collect(t, newSession(t, Config{ID: "par", Workers: 3}))

	require.Len(t, parallel, len(sequential))
	assert.Equal(t, sequential, parallel)
}

func TestRunRejectsTooManyOptional(t *testing.T) {
	s := newSession(t, Config{MaxOptional: 1})

	_, err := s.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, hypothesis.ErrTooManyOptional))
}

func TestRunHonoursCancellation(t *testing.T) {
	s := newSession(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
