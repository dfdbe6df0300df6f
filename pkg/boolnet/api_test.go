package boolnet

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boolnet/internal/errors"
	"boolnet/internal/hypothesis"
	"boolnet/internal/model"
	"boolnet/internal/synthesis"
)

const network = `
components:
  - name: X
    rules: "1-2"
  - name: Y
    rules: "5"
interactions:
  - [X, Y, positive, "False"]
  - [Y, X, negative, "True"]
  - [Y, Y, negative, "True"]
conditions:
  up: [X_1]
  down: [X_0, and, Y_1]
experiments:
  - [0, up, 18, down]
`

func newClient(t *testing.T, factory EvaluatorFactory) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := Open(context.Background(), Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "artifacts"),
		ExportsDir:   filepath.Join(base, "exports"),
		Factory:      factory,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, base
}

func TestClientEnumerateSessionsAndExport(t *testing.T) {
	ctx := context.Background()
	client, base := newClient(t, nil)

	path := filepath.Join(base, "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(network), 0o644))

	summary, err := client.Enumerate(ctx, EnumerateRequest{DefinitionPath: path, SessionID: "s-1"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", summary.SessionID)
	assert.Equal(t, 4, summary.Topologies)
	assert.Equal(t, 4, summary.Visited)
	assert.False(t, summary.Stopped)
	assert.FileExists(t, filepath.Join(summary.ArtifactsDir, "consistency.csv"))
	assert.FileExists(t, filepath.Join(summary.ArtifactsDir, "network.yaml"))

	sessions, err := client.Sessions(ctx, SessionsRequest{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, SessionItem{
		SessionID:    "s-1",
		CreatedAtUTC: sessions[0].CreatedAtUTC,
		Components:   2,
		Definite:     1,
		Optional:     2,
		Experiments:  1,
		Topologies:   4,
		Reference:    "first",
	}, sessions[0])

	results, err := client.Topologies(ctx, TopologiesRequest{Latest: true})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, model.VerdictUnknown, results[3].Consistency["X0"][2])
	assert.Len(t, results[3].Topology, 3)

	limited, err := client.Topologies(ctx, TopologiesRequest{SessionID: "s-1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, "s-1", exported.SessionID)
	assert.Equal(t, filepath.Join(base, "exports", "s-1"), exported.Directory)
	assert.FileExists(t, filepath.Join(exported.Directory, "session.json"))
}

func TestClientEnumerateLimitAndVisit(t *testing.T) {
	client, _ := newClient(t, nil)

	var seen []int
	summary, err := client.Enumerate(context.Background(), EnumerateRequest{
		Source: []byte(network),
		Limit:  3,
		Visit: func(result TopologyResult) error {
			seen = append(seen, result.Index)
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, summary.Stopped)
	assert.Equal(t, 3, summary.Visited)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.NotEmpty(t, summary.SessionID)
}

func TestClientEnumerateUsesFactory(t *testing.T) {
	var (
		mu         sync.Mutex
		references []string
	)
	factory := synthesis.FactoryFunc(func(component model.Component, reference model.Experiment, edges []model.Edge) (Evaluator, error) {
		mu.Lock()
		references = append(references, reference[0].Label)
		mu.Unlock()
		return synthesis.EvalFunc(func(step int) (map[int]model.Verdict, error) {
			out := map[int]model.Verdict{}
			for _, rule := range component.Rules {
				out[rule] = model.VerdictConsistent
			}
			return out, nil
		}), nil
	})
	client, _ := newClient(t, factory)

	summary, err := client.Enumerate(context.Background(), EnumerateRequest{
		Source:        []byte(network),
		OptionalAware: true,
		Workers:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Visited)
	assert.Len(t, references, 8, "one evaluator per component per topology")

	results, err := client.Topologies(context.Background(), TopologiesRequest{SessionID: summary.SessionID})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, results[0].Consistency.Consistent("Y0"))
}

func TestClientEnumerateValidatesRequest(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t, nil)

	_, err := client.Enumerate(ctx, EnumerateRequest{})
	assert.Error(t, err)

	_, err = client.Enumerate(ctx, EnumerateRequest{Source: []byte(network), DefinitionPath: "x.yaml"})
	assert.Error(t, err)

	_, err = client.Enumerate(ctx, EnumerateRequest{Source: []byte(network), Reference: "middle"})
	assert.Error(t, err)

	_, err = client.Enumerate(ctx, EnumerateRequest{Source: []byte(network), MaxOptional: 1})
	assert.True(t, errors.Is(err, hypothesis.ErrTooManyOptional))
}

func TestClientExportRequiresSelection(t *testing.T) {
	client, _ := newClient(t, nil)

	_, err := client.Export(context.Background(), ExportRequest{})
	assert.Error(t, err)
	_, err = client.Export(context.Background(), ExportRequest{SessionID: "a", Latest: true})
	assert.Error(t, err)
	_, err = client.Export(context.Background(), ExportRequest{Latest: true})
	assert.Error(t, err, "nothing to export yet")
}

func TestClientTopologiesUnknownSession(t *testing.T) {
	client, _ := newClient(t, nil)

	_, err := client.Topologies(context.Background(), TopologiesRequest{SessionID: "missing"})
	assert.Error(t, err)
	_, err = client.Topologies(context.Background(), TopologiesRequest{Latest: true})
	assert.Error(t, err)
}

func TestClientTopologiesReadsArtifactsOfEarlierRuns(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	opts := Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "artifacts"),
		ExportsDir:   filepath.Join(base, "exports"),
	}

	first, err := Open(ctx, opts)
	require.NoError(t, err)
	_, err = first.Enumerate(ctx, EnumerateRequest{Source: []byte(network), SessionID: "earlier"})
	require.NoError(t, err)
	want, err := first.Topologies(ctx, TopologiesRequest{SessionID: "earlier"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(ctx, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	sessions, err := second.Sessions(ctx, SessionsRequest{})
	require.NoError(t, err)
	assert.Empty(t, sessions)

	got, err := second.Topologies(ctx, TopologiesRequest{Latest: true})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, want, got)

	limited, err := second.Topologies(ctx, TopologiesRequest{SessionID: "earlier", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 0, limited[0].Index)
}

func TestClientDescribe(t *testing.T) {
	client, _ := newClient(t, nil)

	desc, err := client.Describe(context.Background(), DescribeRequest{Source: []byte(network)})
	require.NoError(t, err)
	assert.Equal(t, 4, desc.Topologies)
	assert.Equal(t, 1, desc.Experiments)
	assert.Equal(t, []string{"down", "up"}, desc.Conditions)
	assert.Contains(t, desc.Components, "X rules=[1 2]")
	assert.Contains(t, desc.Interactions, "Y ---> X (optional)")
}

func TestCount(t *testing.T) {
	n, err := Count(3)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}
