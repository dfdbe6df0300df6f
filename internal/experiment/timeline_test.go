package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

func newTestTimeline(t *testing.T) *Timeline {
	t.Helper()
	lib := NewLibrary()
	require.NoError(t, lib.Define("condA", []string{"X=1"}))
	require.NoError(t, lib.Define("condB", []string{"X=0", "and", "Y=1"}))
	require.NoError(t, lib.Define("condC", []string{"Z=0"}))
	return NewTimeline(lib)
}

func TestAppendBuildsOrderedTimesteps(t *testing.T) {
	tl := newTestTimeline(t)

	idx, err := tl.Append([]string{"0", "condA", "18", "condB"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	exp, err := tl.Experiment(0)
	require.NoError(t, err)
	assert.Equal(t, model.Experiment{
		{Label: "0", Assignment: model.Assignment{"X": "1"}},
		{Label: "18", Assignment: model.Assignment{"X": "0", "Y": "1"}},
	}, exp)
}

func TestAppendMergesLaterSnippetsOverEarlier(t *testing.T) {
	tl := newTestTimeline(t)
	_, err := tl.Append([]string{"5", "condA", "condC", "condB"})
	require.NoError(t, err)

	exp, _ := tl.Experiment(0)
	require.Len(t, exp, 1)
	assert.Equal(t, model.Assignment{"X": "0", "Y": "1", "Z": "0"}, exp[0].Assignment)
}

func TestAppendEmptyTimestampAndRepeats(t *testing.T) {
	tl := newTestTimeline(t)
	_, err := tl.Append([]string{"0", "10", "condA", "0", "condC"})
	require.NoError(t, err)

	exp, _ := tl.Experiment(0)
	assert.Equal(t, model.Experiment{
		{Label: "0", Assignment: model.Assignment{"Z": "0"}},
		{Label: "10", Assignment: model.Assignment{"X": "1"}},
	}, exp)
}

func TestAppendKeepsExperimentsIndependent(t *testing.T) {
	tl := newTestTimeline(t)
	_, err := tl.Append([]string{"0", "condA"})
	require.NoError(t, err)
	idx, err := tl.AppendExpr("0 condB")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, tl.Len())

	all := tl.Experiments()
	assert.Equal(t, "1", all[0][0].Assignment["X"])
	assert.Equal(t, "0", all[1][0].Assignment["X"])
}

func TestAppendRejectsNonNumericStart(t *testing.T) {
	tl := newTestTimeline(t)
	for _, tokens := range [][]string{nil, {"condA", "0"}, {"-1", "condA"}, {"1.5"}} {
		_, err := tl.Append(tokens)
		assert.True(t, errors.Is(err, ErrMalformedTimeline), "%v", tokens)
	}
	assert.Zero(t, tl.Len())
}

func TestAppendUnknownSnippet(t *testing.T) {
	tl := newTestTimeline(t)
	_, err := tl.Append([]string{"0", "condA", "nope"})
	assert.True(t, errors.Is(err, ErrUnknownSnippetReference))
	assert.Zero(t, tl.Len())
}

func TestExperimentOutOfRange(t *testing.T) {
	_, err := newTestTimeline(t).Experiment(0)
	assert.Error(t, err)
}
