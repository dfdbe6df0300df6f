package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

func TestRecordSplitsDefiniteAndOptional(t *testing.T) {
	r := newTestRegistry(t, "A", "B", "C")
	l := NewLedger(r)

	require.NoError(t, l.Record("A", "B", model.SignPositive, false))
	require.NoError(t, l.Record("C", "B", model.SignNegative, true))
	assert.Equal(t, uint64(2), l.Version())

	definite, optional := l.Snapshot()
	assert.Equal(t, []model.Interaction{{Source: "A", Target: "B", Sign: model.SignPositive}}, definite)
	assert.Equal(t, []model.Interaction{{Source: "C", Target: "B", Sign: model.SignNegative, Optional: true}}, optional)

	b, _ := r.Component("B")
	assert.Equal(t, []model.Source{
		{Name: "A", Sign: model.SignPositive},
		{Name: "C", Sign: model.SignNegative, Optional: true},
	}, b.Sources)
}

func TestRecordUnknownComponentLeavesLedgerUntouched(t *testing.T) {
	r := newTestRegistry(t, "A")
	l := NewLedger(r)

	assert.True(t, errors.Is(l.Record("A", "Z", model.SignPositive, false), ErrUnknownComponent))
	assert.True(t, errors.Is(l.Record("Z", "A", model.SignPositive, false), ErrUnknownComponent))

	definite, optional := l.Snapshot()
	assert.Empty(t, definite)
	assert.Empty(t, optional)
	assert.Zero(t, l.Version())
}

func TestRecordFieldsOptionalMarker(t *testing.T) {
	r := newTestRegistry(t, "A", "B")
	l := NewLedger(r)

	require.NoError(t, l.RecordFields([]string{"A", "B", "positive", "True"}))
	require.NoError(t, l.RecordFields([]string{"B", "A", "negative", "true"}))
	require.NoError(t, l.RecordFields([]string{"A", "A", "positive", "False"}))

	definite, optional := l.Snapshot()
	assert.Len(t, optional, 1)
	assert.Len(t, definite, 2)
	assert.Equal(t, model.SignNegative, definite[0].Sign)
}

func TestRecordFieldsMalformed(t *testing.T) {
	l := NewLedger(newTestRegistry(t, "A", "B"))
	for _, fields := range [][]string{
		{"A", "B", "positive"},
		{"A", "B", "sideways", "True"},
		{"", "B", "positive", "True"},
	} {
		err := l.RecordFields(fields)
		assert.True(t, errors.Is(err, ErrMalformedInteraction), "%v", fields)
	}
}

func TestOptionalEdges(t *testing.T) {
	r := newTestRegistry(t, "A", "B", "C")
	l := NewLedger(r)
	require.NoError(t, l.Record("A", "B", model.SignPositive, true))
	require.NoError(t, l.Record("C", "B", model.SignNegative, true))
	require.NoError(t, l.Record("A", "C", model.SignPositive, true))
	require.NoError(t, l.Record("C", "A", model.SignPositive, false))

	assert.Equal(t, []model.Edge{
		{Source: "A", Sign: model.SignPositive},
		{Source: "C", Sign: model.SignNegative},
	}, l.OptionalEdges("B"))
	assert.Nil(t, l.OptionalEdges("A"))
}
