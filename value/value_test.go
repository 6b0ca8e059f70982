package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDenotableRecordRoundTrip(t *testing.T) {
	v, err := FromDenotable(Object{
		{Key: "x", Value: 1.0},
		{Key: "y", Value: "hello"},
	})
	require.NoError(t, err)
	assert.True(t, v.IsRecord())
	assert.Equal(t, []string{"x", "y"}, v.Keys())

	x, err := v.Index("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, x.Number())

	y, err := v.Index("y")
	require.NoError(t, err)
	assert.Equal(t, "hello", y.String())
}

func TestFromDenotableEmptyListRequiresReference(t *testing.T) {
	_, err := FromDenotable([]any{})
	assert.Error(t, err)
}

func TestFromDenotableRejectsNestedNone(t *testing.T) {
	_, err := FromDenotable([]any{1.0, nil})
	assert.Error(t, err)
}

// TestMutateNoOpPreservesIdentity covers the mutate-identity-preservation
// invariant: mutating a leaf to a value it already holds must return the
// exact same Value (the same Data pointer, checked with assert.Same), not a
// new but equal one.
func TestMutateNoOpPreservesIdentity(t *testing.T) {
	v := MustFromDenotable(Object{
		{Key: "x", Value: 1.0},
		{Key: "y", Value: 2.0},
	})
	same, err := Mutate(v, []any{"x"}, 1.0)
	require.NoError(t, err)
	assert.True(t, same.Equal(v))
	assert.Same(t, v.data, same.data)

	changed, err := Mutate(v, []any{"x"}, 5.0)
	require.NoError(t, err)
	assert.False(t, changed.Equal(v))
	cx, _ := changed.Index("x")
	assert.Equal(t, 5.0, cx.Number())

	// the original is untouched: structural sharing, not in-place update.
	ox, _ := v.Index("x")
	assert.Equal(t, 1.0, ox.Number())
}

func TestMultiMutateAllNoOpsPreservesIdentity(t *testing.T) {
	v := MustFromDenotable(Object{
		{Key: "x", Value: 1.0},
		{Key: "y", Value: 2.0},
	})
	same, err := MultiMutate(v, []Change{
		{Path: []any{"x"}, NewData: 1.0},
		{Path: []any{"y"}, NewData: 2.0},
	})
	require.NoError(t, err)
	assert.True(t, same.Equal(v))
	assert.Same(t, v.data, same.data)
}

func TestMultiMutateOneChangeStillRebuilds(t *testing.T) {
	v := MustFromDenotable(Object{
		{Key: "x", Value: 1.0},
		{Key: "y", Value: 2.0},
	})
	out, err := MultiMutate(v, []Change{
		{Path: []any{"x"}, NewData: 1.0},
		{Path: []any{"y"}, NewData: 9.0},
	})
	require.NoError(t, err)
	assert.False(t, out.Equal(v))
	oy, _ := out.Index("y")
	assert.Equal(t, 9.0, oy.Number())
}

func TestMutateSchemaMismatchRejected(t *testing.T) {
	v := MustFromDenotable(Object{{Key: "x", Value: 1.0}})
	_, err := Mutate(v, []any{"x"}, "not a number")
	assert.Error(t, err)
}

func TestAsJSONFromJSONRoundTrip(t *testing.T) {
	v := MustFromDenotable(Object{
		{Key: "count", Value: 3.0},
		{Key: "label", Value: "ticks"},
		{Key: "samples", Value: []any{1.0, 2.0, 3.0}},
	})
	text, err := AsJSON(v)
	require.NoError(t, err)

	back, err := FromJSON(text, &v)
	require.NoError(t, err)
	assert.True(t, back.Equal(v))
}

func TestFromJSONEmptyListNeedsReference(t *testing.T) {
	reference := MustFromDenotable(Object{
		{Key: "samples", Value: []any{1.0}},
	})
	v, err := FromJSON(`{"samples": []}`, &reference)
	require.NoError(t, err)
	samples, err := v.Index("samples")
	require.NoError(t, err)
	assert.Equal(t, 0, samples.Len())

	_, err = FromJSON(`{"samples": []}`, nil)
	assert.Error(t, err)
}

func TestArithmetic(t *testing.T) {
	a := MustFromDenotable(2.0)
	b := MustFromDenotable(3.0)
	assert.Equal(t, 5.0, Add(a, b).Number())
	assert.Equal(t, -1.0, Sub(a, b).Number())
	assert.Equal(t, 6.0, Mul(a, b).Number())
	assert.True(t, Less(a, b))
	assert.False(t, Greater(a, b))
}

func TestNoneCannotBeMutatedOrIndexed(t *testing.T) {
	_, err := Mutate(None, []any{"x"}, 1.0)
	assert.Error(t, err)
	_, err = None.Index(0)
	assert.Error(t, err)
}

func TestFromSchemaZeroInitializes(t *testing.T) {
	schema := Schema{int64(KindNumber)}
	v := FromSchema(schema)
	assert.True(t, v.IsNumber())
	assert.Equal(t, 0.0, v.Number())
}
