package turngraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Partial(t *testing.T) {
	cur := newState(map[string]any{"message": "hi", "intent": "old", "reply": "r"})

	next, changed, err := merge(MergeOverlay, cur, Partial(Update{
		"intent": "new",
		"reply":  Clear,
		"items":  nil,
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"message": "hi", "intent": "new"}, next.Values())
	assert.Equal(t, []string{"intent", "reply"}, changed)
	// current is untouched
	assert.Equal(t, "old", cur.Get("intent"))
}

func TestMerge_PartialSameValueNotChanged(t *testing.T) {
	cur := newState(map[string]any{"intent": "x"})
	_, changed, err := merge(MergeOverlay, cur, Partial(Update{"intent": "x"}), nil)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestMerge_Full(t *testing.T) {
	cur := newState(map[string]any{"message": "hi", "intent": "x"})
	repl := newState(map[string]any{"message": "hi", "reply": "done"})

	for _, mode := range []MergeMode{MergeOverlay, MergeReplace} {
		next, changed, err := merge(mode, cur, Full(repl), nil)
		require.NoError(t, err)
		assert.Equal(t, repl.Values(), next.Values(), mode.String())
		assert.Equal(t, []string{"intent", "reply"}, changed)
		assert.NotSame(t, repl, next)
	}
}

func TestMerge_FullRejectsNilAndForeignSchema(t *testing.T) {
	cur := newState(nil)

	_, _, err := merge(MergeOverlay, cur, Full(nil), nil)
	assert.ErrorIs(t, err, ErrNilState)

	other := NewSchema("message").MustState(nil)
	_, _, err = merge(MergeOverlay, cur, Full(other), nil)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestMerge_ReplaceRejectsPartial(t *testing.T) {
	cur := newState(nil)
	_, _, err := merge(MergeReplace, cur, Partial(Update{"intent": "x"}), nil)

	var mme *MergeModeError
	require.ErrorAs(t, err, &mme)
	assert.Equal(t, MergeReplace, mme.Mode)
	assert.ErrorIs(t, err, ErrMergeMode)
}

func TestMerge_NoChangeAndBareRoute(t *testing.T) {
	cur := newState(map[string]any{"intent": "x"})
	for _, res := range []StepResult{NoChange(), Route("go"), {}} {
		next, changed, err := merge(MergeReplace, cur, res, nil)
		require.NoError(t, err)
		assert.Same(t, cur, next)
		assert.Empty(t, changed)
	}
}

func TestMerge_RouteWithUpdate(t *testing.T) {
	cur := newState(nil)
	next, changed, err := merge(MergeOverlay, cur, RouteWith("go", Update{"intent": "y"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "y", next.Get("intent"))
	assert.Equal(t, []string{"intent"}, changed)
}

func TestMerge_FieldChecks(t *testing.T) {
	cur := newState(nil)

	_, _, err := merge(MergeOverlay, cur, Partial(Update{"bogus": 1}), nil)
	assert.ErrorIs(t, err, ErrUnknownField)

	writes := map[string]bool{"intent": true}
	_, _, err = merge(MergeOverlay, cur, Partial(Update{"reply": "x"}), writes)
	var uwe *UndeclaredWriteError
	require.ErrorAs(t, err, &uwe)
	assert.Equal(t, "reply", uwe.Field)

	_, _, err = merge(MergeOverlay, cur, Partial(Update{"intent": "x"}), writes)
	assert.NoError(t, err)
}

func TestResult_Summary(t *testing.T) {
	assert.Equal(t, "no-change", NoChange().summary())
	assert.Equal(t, "partial", Partial(Update{"a": 1}).summary())
	assert.Equal(t, "full", Full(nil).summary())
	assert.Equal(t, "route", Route("x").summary())
	assert.Equal(t, "route+partial", RouteWith("x", Update{"a": 1}).summary())

	assert.True(t, Route("x").IsRoute())
	assert.Equal(t, "x", Route("x").Label())
	assert.False(t, Partial(nil).IsRoute())
}

func TestModes_String(t *testing.T) {
	assert.Equal(t, "overlay", MergeOverlay.String())
	assert.Equal(t, "replace", MergeReplace.String())
	assert.Equal(t, "pure", PureValue.String())
	assert.Equal(t, "in-place", InPlace.String())
	assert.Equal(t, "unset", StateMode(0).String())
	assert.Equal(t, "action", KindAction.String())
	assert.Equal(t, "decision", KindDecision.String())
}

func TestParseMergeMode(t *testing.T) {
	m, err := ParseMergeMode("")
	require.NoError(t, err)
	assert.Equal(t, MergeOverlay, m)

	m, err = ParseMergeMode(" Replace ")
	require.NoError(t, err)
	assert.Equal(t, MergeReplace, m)

	_, err = ParseMergeMode("append")
	assert.EqualError(t, err, `unknown merge mode "append"`)
}
