package turngraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	s := NewSchema("a", "b")
	assert.Equal(t, []string{"a", "b"}, s.Fields())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))

	assert.Panics(t, func() { NewSchema("") })
	assert.Panics(t, func() { NewSchema("a b") })
	assert.Panics(t, func() { NewSchema("a", "a") })
}

func TestSchema_NewState(t *testing.T) {
	st, err := turnSchema.NewState(map[string]any{"message": "hi", "intent": nil, "reply": Clear})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "hi"}, st.Values())

	_, err = turnSchema.NewState(map[string]any{"nope": 1})
	var ufe *UnknownFieldError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "nope", ufe.Field)
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestState_Accessors(t *testing.T) {
	st := newState(map[string]any{"message": "hi", "count": 2})

	assert.Equal(t, "hi", st.Get("message"))
	assert.Nil(t, st.Get("reply"))
	assert.True(t, st.Has("count"))
	assert.False(t, st.Has("reply"))

	v, ok := st.Lookup("count")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	n, ok := Value[int](st, "count")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = Value[string](st, "count")
	assert.False(t, ok)
	assert.Equal(t, "none", ValueOr(st, "reply", "none"))

	require.NoError(t, st.Set("reply", "ok"))
	assert.Equal(t, "ok", st.Get("reply"))
	require.NoError(t, st.Set("reply", Clear))
	assert.False(t, st.Has("reply"))
	assert.Error(t, st.Set("bogus", 1))
}

func TestState_CloneIsIndependent(t *testing.T) {
	st := newState(map[string]any{"message": "hi"})
	cp := st.Clone()
	require.NoError(t, cp.Set("message", "bye"))

	assert.Equal(t, "hi", st.Get("message"))
	assert.Equal(t, "bye", cp.Get("message"))
	assert.Same(t, st.Schema(), cp.Schema())

	vals := st.Values()
	vals["message"] = "mutated"
	assert.Equal(t, "hi", st.Get("message"))
}
